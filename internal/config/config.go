package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`
	Worker    WorkerConfig    `yaml:"worker"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	APIKeys     []string `yaml:"api_keys"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// AnalysisConfig tunes the frame analysis stages. Classifier decision
// thresholds are fixed rules and live with the classifier itself; only
// deployment-dependent calibration is exposed here.
type AnalysisConfig struct {
	FPS       int            `yaml:"fps"`
	MaxFrames int            `yaml:"max_frames"`
	FrameSize int            `yaml:"frame_size"`
	Crack     CrackConfig    `yaml:"crack"`
	Depth     DepthConfig    `yaml:"depth"`
	Classify  ClassifyConfig `yaml:"classify"`
	Severity  SeverityConfig `yaml:"severity"`
}

type CrackConfig struct {
	LowThreshold  int `yaml:"low_threshold"`
	HighThreshold int `yaml:"high_threshold"`
	DiffThreshold int `yaml:"diff_threshold"`
	MinArea       int `yaml:"min_area"`
}

type DepthConfig struct {
	MMPerUnit    float64 `yaml:"mm_per_unit"`
	MaxDisparity int     `yaml:"max_disparity"`
	BlockSize    int     `yaml:"block_size"`
}

type ClassifyConfig struct {
	// PresenceRatio is the fraction of frames a damage type must appear in
	// before it counts as detected for the whole video.
	PresenceRatio float64 `yaml:"presence_ratio"`
}

type SeverityConfig struct {
	MaxCrackDensity float64 `yaml:"max_crack_density"`
	MaxDepthMM      float64 `yaml:"max_depth_mm"`
}

type TelemetryConfig struct {
	ModelPath string `yaml:"model_path"`
}

type StorageConfig struct {
	FrameRetention time.Duration `yaml:"frame_retention"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A missing file is not an error; env overrides and defaults apply alone.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// Default returns a config built from environment variables and defaults
// alone, for commands run without a config file.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "td"
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "td"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = "localhost:9000"
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "td-inspections"
	}
	if cfg.Analysis.FPS == 0 {
		cfg.Analysis.FPS = 30
	}
	if cfg.Analysis.MaxFrames == 0 {
		cfg.Analysis.MaxFrames = 600
	}
	if cfg.Analysis.FrameSize == 0 {
		cfg.Analysis.FrameSize = 512
	}
	if cfg.Analysis.Crack.LowThreshold == 0 {
		cfg.Analysis.Crack.LowThreshold = 50
	}
	if cfg.Analysis.Crack.HighThreshold == 0 {
		cfg.Analysis.Crack.HighThreshold = 150
	}
	if cfg.Analysis.Crack.DiffThreshold == 0 {
		cfg.Analysis.Crack.DiffThreshold = 30
	}
	if cfg.Analysis.Crack.MinArea == 0 {
		cfg.Analysis.Crack.MinArea = 20
	}
	if cfg.Analysis.Depth.MMPerUnit == 0 {
		cfg.Analysis.Depth.MMPerUnit = 0.05
	}
	if cfg.Analysis.Depth.MaxDisparity == 0 {
		cfg.Analysis.Depth.MaxDisparity = 16
	}
	if cfg.Analysis.Depth.BlockSize == 0 {
		cfg.Analysis.Depth.BlockSize = 15
	}
	if cfg.Analysis.Classify.PresenceRatio == 0 {
		cfg.Analysis.Classify.PresenceRatio = 0.2
	}
	if cfg.Analysis.Severity.MaxCrackDensity == 0 {
		cfg.Analysis.Severity.MaxCrackDensity = 10.0
	}
	if cfg.Analysis.Severity.MaxDepthMM == 0 {
		cfg.Analysis.Severity.MaxDepthMM = 5.0
	}
	if cfg.Storage.FrameRetention == 0 {
		cfg.Storage.FrameRetention = 72 * time.Hour
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 4
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TD_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TD_API_KEYS"); v != "" {
		cfg.Server.APIKeys = splitList(v)
	}
	if v := os.Getenv("TD_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("TD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("TD_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("TD_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("TD_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("TD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("TD_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("TD_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("TD_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("TD_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("TD_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("TD_TELEMETRY_MODEL"); v != "" {
		cfg.Telemetry.ModelPath = v
	}
	if v := os.Getenv("TD_WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.Concurrency = n
		}
	}
	if v := os.Getenv("TD_FRAME_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Storage.FrameRetention = d
		}
	}
	if v := os.Getenv("TD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
