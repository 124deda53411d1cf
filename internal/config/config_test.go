package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFillsEverything(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "td-inspections", cfg.MinIO.Bucket)
	assert.Equal(t, 30, cfg.Analysis.FPS)
	assert.Equal(t, 512, cfg.Analysis.FrameSize)
	assert.Equal(t, 50, cfg.Analysis.Crack.LowThreshold)
	assert.Equal(t, 150, cfg.Analysis.Crack.HighThreshold)
	assert.Equal(t, 0.05, cfg.Analysis.Depth.MMPerUnit)
	assert.Equal(t, 0.2, cfg.Analysis.Classify.PresenceRatio)
	assert.Equal(t, 10.0, cfg.Analysis.Severity.MaxCrackDensity)
	assert.Equal(t, 5.0, cfg.Analysis.Severity.MaxDepthMM)
	assert.Equal(t, 72*time.Hour, cfg.Storage.FrameRetention)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
  api_keys: [alpha, beta]
analysis:
  fps: 10
  severity:
    max_crack_density: 20.0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
	assert.Equal(t, 10, cfg.Analysis.FPS)
	assert.Equal(t, 20.0, cfg.Analysis.Severity.MaxCrackDensity)

	// Unset fields still get defaults.
	assert.Equal(t, 5.0, cfg.Analysis.Severity.MaxDepthMM)
	assert.Equal(t, 600, cfg.Analysis.MaxFrames)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TD_SERVER_PORT", "7070")
	t.Setenv("TD_API_KEYS", "one, two,,three")
	t.Setenv("TD_DB_PASSWORD", "secret")
	t.Setenv("TD_FRAME_RETENTION", "24h")

	cfg := Default()

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"one", "two", "three"}, cfg.Server.APIKeys)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 24*time.Hour, cfg.Storage.FrameRetention)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "tyres", User: "app", Password: "pw"}
	assert.Equal(t, "postgres://app:pw@db:5433/tyres?sslmode=disable", d.DSN())
}
