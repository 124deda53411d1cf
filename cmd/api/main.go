package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/td/internal/api"
	"github.com/your-org/td/internal/api/ws"
	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/models"
	"github.com/your-org/td/internal/observability"
	"github.com/your-org/td/internal/queue"
	"github.com/your-org/td/internal/storage"
	"github.com/your-org/td/internal/telemetry"
	"github.com/your-org/td/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting TD API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitSchema(context.Background()); err != nil {
		slog.Error("init schema", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Fan job progress events out to WebSocket subscribers
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeJobEvents(ctx, "api-events", func(ctx context.Context, msg jetstream.Msg) error {
		var event models.JobEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return err
		}

		hub.BroadcastEvent(&dto.WSJobEvent{
			Type:         "job_" + string(event.Status),
			InspectionID: event.InspectionID,
			JobID:        event.JobID,
			Kind:         string(event.Kind),
			Status:       string(event.Status),
			Progress:     event.Progress,
			Error:        event.Error,
		})
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	// Telemetry: stint degradation plus the optional ONNX regression model
	degradation := telemetry.NewDegradationCalculator()

	var predictor *telemetry.Predictor
	if cfg.Telemetry.ModelPath != "" {
		ort.SetSharedLibraryPath(getONNXLibPath())
		if err := ort.InitializeEnvironment(); err != nil {
			slog.Warn("onnx runtime init failed — predictions fall back to moving average", "error", err)
		} else {
			defer ort.DestroyEnvironment()
		}
	}
	predictor, err = telemetry.NewPredictor(cfg.Telemetry.ModelPath)
	if err != nil {
		slog.Warn("load degradation model — predictions fall back to moving average", "error", err)
		predictor, _ = telemetry.NewPredictor("")
	}
	defer predictor.Close()

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKeys:     cfg.Server.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		DB:          db,
		MinIO:       minioStore,
		Producer:    producer,
		Hub:         hub,
		Degradation: degradation,
		Predictor:   predictor,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // video uploads
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
