package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/td/internal/api/handlers"
	"github.com/your-org/td/internal/api/ws"
	"github.com/your-org/td/internal/auth"
	"github.com/your-org/td/internal/queue"
	"github.com/your-org/td/internal/storage"
	"github.com/your-org/td/internal/telemetry"
)

type RouterConfig struct {
	APIKeys     []string
	CORSOrigins []string
	DB          *storage.PostgresStore
	MinIO       *storage.MinIOStore
	Producer    *queue.Producer
	Hub         *ws.Hub
	Degradation *telemetry.DegradationCalculator
	Predictor   *telemetry.Predictor
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(corsMiddleware(cfg.CORSOrigins))

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Inspections
	inspH := handlers.NewInspectionHandler(cfg.DB, cfg.MinIO)
	v1.POST("/inspections", inspH.Create)
	v1.GET("/inspections", inspH.List)
	v1.GET("/inspections/:id", inspH.Get)
	v1.DELETE("/inspections/:id", inspH.Delete)
	v1.GET("/inspections/:id/frames/:role/:index", inspH.Frame)
	v1.POST("/inspections/:id/similar", inspH.Similar)

	// Analysis jobs
	jobH := handlers.NewJobHandler(cfg.DB, cfg.Producer)
	v1.POST("/inspections/:id/analyze", jobH.Analyze)
	v1.GET("/inspections/:id/jobs", jobH.List)
	v1.GET("/jobs/:id", jobH.Get)

	// Reports & stage results
	reportH := handlers.NewReportHandler(cfg.DB, cfg.MinIO)
	v1.GET("/inspections/:id/report", reportH.Report)
	v1.GET("/inspections/:id/results/:kind", reportH.Results)

	// Telemetry
	telH := handlers.NewTelemetryHandler(cfg.Degradation, cfg.Predictor)
	v1.POST("/telemetry/degradation", telH.Degradation)
	v1.POST("/telemetry/predict", telH.Predict)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AddAllowHeaders("X-API-Key")
	return cors.New(cfg)
}
