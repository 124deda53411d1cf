package api

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/td/internal/observability"
)

// LoggingMiddleware logs each request with slog and records its duration.
// The metric is labelled by route pattern rather than raw path so that
// inspection UUIDs and frame indices do not blow up the cardinality. Frame
// serving is chatty during playback and logs at Debug instead of Info.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			// Unmatched requests (404s) have no pattern.
			route = "unmatched"
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", duration.String(),
			"ip", c.ClientIP(),
		}
		if id := c.Param("id"); id != "" {
			if strings.HasPrefix(route, "/v1/jobs/") {
				attrs = append(attrs, "job_id", id)
			} else {
				attrs = append(attrs, "inspection_id", id)
			}
		}

		level := slog.LevelInfo
		if strings.Contains(route, "/frames/") {
			level = slog.LevelDebug
		}
		slog.Log(c.Request.Context(), level, "request", attrs...)

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(status),
		).Observe(duration.Seconds())
	}
}
