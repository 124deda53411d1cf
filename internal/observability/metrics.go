package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "td",
		Name:      "frames_extracted_total",
		Help:      "Total number of frames extracted from inspection videos",
	}, []string{"role"})

	FramesAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "td",
		Name:      "frames_analyzed_total",
		Help:      "Total number of frames run through an analysis stage",
	}, []string{"stage"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "td",
		Name:      "analysis_stage_duration_seconds",
		Help:      "Duration of analysis pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "td",
		Name:      "jobs_total",
		Help:      "Total number of analysis jobs by kind and final status",
	}, []string{"kind", "status"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "td",
		Name:      "job_duration_seconds",
		Help:      "End-to-end duration of analysis jobs",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"kind"})

	SeverityScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "td",
		Name:      "severity_score",
		Help:      "Distribution of overall severity scores",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "td",
		Name:      "queue_depth",
		Help:      "Number of pending analysis tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "td",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "td",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
