package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AI backend and ingestion Prometheus metrics.
var (
	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absola",
			Name:      "ai_requests_total",
			Help:      "Total number of requests to AI backends",
		},
		[]string{"backend", "operation", "status"},
	)

	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "absola",
			Name:      "ai_request_duration_seconds",
			Help:      "AI backend request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"backend", "operation"},
	)

	AIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absola",
			Name:      "ai_errors_total",
			Help:      "Total AI backend errors",
		},
		[]string{"backend", "operation", "error_type"},
	)

	IngestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absola",
			Name:      "ingestions_total",
			Help:      "Finished document ingestions by outcome",
		},
		[]string{"status"}, // "ready" / "error"
	)

	IngestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "absola",
			Name:      "ingestion_duration_seconds",
			Help:      "Time from scheduling to terminal status",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	TermCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "absola",
			Name:      "term_cache_total",
			Help:      "Term lookup cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var aiMetricsRegistered bool

// RegisterAIMetrics registers AI backend, ingestion and cache metrics. Must be called once from main.
func RegisterAIMetrics() {
	if aiMetricsRegistered {
		return
	}
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AIErrorsTotal)
	prometheus.MustRegister(IngestionsTotal)
	prometheus.MustRegister(IngestionDuration)
	prometheus.MustRegister(TermCacheTotal)
	aiMetricsRegistered = true
}

// IngestionRecorder implements the orchestrator's ingestion observer with the package metrics.
type IngestionRecorder struct{}

// ObserveIngestion counts the outcome and records the elapsed time.
func (IngestionRecorder) ObserveIngestion(status string, d time.Duration) {
	IngestionsTotal.WithLabelValues(status).Inc()
	IngestionDuration.Observe(d.Seconds())
}
