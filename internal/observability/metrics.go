// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for validation runs.
//
// Metrics are exposed via the /metrics endpoint of the HTTP server. The
// orchestrator records one observation per requirement and one per session;
// the model client records request outcomes and retries.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "compliance"

// Metrics holds the Prometheus collectors for the validation engine.
type Metrics struct {
	// SessionsTotal counts finished sessions by terminal status.
	SessionsTotal *prometheus.CounterVec

	// SessionDurationSeconds measures wall time from start to finish.
	SessionDurationSeconds *prometheus.HistogramVec

	// RequirementsTotal counts validated requirements by result status.
	RequirementsTotal *prometheus.CounterVec

	// ModelRequestsTotal counts model calls by strategy and outcome.
	ModelRequestsTotal *prometheus.CounterVec

	// ModelLatencySeconds measures a single model call including retries.
	ModelLatencySeconds *prometheus.HistogramVec

	// RateLimitRetriesTotal counts backoff retries after rate limiting.
	RateLimitRetriesTotal prometheus.Counter

	// CacheLookupsTotal counts document content cache lookups by outcome (hit, miss).
	CacheLookupsTotal *prometheus.CounterVec

	// ActiveSessions tracks sessions currently in processing.
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates and registers all collectors with reg.
// Registering twice on the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "session",
				Name:      "finished_total",
				Help:      "Validation sessions finished by terminal status",
			},
			[]string{"status"},
		),
		SessionDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "session",
				Name:      "duration_seconds",
				Help:      "Validation session duration in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"status"},
		),
		RequirementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "requirement",
				Name:      "validated_total",
				Help:      "Requirements validated by requirement type and result status",
			},
			[]string{"requirement_type", "status"},
		),
		ModelRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "model",
				Name:      "requests_total",
				Help:      "Model requests by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		ModelLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "model",
				Name:      "latency_seconds",
				Help:      "Model request latency in seconds, including retries",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"strategy"},
		),
		RateLimitRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "model",
				Name:      "rate_limit_retries_total",
				Help:      "Retries performed after a rate limited model response",
			},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "content_cache",
				Name:      "lookups_total",
				Help:      "Document content cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "session",
				Name:      "active",
				Help:      "Validation sessions currently processing",
			},
		),
	}
}

// Discard returns metrics registered on a private registry.
// Services use it when no metrics are configured, and tests use it to avoid
// duplicate registration on the default registry.
func Discard() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
