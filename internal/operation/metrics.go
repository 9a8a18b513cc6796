package operation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the dispatcher's Prometheus collectors.
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	expansions   *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "depsolve_operations_total",
			Help: "Operations dispatched, by operation and status.",
		}, []string{"operation", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "depsolve_operation_duration_seconds",
			Help:    "Operation duration, including model compilation.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),
		expansions: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "depsolve_search_expansions",
			Help:    "Candidate assignments tried per search.",
			Buckets: prometheus.ExponentialBuckets(1, 10, 9),
		}, []string{"operation"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "depsolve_model_cache_lookups_total",
			Help: "Compiled model cache lookups, by result.",
		}, []string{"result"}),
	}
}
