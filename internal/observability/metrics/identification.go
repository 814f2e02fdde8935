// Package metrics provides custom Prometheus metrics for the application
// components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// IdentificationMetrics contains all Prometheus metrics related to plant
// identification requests.
type IdentificationMetrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ParsePath       *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	registry        *prometheus.Registry
}

// NewIdentificationMetrics creates a new instance of IdentificationMetrics
// and registers it with the given registry.
func NewIdentificationMetrics(registry *prometheus.Registry) (*IdentificationMetrics, error) {
	m := &IdentificationMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize identification metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register identification metrics: %w", err)
	}
	return m, nil
}

func (m *IdentificationMetrics) initMetrics() error {
	m.Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identification_requests_total",
		Help: "Total number of identification requests by outcome.",
	}, []string{"status"})

	m.RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "identification_request_duration_seconds",
		Help:    "Duration of identification requests in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	m.ParsePath = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identification_parse_path_total",
		Help: "Total number of AI replies handled by each parse path.",
	}, []string{"path"})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "identification_cache_hits_total",
		Help: "Total number of identification cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "identification_cache_misses_total",
		Help: "Total number of identification cache misses.",
	})

	return nil
}

// IncrementRequests increases the request counter for the given outcome.
func (m *IdentificationMetrics) IncrementRequests(status string) {
	m.Requests.WithLabelValues(status).Inc()
}

// ObserveRequestDuration records the duration of an identification request.
// The duration should be provided in seconds.
func (m *IdentificationMetrics) ObserveRequestDuration(durationSeconds float64) {
	m.RequestDuration.Observe(durationSeconds)
}

// IncrementParsePath increases the counter for the parse path that handled
// an AI reply.
func (m *IdentificationMetrics) IncrementParsePath(path string) {
	m.ParsePath.WithLabelValues(path).Inc()
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *IdentificationMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *IdentificationMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *IdentificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
	ch <- m.RequestDuration
	m.ParsePath.Collect(ch)
	ch <- m.CacheHits
	ch <- m.CacheMisses
}

// Describe implements the prometheus.Collector interface.
func (m *IdentificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
	ch <- m.RequestDuration.Desc()
	m.ParsePath.Describe(ch)
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
}
