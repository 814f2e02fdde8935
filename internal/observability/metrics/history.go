package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// HistoryMetrics contains all Prometheus metrics related to the
// identification history store.
type HistoryMetrics struct {
	Entries           prometheus.Gauge
	Saves             prometheus.Counter
	Deletes           prometheus.Counter
	Evictions         prometheus.Counter
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	registry          *prometheus.Registry
}

// NewHistoryMetrics creates a new instance of HistoryMetrics and registers
// it with the given registry.
func NewHistoryMetrics(registry *prometheus.Registry) (*HistoryMetrics, error) {
	m := &HistoryMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize history metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register history metrics: %w", err)
	}
	return m, nil
}

func (m *HistoryMetrics) initMetrics() error {
	m.Entries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "history_entries",
		Help: "Current number of stored history entries.",
	})

	m.Saves = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "history_saves_total",
		Help: "Total number of entries saved to the history store.",
	})

	m.Deletes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "history_deletes_total",
		Help: "Total number of entries deleted from the history store.",
	})

	m.Evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "history_evictions_total",
		Help: "Total number of entries evicted by the capacity limit.",
	})

	m.OperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "history_operation_errors_total",
		Help: "Total number of history store errors by operation.",
	}, []string{"operation"})

	m.OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "history_operation_duration_seconds",
		Help:    "Duration of history store operations in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"operation"})

	return nil
}

// SetEntries updates the stored entry count gauge.
func (m *HistoryMetrics) SetEntries(count float64) {
	m.Entries.Set(count)
}

// IncrementSaves increases the save counter by one.
func (m *HistoryMetrics) IncrementSaves() {
	m.Saves.Inc()
}

// IncrementDeletes increases the delete counter by one.
func (m *HistoryMetrics) IncrementDeletes() {
	m.Deletes.Inc()
}

// IncrementEvictions increases the eviction counter by the given amount.
func (m *HistoryMetrics) IncrementEvictions(count float64) {
	m.Evictions.Add(count)
}

// IncrementOperationErrors increases the error counter for an operation.
func (m *HistoryMetrics) IncrementOperationErrors(operation string) {
	m.OperationErrors.WithLabelValues(operation).Inc()
}

// ObserveOperationDuration records the duration of a store operation.
// The duration should be provided in seconds.
func (m *HistoryMetrics) ObserveOperationDuration(operation string, durationSeconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// Collect implements the prometheus.Collector interface.
func (m *HistoryMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.Entries
	ch <- m.Saves
	ch <- m.Deletes
	ch <- m.Evictions
	m.OperationErrors.Collect(ch)
	m.OperationDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *HistoryMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.Entries.Desc()
	ch <- m.Saves.Desc()
	ch <- m.Deletes.Desc()
	ch <- m.Evictions.Desc()
	m.OperationErrors.Describe(ch)
	m.OperationDuration.Describe(ch)
}
