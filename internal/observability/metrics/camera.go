package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CameraMetrics contains all Prometheus metrics related to camera capture.
type CameraMetrics struct {
	Captures        prometheus.Counter
	CaptureErrors   *prometheus.CounterVec
	CaptureDuration prometheus.Histogram
	StreamActive    prometheus.Gauge
	registry        *prometheus.Registry
}

// NewCameraMetrics creates a new instance of CameraMetrics and registers it
// with the given registry.
func NewCameraMetrics(registry *prometheus.Registry) (*CameraMetrics, error) {
	m := &CameraMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize camera metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register camera metrics: %w", err)
	}
	return m, nil
}

func (m *CameraMetrics) initMetrics() error {
	m.Captures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camera_captures_total",
		Help: "Total number of frames captured.",
	})

	m.CaptureErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camera_capture_errors_total",
		Help: "Total number of capture errors by reason.",
	}, []string{"reason"})

	m.CaptureDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "camera_capture_duration_seconds",
		Help:    "Duration of frame captures in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.StreamActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "camera_stream_active",
		Help: "Whether a camera stream is currently active (0 or 1).",
	})

	return nil
}

// IncrementCaptures increases the capture counter by one.
func (m *CameraMetrics) IncrementCaptures() {
	m.Captures.Inc()
}

// IncrementCaptureErrors increases the capture error counter for a reason.
func (m *CameraMetrics) IncrementCaptureErrors(reason string) {
	m.CaptureErrors.WithLabelValues(reason).Inc()
}

// ObserveCaptureDuration records the duration of a capture in seconds.
func (m *CameraMetrics) ObserveCaptureDuration(durationSeconds float64) {
	m.CaptureDuration.Observe(durationSeconds)
}

// SetStreamActive updates the stream-active gauge.
func (m *CameraMetrics) SetStreamActive(active bool) {
	if active {
		m.StreamActive.Set(1)
	} else {
		m.StreamActive.Set(0)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *CameraMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.Captures
	m.CaptureErrors.Collect(ch)
	ch <- m.CaptureDuration
	ch <- m.StreamActive
}

// Describe implements the prometheus.Collector interface.
func (m *CameraMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.Captures.Desc()
	m.CaptureErrors.Describe(ch)
	ch <- m.CaptureDuration.Desc()
	ch <- m.StreamActive.Desc()
}
