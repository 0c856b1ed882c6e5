// Package metrics provides Prometheus metrics for condition detection.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Detection modes used as the "mode" label.
const (
	ModeVisual = "visual"
	ModeText   = "text"
)

// DetectorMetrics contains all Prometheus metrics related to condition
// detection. A nil *DetectorMetrics is valid and records nothing.
type DetectorMetrics struct {
	Detections        *prometheus.CounterVec
	DetectionDuration *prometheus.HistogramVec
	CandidatesVisited *prometheus.HistogramVec
	OCRAttempts       prometheus.Counter
	ScaleRatio        prometheus.Gauge
	FramesSkipped     prometheus.Counter
	registry          *prometheus.Registry
}

// NewDetectorMetrics creates the metrics and registers them with registry.
// It returns an error if metric registration fails.
func NewDetectorMetrics(registry *prometheus.Registry) (*DetectorMetrics, error) {
	m := &DetectorMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detector metrics: %w", err)
	}
	return m, nil
}

func (m *DetectorMetrics) initMetrics() {
	m.Detections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "condition_detections_total",
		Help: "Total number of detection calls by mode and outcome.",
	}, []string{"mode", "outcome"})

	m.DetectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "condition_detection_duration_seconds",
		Help:    "Duration of detection calls in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"mode"})

	m.CandidatesVisited = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "condition_candidates_visited",
		Help:    "Number of correlation candidates located per detection call.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"mode"})

	m.OCRAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "condition_ocr_attempts_total",
		Help: "Total number of text recognition attempts.",
	})

	m.ScaleRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "condition_scale_ratio",
		Help: "Active scale ratio applied to screen images.",
	})

	m.FramesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "condition_watch_frames_skipped_total",
		Help: "Total number of watched frames skipped as unchanged.",
	})
}

// RecordDetection records the outcome and duration of one detection call.
func (m *DetectorMetrics) RecordDetection(mode, outcome string, seconds float64, candidates int) {
	if m == nil {
		return
	}
	m.Detections.WithLabelValues(mode, outcome).Inc()
	m.DetectionDuration.WithLabelValues(mode).Observe(seconds)
	m.CandidatesVisited.WithLabelValues(mode).Observe(float64(candidates))
}

// IncrementOCRAttempts increases the OCR attempt counter by one.
func (m *DetectorMetrics) IncrementOCRAttempts() {
	if m == nil {
		return
	}
	m.OCRAttempts.Inc()
}

// SetScaleRatio updates the active scale ratio gauge.
func (m *DetectorMetrics) SetScaleRatio(ratio float64) {
	if m == nil {
		return
	}
	m.ScaleRatio.Set(ratio)
}

// IncrementFramesSkipped increases the skipped frame counter by one.
func (m *DetectorMetrics) IncrementFramesSkipped() {
	if m == nil {
		return
	}
	m.FramesSkipped.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *DetectorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Detections.Collect(ch)
	m.DetectionDuration.Collect(ch)
	m.CandidatesVisited.Collect(ch)
	ch <- m.OCRAttempts
	ch <- m.ScaleRatio
	ch <- m.FramesSkipped
}

// Describe implements the prometheus.Collector interface.
func (m *DetectorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Detections.Describe(ch)
	m.DetectionDuration.Describe(ch)
	m.CandidatesVisited.Describe(ch)
	ch <- m.OCRAttempts.Desc()
	ch <- m.ScaleRatio.Desc()
	ch <- m.FramesSkipped.Desc()
}

// Handler returns an HTTP handler serving the metrics in registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
