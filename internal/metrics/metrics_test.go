package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectorMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewDetectorMetrics(reg)
	require.NoError(t, err)

	m.RecordDetection(ModeVisual, "found", 0.01, 3)
	m.RecordDetection(ModeVisual, "found", 0.02, 1)
	m.RecordDetection(ModeText, "retry_budget_exhausted", 0.5, 100)
	m.IncrementOCRAttempts()
	m.SetScaleRatio(0.25)
	m.IncrementFramesSkipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Detections.WithLabelValues(ModeVisual, "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Detections.WithLabelValues(ModeText, "retry_budget_exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OCRAttempts))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.ScaleRatio))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesSkipped))
}

func TestDetectorMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewDetectorMetrics(reg)
	require.NoError(t, err)

	_, err = NewDetectorMetrics(reg)
	assert.Error(t, err)
}

func TestDetectorMetrics_NilSafe(t *testing.T) {
	var m *DetectorMetrics
	assert.NotPanics(t, func() {
		m.RecordDetection(ModeVisual, "found", 1, 1)
		m.IncrementOCRAttempts()
		m.SetScaleRatio(1)
		m.IncrementFramesSkipped()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewDetectorMetrics(reg)
	require.NoError(t, err)
	m.SetScaleRatio(0.5)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "condition_scale_ratio 0.5"))
}
