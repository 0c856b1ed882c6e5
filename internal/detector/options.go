package detector

import (
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/correlation"
	"github.com/ironsheep/condition-detector-mcp/internal/metrics"
)

// DefaultMaxTextAttempts is the number of text recognition attempts a text
// detection makes before giving up.
const DefaultMaxTextAttempts = 100

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the log entry used for diagnostics.
func WithLogger(log *logrus.Entry) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}

// WithEngine replaces the correlation engine.
func WithEngine(engine correlation.Engine) Option {
	return func(d *Detector) {
		if engine != nil {
			d.engine = engine
		}
	}
}

// WithOCR sets the factory that opens the text recognizer on Initialize.
// Without it, text detections fail with ErrNotInitialized.
func WithOCR(factory OCRFactory) Option {
	return func(d *Detector) {
		d.ocrFactory = factory
	}
}

// WithMetrics records detection metrics.
func WithMetrics(m *metrics.DetectorMetrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

// WithMaxCandidates caps how many candidates one visual detection may
// examine. Zero or less means the number of cells in the correlation map.
func WithMaxCandidates(n int) Option {
	return func(d *Detector) {
		d.maxCandidates = n
	}
}

// WithMaxTextAttempts sets the text recognition retry budget.
func WithMaxTextAttempts(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.maxTextAttempts = n
		}
	}
}

// WithTextMaxEdits lets text detection accept recognized text within n
// edits of the target.
func WithTextMaxEdits(n int) Option {
	return func(d *Detector) {
		d.textMaxEdits = max(n, 0)
	}
}
