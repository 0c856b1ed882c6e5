// Package watch polls a screen source and runs a fixed set of condition
// detections on every changed frame.
package watch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/detector"
	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
	"github.com/ironsheep/condition-detector-mcp/internal/metrics"
	"github.com/ironsheep/condition-detector-mcp/internal/sink"
)

// Source produces screen frames.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
}

// FileSource re-reads a screenshot file on every frame.
type FileSource struct {
	Path string
}

func (s FileSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return imaging.Open(s.Path)
}

// Condition is one detection run against every processed frame. A
// non-empty Text selects text detection, otherwise Threshold applies.
type Condition struct {
	Name      string
	Image     image.Image
	Region    *image.Rectangle
	Threshold int
	Text      string
}

// ScreenDetector is the part of detector.Detector the watcher drives.
type ScreenDetector interface {
	SetScreenMetrics(tag string, screen image.Image, quality float64) float64
	SetScreenImage(screen image.Image) error
	DetectCondition(cond image.Image, region *image.Rectangle, threshold int) detector.Result
	DetectText(cond image.Image, region *image.Rectangle, target string) detector.Result
}

// Config controls polling.
type Config struct {
	Interval time.Duration

	// HashDistance is the largest pHash Hamming distance at which a frame
	// counts as unchanged. Negative processes every frame.
	HashDistance int

	Quality    float64
	MetricsTag string
}

// Watcher runs detections on changed frames and publishes the results.
type Watcher struct {
	src     Source
	det     ScreenDetector
	conds   []Condition
	out     sink.NamedSink
	cfg     Config
	log     *logrus.Entry
	metrics *metrics.DetectorMetrics

	lastHash *goimagehash.ImageHash
}

// New creates a Watcher. metrics may be nil.
func New(src Source, det ScreenDetector, conds []Condition, out sink.NamedSink, cfg Config, log *logrus.Entry, m *metrics.DetectorMetrics) (*Watcher, error) {
	if len(conds) == 0 {
		return nil, errors.New("no conditions to watch")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("invalid interval %v", cfg.Interval)
	}
	for i, c := range conds {
		if c.Image == nil {
			return nil, fmt.Errorf("condition %d (%s) has no image", i, c.Name)
		}
	}
	return &Watcher{
		src:     src,
		det:     det,
		conds:   conds,
		out:     out,
		cfg:     cfg,
		log:     log,
		metrics: m,
	}, nil
}

// Run processes a frame immediately and then once per interval until ctx
// is cancelled. Frame errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.Step(ctx); err != nil && ctx.Err() == nil {
			w.log.WithError(err).Warn("Frame processing failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Step fetches one frame and, unless it is unchanged, detects every
// condition in it. It returns the results keyed by condition name, or nil
// for a skipped frame.
func (w *Watcher) Step(ctx context.Context) (map[string]detector.Result, error) {
	frame, err := w.src.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	hash, changed := w.changed(frame)
	if !changed {
		w.metrics.IncrementFramesSkipped()
		return nil, nil
	}

	if r := w.det.SetScreenMetrics(w.cfg.MetricsTag, frame, w.cfg.Quality); !imaging.ValidRatio(r) {
		return nil, fmt.Errorf("%w: frame %v", detector.ErrDegenerateScale, frame.Bounds().Size())
	}
	if err := w.det.SetScreenImage(frame); err != nil {
		return nil, err
	}
	// Only ingested frames become the reference, so a frame that failed
	// is retried when it shows up again.
	if hash != nil {
		w.lastHash = hash
	}

	results := make(map[string]detector.Result, len(w.conds))
	var errs []error
	for _, c := range w.conds {
		var res detector.Result
		if c.Text != "" {
			res = w.det.DetectText(c.Image, c.Region, c.Text)
		} else {
			res = w.det.DetectCondition(c.Image, c.Region, c.Threshold)
		}
		results[c.Name] = res

		if w.out != nil {
			if err := w.out.Publish(c.Name, res); err != nil {
				errs = append(errs, fmt.Errorf("publish %s: %w", c.Name, err))
			}
		}
	}
	return results, errors.Join(errs...)
}

// changed hashes frame and reports whether it differs from the last
// ingested frame by more than the hash distance. The returned hash is nil
// when skipping is disabled or the frame cannot be hashed; such frames
// always count as changed.
func (w *Watcher) changed(frame image.Image) (*goimagehash.ImageHash, bool) {
	if w.cfg.HashDistance < 0 {
		return nil, true
	}

	hash, err := goimagehash.PerceptionHash(frame)
	if err != nil {
		w.log.WithError(err).Debug("Failed to hash frame")
		return nil, true
	}

	if w.lastHash != nil {
		dist, err := w.lastHash.Distance(hash)
		if err == nil && dist <= w.cfg.HashDistance {
			w.log.WithField("distance", dist).Trace("Skipping unchanged frame")
			return hash, false
		}
	}
	return hash, true
}
