package detector

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/correlation"
	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
	"github.com/ironsheep/condition-detector-mcp/internal/logger"
	"github.com/ironsheep/condition-detector-mcp/internal/metrics"
)

// Detector finds condition images inside screen captures.
//
// A Detector holds one screen image, one condition buffer, one region and
// one correlation map, all overwritten by each call. Calls are serialized by
// an internal mutex; a Detector is meant to serve one request at a time.
type Detector struct {
	mu sync.Mutex

	log     *logrus.Entry
	metrics *metrics.DetectorMetrics

	ratios *imaging.ScaleRatios
	screen *imaging.Image
	cond   *imaging.Image
	region imaging.Region

	engine correlation.Engine
	search *correlation.Search

	ocrFactory OCRFactory
	ocr        TextRecognizerCloser
	sink       ResultSink

	initialized bool
	hasScreen   bool

	maxCandidates   int
	maxTextAttempts int
	textMaxEdits    int
}

// New creates a Detector. Initialize must be called before detecting.
func New(opts ...Option) *Detector {
	d := &Detector{
		log:             logger.Component("detector"),
		ratios:          imaging.NewScaleRatios(),
		screen:          imaging.NewImage(),
		cond:            imaging.NewImage(),
		engine:          correlation.NewNCC(),
		maxTextAttempts: DefaultMaxTextAttempts,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.search = correlation.NewSearch(d.engine)
	return d
}

// Initialize binds the result sink and opens the text recognizer, if one is
// configured.
func (d *Detector) Initialize(sink ResultSink) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return ErrAlreadyInitialized
	}
	if d.ocrFactory != nil {
		ocr, err := d.ocrFactory()
		if err != nil {
			return fmt.Errorf("failed to open text recognizer: %w", err)
		}
		d.ocr = ocr
	}
	d.sink = sink
	d.initialized = true
	d.log.Debug("Initialized")
	return nil
}

// Release closes the text recognizer and unbinds the sink. Releasing an
// uninitialized detector does nothing.
func (d *Detector) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil
	}
	var err error
	if d.ocr != nil {
		err = d.ocr.Close()
		d.ocr = nil
	}
	d.sink = nil
	d.initialized = false
	d.log.Debug("Released")
	return err
}

// Initialized reports whether Initialize has been called without a matching
// Release.
func (d *Detector) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// SetScreenMetrics computes the scale ratio for screens shaped like screen
// and makes tag the active metrics context. It returns the ratio, which is 0
// for degenerate input.
func (d *Detector) SetScreenMetrics(tag string, screen image.Image, quality float64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var size image.Point
	if screen != nil {
		size = screen.Bounds().Size()
	}
	ratio := d.ratios.Compute(size.X, size.Y, quality, tag)
	d.metrics.SetScaleRatio(ratio)

	entry := d.log.WithFields(logrus.Fields{
		"tag":     tag,
		"width":   size.X,
		"height":  size.Y,
		"quality": quality,
		"ratio":   ratio,
	})
	if !imaging.ValidRatio(ratio) {
		entry.Warn("Degenerate screen metrics")
	} else {
		entry.Debug("Screen metrics defined")
	}
	return ratio
}

// SetScreenImage ingests the current frame at the active scale ratio. When
// the frame size differs from the one the metrics were computed for, the
// ratio is recomputed first.
func (d *Detector) SetScreenImage(screen image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if screen == nil {
		return ErrNoScreenImage
	}
	size := screen.Bounds().Size()
	if _, ok := d.ratios.Active(); !ok {
		return fmt.Errorf("%w: screen metrics not set", ErrDegenerateScale)
	}

	ratio, changed := d.ratios.Refresh(size.X, size.Y)
	if changed {
		d.metrics.SetScaleRatio(ratio)
		d.log.WithFields(logrus.Fields{
			"width":  size.X,
			"height": size.Y,
			"ratio":  ratio,
		}).Info("Screen size changed, scale ratio recomputed")
	}
	if !imaging.ValidRatio(ratio) {
		return fmt.Errorf("%w: %v for %dx%d", ErrDegenerateScale, ratio, size.X, size.Y)
	}

	if err := d.screen.Process(screen, ratio); err != nil {
		return fmt.Errorf("failed to process screen image: %w", err)
	}
	d.hasScreen = true
	return nil
}

// ScreenInfo describes the current screen image.
type ScreenInfo struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	ScaledWidth  int     `json:"scaled_width"`
	ScaledHeight int     `json:"scaled_height"`
	Ratio        float64 `json:"ratio"`
	Tag          string  `json:"tag"`
}

// Screen returns information about the current screen image. It reports
// false when no screen image has been set.
func (d *Detector) Screen() (ScreenInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasScreen {
		return ScreenInfo{}, false
	}
	info := ScreenInfo{
		Width:        d.screen.FullSize().X,
		Height:       d.screen.FullSize().Y,
		ScaledWidth:  d.screen.ScaledSize().X,
		ScaledHeight: d.screen.ScaledSize().Y,
		Ratio:        d.screen.Ratio(),
	}
	if m, ok := d.ratios.Active(); ok {
		info.Tag = m.Tag
	}
	return info, true
}

// Snapshot encodes area of the current full-size screen image as PNG.
func (d *Detector) Snapshot(area image.Rectangle) (*imaging.SnapshotResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasScreen {
		return nil, ErrNoScreenImage
	}
	return imaging.Snapshot(d.screen.FullColor(), area.Intersect(d.screen.FullBounds()))
}

// prepare validates the request, ingests the condition, crops the screen
// to the region and computes the correlation map. It returns the scaled
// condition size and the ratio both images were processed with.
func (d *Detector) prepare(cond image.Image, region *image.Rectangle) (image.Point, float64, error) {
	d.search.Reset()
	if !d.initialized {
		return image.Point{}, 0, ErrNotInitialized
	}
	if !d.hasScreen {
		return image.Point{}, 0, ErrNoScreenImage
	}
	ratio := d.screen.Ratio()
	if !imaging.ValidRatio(ratio) {
		return image.Point{}, 0, fmt.Errorf("%w: %v", ErrDegenerateScale, ratio)
	}
	if cond == nil || cond.Bounds().Empty() {
		return image.Point{}, 0, ErrInvalidCondition
	}

	if region == nil {
		d.region.SetFullImage(d.screen.FullBounds(), ratio)
	} else if region.Min.X > region.Max.X || region.Min.Y > region.Max.Y {
		return image.Point{}, 0, fmt.Errorf("%w: inverted rectangle %v", ErrInvalidRegion, *region)
	} else {
		d.region.SetFullSize(*region, ratio)
	}
	if !d.screen.FullSizeContains(d.region.FullSize) || !d.screen.ScaledContains(d.region.Scaled) {
		return image.Point{}, 0, fmt.Errorf("%w: %v on screen %v", ErrInvalidRegion, d.region, d.screen.FullBounds())
	}

	if err := d.cond.Process(cond, ratio); err != nil {
		return image.Point{}, 0, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	d.screen.SetCropping(d.region)
	needle := d.cond.ScaledSize()
	if !d.screen.CroppedScaledContains(needle) {
		return image.Point{}, 0, fmt.Errorf("%w: condition %v, region %v", ErrConditionTooLarge, needle, d.region.Scaled)
	}

	haystack, _ := d.screen.CroppedScaledGray()
	if err := d.search.Init(haystack, d.cond.ScaledGray()); err != nil {
		return image.Point{}, 0, fmt.Errorf("%w: %v", ErrCorrelation, err)
	}
	return needle, ratio, nil
}

// inScreen reports whether a candidate lies inside the scaled screen once
// moved to the region origin.
func (d *Detector) inScreen(cand correlation.Candidate) bool {
	return d.screen.ScaledContains(cand.Scaled.Translate(d.region.Scaled.Min))
}

// place fills the location fields of res from cand.
func (d *Detector) place(res *Result, cand correlation.Candidate) {
	origin := d.region.Origin()
	center := cand.FullSize.Center().Add(origin)
	res.X, res.Y = center.X, center.Y
	res.Confidence = cand.Score
	res.Area = cand.FullSize.Translate(origin).Rectangle
}

// exhausted reports whether every map cell has been suppressed.
func (d *Detector) exhausted() bool {
	_, _, _, ok := d.search.Map().Max()
	return !ok
}

// finish records and delivers the result of a detection call.
func (d *Detector) finish(mode string, res Result, start time.Time, fields logrus.Fields) Result {
	res.Candidates = d.search.Located()
	if res.Err != nil {
		res.Found = false
		res.Reason = res.Err.Error()
	}

	d.metrics.RecordDetection(mode, outcome(res.Err), time.Since(start).Seconds(), res.Candidates)

	entry := d.log.WithFields(fields).WithFields(logrus.Fields{
		"mode":       mode,
		"found":      res.Found,
		"candidates": res.Candidates,
		"duration":   time.Since(start).String(),
	})
	switch {
	case res.Found:
		entry.WithFields(logrus.Fields{"x": res.X, "y": res.Y, "confidence": res.Confidence}).Debug("Condition detected")
	case isConfigurationError(res.Err):
		entry.WithError(res.Err).Warn("Detection skipped")
	default:
		entry.WithError(res.Err).Debug("Condition not detected")
	}

	if d.sink != nil {
		d.sink.Deliver(res)
	}
	return res
}

// isConfigurationError reports rejections caused by the request or the
// detector setup rather than by the screen content.
func isConfigurationError(err error) bool {
	for _, target := range []error{
		ErrInvalidRegion, ErrConditionTooLarge, ErrDegenerateScale, ErrNoScreenImage,
		ErrInvalidThreshold, ErrInvalidCondition, ErrEmptyText, ErrCorrelation, ErrNotInitialized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
