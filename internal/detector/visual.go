package detector

import (
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
	"github.com/ironsheep/condition-detector-mcp/internal/metrics"
)

// DetectCondition looks for cond inside region of the current screen image.
//
// # Parameters
//
//   - cond: the condition image, at the same scale as the screen captures
//   - region: full-size screen rectangle to search, nil for the whole
//     screen; it must lie inside the screen and must not be inverted
//   - threshold: strictness in [0, 100]
//
// # Acceptance
//
// Candidates are taken from the correlation map best first. A candidate is
// accepted when its correlation score is above (100-threshold)/100 and the
// mean color of its area differs from the condition's by less than
// threshold on a 0-100 scale. The color check looks at the candidate's own
// full-size area, not at the whole region. The first candidate at or below
// the score bar ends the search.
//
// # Returns
//
// A Result with Found set and the center of the accepted area in full-size
// screen coordinates. When nothing is accepted, Result.Err says why and the
// location fields describe the last candidate examined. The result is also
// delivered to the bound sink.
func (d *Detector) DetectCondition(cond image.Image, region *image.Rectangle, threshold int) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	var res Result
	if threshold < 0 || threshold > 100 {
		res = notFound(fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold))
	} else {
		res = d.matchVisual(cond, region, threshold)
	}
	return d.finish(metrics.ModeVisual, res, start, logrus.Fields{"threshold": threshold})
}

func (d *Detector) matchVisual(cond image.Image, region *image.Rectangle, threshold int) Result {
	needle, ratio, err := d.prepare(cond, region)
	if err != nil {
		return notFound(err)
	}

	bar := float64(100-threshold) / 100
	condFull := d.cond.FullColor()
	reference, _ := imaging.MeanColor(condFull, condFull.Bounds())
	screen := d.screen.FullColor()
	limit := d.maxCandidates
	if limit <= 0 {
		limit = d.search.Cells()
	}

	var res Result
	for {
		if d.search.Located() >= limit && !d.exhausted() {
			return withCause(res, fmt.Errorf("%w: %d candidates", ErrSearchCapReached, limit))
		}

		cand, ok := d.search.LocateNext(needle, ratio)
		if !ok {
			return withCause(res, ErrNoCandidate)
		}
		if !d.inScreen(cand) {
			continue
		}
		d.place(&res, cand)

		// Scores never increase, so nothing after this one can pass either.
		if cand.Score <= bar {
			return withCause(res, fmt.Errorf("%w: best remaining %.3f <= %.2f", ErrNoCandidate, cand.Score, bar))
		}

		mean, ok := imaging.MeanColor(screen, res.Area)
		if !ok {
			continue
		}
		diff := imaging.ColorDiff(mean, reference)
		if diff < float64(threshold) {
			res.Found = true
			return res
		}
		d.log.WithFields(logrus.Fields{
			"score":      cand.Score,
			"color_diff": diff,
			"delta_e":    mean.DistanceCIEDE2000(reference),
			"mean":       mean.Hex(),
			"reference":  reference.Hex(),
			"area":       res.Area,
		}).Trace("Candidate rejected on color")
	}
}

// withCause marks res as not found because of err, keeping the location of
// the last candidate examined.
func withCause(res Result, err error) Result {
	res.Found = false
	res.Err = err
	return res
}
