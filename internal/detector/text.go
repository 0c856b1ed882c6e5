package detector

import (
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/metrics"
	"github.com/ironsheep/condition-detector-mcp/internal/textmatch"
)

// DetectText looks for cond inside region like DetectCondition, but accepts
// a candidate when the text recognized on the full-size screen image
// contains target.
//
// # Parameters
//
//   - cond: the condition image locating where the text is expected
//   - region: full-size screen rectangle to search, nil for the whole screen
//   - target: text that must appear in the recognized text; whitespace is
//     normalized and up to WithTextMaxEdits edits are tolerated
//
// # Retry Budget
//
// Every recognition attempt is tied to a candidate taken best first from the
// correlation map. When the map runs out before the budget, the last
// candidate is kept and recognition is retried on it, so a query that never
// matches always spends the full budget (DefaultMaxTextAttempts unless
// WithMaxTextAttempts says otherwise). Recognition errors count as attempts.
//
// # Returns
//
// A Result with Found set on a match, located at the accepted candidate.
// When the recognizer implements WordRecognizer, Result.Words lists the
// words that belong to target. Rejections carry ErrRetryBudgetExhausted,
// ErrNoTextCandidate, ErrEmptyText or one of the shared validation errors.
// The result is also delivered to the bound sink.
func (d *Detector) DetectText(cond image.Image, region *image.Rectangle, target string) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	var res Result
	switch {
	case textmatch.Normalize(target) == "":
		res = notFound(ErrEmptyText)
	case d.initialized && d.ocr == nil:
		res = notFound(fmt.Errorf("%w: no text recognizer configured", ErrNotInitialized))
	default:
		res = d.matchText(cond, region, target)
	}
	return d.finish(metrics.ModeText, res, start, logrus.Fields{"target": target})
}

func (d *Detector) matchText(cond image.Image, region *image.Rectangle, target string) Result {
	needle, ratio, err := d.prepare(cond, region)
	if err != nil {
		return notFound(err)
	}

	screen := d.screen.FullColor()
	var (
		res      Result
		placed   bool
		attempts int
	)
	for attempts < d.maxTextAttempts {
		if cand, ok := d.search.LocateNext(needle, ratio); ok {
			if !d.inScreen(cand) {
				continue
			}
			d.place(&res, cand)
			placed = true
		} else if !placed {
			return withCause(res, ErrNoTextCandidate)
		}

		attempts++
		d.metrics.IncrementOCRAttempts()
		text, err := d.ocr.ExtractText(screen)
		if err != nil {
			d.log.WithError(err).WithField("attempt", attempts).Warn("Text recognition failed")
			continue
		}
		if textmatch.Contains(text, target, d.textMaxEdits) {
			res.Found = true
			res.Words = d.matchedWords(screen, target)
			return res
		}
	}
	return withCause(res, fmt.Errorf("%w: %d attempts", ErrRetryBudgetExhausted, attempts))
}

// matchedWords returns the recognized words of screen that occur in target.
func (d *Detector) matchedWords(screen image.Image, target string) []Word {
	wr, ok := d.ocr.(WordRecognizer)
	if !ok {
		return nil
	}
	words, err := wr.Words(screen)
	if err != nil {
		d.log.WithError(err).Warn("Word boxes unavailable")
		return nil
	}

	var out []Word
	for _, w := range words {
		if textmatch.Contains(target, w.Text, 0) {
			out = append(out, w)
		}
	}
	return out
}
