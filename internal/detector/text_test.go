package detector

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/condition-detector-mcp/internal/correlation"
	"github.com/ironsheep/condition-detector-mcp/internal/logger"
)

func textScreen() (*image.NRGBA, *image.NRGBA) {
	screen := noise(200, 200, 99)
	return screen, crop(screen, image.Rect(60, 70, 65, 75))
}

func TestDetectText_RetryCapIsExactlyOneHundred(t *testing.T) {
	screen, cond := textScreen()
	ocr := &fakeOCR{text: func(int) string { return "Loading..." }}
	sink := &recordingSink{}
	d := newTestDetector(t, screen, 200, sink, WithOCR(ocr.factory()))

	res := d.DetectText(cond, nil, "Victory")

	assert.False(t, res.Found)
	assert.ErrorIs(t, res.Err, ErrRetryBudgetExhausted)
	assert.Equal(t, DefaultMaxTextAttempts, ocr.calls)
	assert.Equal(t, 100, ocr.calls)
	assert.Equal(t, 1, sink.count())
}

func TestDetectText_FoundOnLaterAttempt(t *testing.T) {
	screen, cond := textScreen()
	ocr := &fakeOCR{text: func(call int) string {
		if call == 3 {
			return "Stage\nComplete"
		}
		return "Stage in progress"
	}}
	d := newTestDetector(t, screen, 200, nil, WithOCR(ocr.factory()))

	res := d.DetectText(cond, nil, "Stage Complete")
	require.True(t, res.Found, "reason: %s", res.Reason)
	assert.Equal(t, 3, ocr.calls)
	assert.Equal(t, 3, res.Candidates)
	assert.NotZero(t, res.Confidence)
}

func TestDetectText_FirstCandidateIsBestMatch(t *testing.T) {
	screen, cond := textScreen()
	ocr := &fakeOCR{text: func(int) string { return "Victory" }}
	d := newTestDetector(t, screen, 200, nil, WithOCR(ocr.factory()))

	res := d.DetectText(cond, nil, "Victory")
	require.True(t, res.Found)
	assert.Equal(t, 62, res.X)
	assert.Equal(t, 72, res.Y)
	assert.InDelta(t, 1.0, res.Confidence, 1e-4)
}

func TestDetectText_CustomBudgetAndTolerance(t *testing.T) {
	screen, cond := textScreen()

	ocr := &fakeOCR{text: func(int) string { return "nothing" }}
	d := newTestDetector(t, screen, 200, nil, WithOCR(ocr.factory()), WithMaxTextAttempts(7))
	res := d.DetectText(cond, nil, "Victory")
	assert.ErrorIs(t, res.Err, ErrRetryBudgetExhausted)
	assert.Equal(t, 7, ocr.calls)

	fuzzy := &fakeOCR{text: func(int) string { return "V1ctory!" }}
	d = newTestDetector(t, screen, 200, nil, WithOCR(fuzzy.factory()), WithTextMaxEdits(1))
	res = d.DetectText(cond, nil, "Victory")
	assert.True(t, res.Found)
	assert.Equal(t, 1, fuzzy.calls)
}

func TestDetectText_RecognitionErrorsCountAsAttempts(t *testing.T) {
	screen, cond := textScreen()
	ocr := &fakeOCR{err: errors.New("tesseract crashed")}
	d := newTestDetector(t, screen, 200, nil, WithOCR(ocr.factory()))

	res := d.DetectText(cond, nil, "Victory")
	assert.ErrorIs(t, res.Err, ErrRetryBudgetExhausted)
	assert.Equal(t, 100, ocr.calls)
}

// A map with fewer cells than the budget keeps retrying on its last
// candidate until every attempt is spent.
func TestDetectText_MapExhaustedBeforeBudget(t *testing.T) {
	screen := noise(10, 10, 5)
	cond := crop(screen, image.Rect(1, 1, 9, 9))
	ocr := &fakeOCR{text: func(int) string { return "" }}
	d := newTestDetector(t, screen, 100, nil, WithOCR(ocr.factory()))

	res := d.DetectText(cond, nil, "Victory")
	assert.ErrorIs(t, res.Err, ErrRetryBudgetExhausted)
	assert.NotErrorIs(t, res.Err, ErrNoCandidate)
	assert.Equal(t, 100, ocr.calls)
	assert.Equal(t, 1, res.Candidates, "a 3×3 map is cleared by the first suppression")
	assert.Equal(t, 5, res.X)
	assert.Equal(t, 5, res.Y)
}

func TestDetectText_SmallRegionSpendsWholeBudget(t *testing.T) {
	screen := noise(200, 200, 17)
	cond := crop(screen, image.Rect(70, 70, 90, 90))
	ocr := &fakeOCR{text: func(int) string { return "Loading..." }}
	d := newTestDetector(t, screen, 200, nil, WithOCR(ocr.factory()))

	region := image.Rect(50, 50, 110, 110)
	res := d.DetectText(cond, &region, "Victory")

	assert.ErrorIs(t, res.Err, ErrRetryBudgetExhausted)
	assert.Equal(t, 100, ocr.calls)
	assert.Less(t, res.Candidates, 100)
	assert.Contains(t, res.Reason, "100 attempts")
}

// offscreenEngine returns a map whose only live cells lie past the right
// edge of the haystack.
type offscreenEngine struct{}

func (offscreenEngine) ComputeMap(h, n *image.Gray, dst *correlation.Map) (*correlation.Map, error) {
	w := h.Bounds().Dx() - n.Bounds().Dx() + 1
	hh := h.Bounds().Dy() - n.Bounds().Dy() + 1
	m := correlation.NewMap(w+20, hh)
	for y := 0; y < hh; y++ {
		for x := 0; x < w+20; x++ {
			if x < w {
				m.Set(x, y, correlation.Suppressed)
			} else {
				m.Set(x, y, 0.9)
			}
		}
	}
	return m, nil
}

func TestDetectText_NoCandidateInsideScreen(t *testing.T) {
	screen, cond := textScreen()
	ocr := &fakeOCR{text: func(int) string { return "Victory" }}
	d := newTestDetector(t, screen, 200, nil, WithOCR(ocr.factory()), WithEngine(offscreenEngine{}))

	res := d.DetectText(cond, nil, "Victory")
	assert.ErrorIs(t, res.Err, ErrNoTextCandidate)
	assert.Zero(t, ocr.calls)
}

// wordOCR is a fakeOCR that also reports word boxes.
type wordOCR struct {
	*fakeOCR
	words []Word
}

func (w *wordOCR) Words(image.Image) ([]Word, error) {
	return w.words, nil
}

func TestDetectText_ReportsMatchedWords(t *testing.T) {
	screen, cond := textScreen()
	ocr := &wordOCR{
		fakeOCR: &fakeOCR{text: func(int) string { return "Menu\nStage Complete" }},
		words: []Word{
			{Text: "Menu", Confidence: 0.9, Bounds: Bounds{X1: 0, Y1: 0, X2: 30, Y2: 10}},
			{Text: "Stage", Confidence: 0.95, Bounds: Bounds{X1: 10, Y1: 40, X2: 50, Y2: 52}},
			{Text: "Complete", Confidence: 0.93, Bounds: Bounds{X1: 55, Y1: 40, X2: 120, Y2: 52}},
		},
	}
	factory := func() (TextRecognizerCloser, error) { return ocr, nil }
	d := newTestDetector(t, screen, 200, nil, WithOCR(factory))

	res := d.DetectText(cond, nil, "Stage Complete")
	require.True(t, res.Found, "reason: %s", res.Reason)
	require.Len(t, res.Words, 2)
	assert.Equal(t, "Stage", res.Words[0].Text)
	assert.Equal(t, Bounds{X1: 55, Y1: 40, X2: 120, Y2: 52}, res.Words[1].Bounds)

	plain := &fakeOCR{text: func(int) string { return "Stage Complete" }}
	d = newTestDetector(t, screen, 200, nil, WithOCR(plain.factory()))
	res = d.DetectText(cond, nil, "Stage Complete")
	require.True(t, res.Found)
	assert.Nil(t, res.Words)
}

func TestDetectText_Rejections(t *testing.T) {
	screen, cond := textScreen()
	sink := &recordingSink{}

	noOCR := newTestDetector(t, screen, 200, sink)
	res := noOCR.DetectText(cond, nil, "Victory")
	assert.ErrorIs(t, res.Err, ErrNotInitialized)

	ocr := &fakeOCR{text: func(int) string { return "Victory" }}
	d := newTestDetector(t, screen, 200, sink, WithOCR(ocr.factory()))

	assert.ErrorIs(t, d.DetectText(cond, nil, "  \n ").Err, ErrEmptyText)

	outside := image.Rect(150, 150, 250, 250)
	assert.ErrorIs(t, d.DetectText(cond, &outside, "Victory").Err, ErrInvalidRegion)

	assert.Zero(t, ocr.calls)
	assert.Equal(t, 3, sink.count())
}

func TestDetectText_NotInitialized(t *testing.T) {
	ocr := &fakeOCR{text: func(int) string { return "Victory" }}
	d := New(WithLogger(logger.Discard()), WithOCR(ocr.factory()))
	screen, cond := textScreen()
	d.SetScreenMetrics("main", screen, 200)
	require.NoError(t, d.SetScreenImage(screen))

	res := d.DetectText(cond, nil, "Victory")
	assert.ErrorIs(t, res.Err, ErrNotInitialized)
	assert.Zero(t, ocr.calls)
}
