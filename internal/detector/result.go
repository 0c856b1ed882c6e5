package detector

import (
	"image"
)

// Result is the outcome of one detection call.
//
// X and Y are full-size screen coordinates of the center of the match.
// Confidence is the correlation score of the reported candidate. When Found
// is false, X, Y and Confidence describe the last candidate examined, if any,
// and carry no meaning otherwise.
type Result struct {
	Found      bool    `json:"found"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Candidates int     `json:"candidates"`

	// Words lists the recognized words that make up the target text, with
	// their screen boxes. Only text detection fills it, and only when the
	// recognizer can report word boxes.
	Words []Word `json:"words,omitempty"`

	// Area is the full-size screen rectangle of the reported candidate.
	Area image.Rectangle `json:"-"`
	// Err is the rejection cause, nil when Found.
	Err error `json:"-"`
}

// ResultSink receives exactly one Result per detection call.
type ResultSink interface {
	Deliver(Result)
}

// TextRecognizer extracts UTF-8 text from an image.
type TextRecognizer interface {
	ExtractText(img image.Image) (string, error)
}

// Bounds is a full-size screen box with exclusive right and bottom edges.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Word is one recognized word.
type Word struct {
	Text string `json:"text"`

	// Confidence is the recognition confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// WordRecognizer is implemented by recognizers that can locate individual
// words. DetectText uses it to report where the matched text is.
type WordRecognizer interface {
	Words(img image.Image) ([]Word, error)
}

// TextRecognizerCloser is a TextRecognizer holding resources that must be
// released.
type TextRecognizerCloser interface {
	TextRecognizer
	Close() error
}

// OCRFactory opens a recognizer. The detector calls it from Initialize and
// closes the recognizer in Release.
type OCRFactory func() (TextRecognizerCloser, error)

// NopCloser wraps a TextRecognizer that has nothing to release.
func NopCloser(r TextRecognizer) TextRecognizerCloser {
	return nopCloser{r}
}

type nopCloser struct {
	TextRecognizer
}

func (nopCloser) Close() error { return nil }

func notFound(err error) Result {
	return Result{Err: err, Reason: err.Error()}
}
