package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/anthonynsimon/bild/effect"
	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/detector"
)

// DefaultLanguage is used when Config.Language is empty.
const DefaultLanguage = "eng"

// ErrClosed is returned by an Engine after Close.
var ErrClosed = errors.New("ocr engine closed")

// Config selects the Tesseract language data.
type Config struct {
	// Language is a Tesseract language code such as "eng" or "deu+eng".
	Language string `mapstructure:"language"`

	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty means the Tesseract default.
	TessdataPrefix string `mapstructure:"tessdata_prefix"`
}

// Engine is a long-lived Tesseract client. One Engine serves one detector
// for its whole lifecycle, so language data is loaded once.
//
// Engine is safe for concurrent use; calls are serialized because the
// underlying client is not.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	lang   string
	closed bool
}

// NewEngine opens a Tesseract client for cfg. The language data is checked
// eagerly so a missing traineddata file fails here rather than on the first
// recognition.
func NewEngine(cfg Config) (*Engine, error) {
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language %q: %w", lang, err)
	}

	// A 1x1 blank page forces Tesseract to initialize with the language.
	blank, err := encodePNG(image.NewGray(image.Rect(0, 0, 1, 1)))
	if err != nil {
		client.Close()
		return nil, err
	}
	if err := client.SetImageFromBytes(blank); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize tesseract: %w", err)
	}
	if _, err := client.Text(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize tesseract for %q: %w", lang, err)
	}

	return &Engine{client: client, lang: lang}, nil
}

// Factory returns a detector.OCRFactory that opens an Engine for cfg and
// logs the Tesseract version and language once it is ready.
func Factory(cfg Config, log *logrus.Entry) detector.OCRFactory {
	return func() (detector.TextRecognizerCloser, error) {
		e, err := NewEngine(cfg)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"tesseract": e.Version(),
			"language":  e.Language(),
		}).Info("Text recognizer ready")
		return e, nil
	}
}

// Language returns the language the engine was opened with.
func (e *Engine) Language() string {
	return e.lang
}

// Version returns the Tesseract library version.
func (e *Engine) Version() string {
	return e.client.Version()
}

// ExtractText recognizes all text in img.
//
// The image is converted to grayscale and handed to Tesseract as in-memory
// PNG data. Tesseract segments the page itself, so img may be a whole
// screen capture.
//
// # Returns
//
// The recognized text, including line breaks as Tesseract reports them.
// A blank image yields an empty string and no error.
//
// # Errors
//
//   - Returns ErrClosed after Close
//   - Returns error if img is nil or empty
//   - Returns error if Tesseract fails on the image
func (e *Engine) ExtractText(img image.Image) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.setImage(img); err != nil {
		return "", err
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Words recognizes img word by word and implements detector.WordRecognizer.
// Empty words are dropped. Bounds are in img's coordinate space.
func (e *Engine) Words(img image.Image) ([]detector.Word, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.setImage(img); err != nil {
		return nil, err
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get word boxes: %w", err)
	}

	origin := img.Bounds().Min
	words := make([]detector.Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, detector.Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: detector.Bounds{
				X1: box.Box.Min.X + origin.X,
				Y1: box.Box.Min.Y + origin.Y,
				X2: box.Box.Max.X + origin.X,
				Y2: box.Box.Max.Y + origin.Y,
			},
		})
	}
	return words, nil
}

// Close releases the Tesseract client. Closing twice is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.client.Close()
}

func (e *Engine) setImage(img image.Image) error {
	if e.closed {
		return ErrClosed
	}
	if img == nil || img.Bounds().Empty() {
		return errors.New("empty image")
	}
	data, err := encodePNG(effect.Grayscale(img))
	if err != nil {
		return err
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return fmt.Errorf("failed to set image: %w", err)
	}
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
