// Package ocr recognizes screen text with Tesseract (via gosseract/v2).
//
// An Engine keeps one Tesseract client open for the lifetime of a detector,
// so language data is loaded once instead of per recognition. Images are
// converted to grayscale and handed to Tesseract as in-memory PNG data; no
// temporary files are written.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Language codes follow Tesseract ("eng", "deu", "chi_sim", "deu+eng").
// The default is English.
//
// # Detector Integration
//
// Factory adapts an Engine configuration to detector.OCRFactory. The
// detector opens the engine in Initialize and closes it in Release. Engine
// also implements detector.WordRecognizer, so successful text detections
// report the boxes of the matched words.
package ocr
