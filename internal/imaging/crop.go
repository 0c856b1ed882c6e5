package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// SnapshotResult contains a cropped area encoded as PNG.
type SnapshotResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Snapshot extracts r from img and returns it as a base64 PNG. It is used to
// show callers the exact area a condition matched.
func Snapshot(img image.Image, r image.Rectangle) (*SnapshotResult, error) {
	bounds := img.Bounds()

	if r.Empty() {
		return nil, fmt.Errorf("invalid snapshot area %v", r)
	}
	if !r.In(bounds) {
		return nil, fmt.Errorf("snapshot area %v outside image bounds %v", r, bounds)
	}

	cropped := imaging.Crop(img, r)

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return &SnapshotResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
