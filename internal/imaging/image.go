package imaging

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrInvalidRatio is returned when an image is processed with a ratio
// outside (0, 1].
var ErrInvalidRatio = errors.New("invalid scale ratio")

// Image holds one picture in the representations detection works on:
// full-size color, scaled color and scaled grayscale, plus an optional crop.
//
// Backing buffers are reused between Process calls when they are large
// enough, which keeps allocation flat when a screen is polled many times per
// second. Every Process call bumps the generation counter and invalidates
// the current crop.
//
// Image is not safe for concurrent use.
type Image struct {
	fullColor   *image.NRGBA
	scaledColor *image.NRGBA
	scaledGray  *image.Gray
	ratio       float64
	generation  uint64
	crop        crop
}

// crop is a view over the owning image's buffers, valid only for the
// generation it was cut from.
type crop struct {
	generation uint64
	region     Region
	scaledGray *image.Gray
	fullColor  *image.NRGBA
}

// NewImage returns an empty Image. Process must be called before use.
func NewImage() *Image {
	return &Image{}
}

// Process ingests src at the given scale ratio, replacing the content of
// every buffer and invalidating the current crop.
//
// The full-size color buffer is a copy of src with its origin moved to
// (0,0). The scaled buffers are round(size × ratio) on each side, at least
// one pixel, resampled with a bilinear kernel. The grayscale buffer is the
// luma of the scaled color buffer.
//
// # Parameters
//
//   - src: any decoded image; its bounds need not start at (0,0)
//   - ratio: scale factor in (0, 1], usually from ScaleRatios
//
// # Errors
//
//   - Returns error if src is nil or has empty bounds
//   - Returns ErrInvalidRatio if ratio is outside (0, 1]
//
// Buffers are reused when their capacity allows, so the slices returned by
// the accessors before this call may be overwritten.
func (img *Image) Process(src image.Image, ratio float64) error {
	if src == nil {
		return errors.New("nil source image")
	}
	if !ValidRatio(ratio) {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, ratio)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("empty source image %v", b)
	}

	img.fullColor = reuseNRGBA(img.fullColor, w, h)
	draw.Draw(img.fullColor, img.fullColor.Bounds(), src, b.Min, draw.Src)

	sw := max(ScaleLength(w, ratio), 1)
	sh := max(ScaleLength(h, ratio), 1)
	img.scaledColor = reuseNRGBA(img.scaledColor, sw, sh)
	if sw == w && sh == h {
		copy(img.scaledColor.Pix, img.fullColor.Pix)
	} else {
		draw.BiLinear.Scale(img.scaledColor, img.scaledColor.Bounds(), img.fullColor, img.fullColor.Bounds(), draw.Src, nil)
	}
	img.scaledGray = reuseGray(img.scaledGray, sw, sh)
	draw.Draw(img.scaledGray, img.scaledGray.Bounds(), img.scaledColor, image.Point{}, draw.Src)

	img.ratio = ratio
	img.generation++
	img.crop = crop{}
	return nil
}

// SetCropping cuts a view restricted to region, intersected with the image
// bounds in each space. The view shares pixels with the image.
func (img *Image) SetCropping(region Region) {
	img.crop = crop{generation: img.generation, region: region}
	if img.scaledGray == nil {
		return
	}
	scaled := region.Scaled.Intersect(img.scaledGray.Bounds())
	full := region.FullSize.Intersect(img.fullColor.Bounds())
	img.crop.scaledGray = img.scaledGray.SubImage(scaled).(*image.Gray)
	img.crop.fullColor = img.fullColor.SubImage(full).(*image.NRGBA)
}

// CroppedScaledGray returns the scaled grayscale crop. It reports false when
// no crop was set since the last Process call.
func (img *Image) CroppedScaledGray() (*image.Gray, bool) {
	if !img.cropValid() {
		return nil, false
	}
	return img.crop.scaledGray, true
}

// CroppedFullColor returns the full-size color crop. It reports false when
// no crop was set since the last Process call.
func (img *Image) CroppedFullColor() (*image.NRGBA, bool) {
	if !img.cropValid() {
		return nil, false
	}
	return img.crop.fullColor, true
}

func (img *Image) cropValid() bool {
	return img.crop.scaledGray != nil && img.crop.generation == img.generation
}

// FullSizeContains reports whether r lies entirely inside the full-size
// buffer. Empty rectangles are never contained.
func (img *Image) FullSizeContains(r Rect) bool {
	if img.fullColor == nil || r.Space != FullSize || r.Empty() {
		return false
	}
	return r.In(img.fullColor.Bounds())
}

// ScaledContains reports whether r lies entirely inside the scaled buffer.
// Empty rectangles are never contained.
func (img *Image) ScaledContains(r Rect) bool {
	if img.scaledGray == nil || r.Space != Scaled || r.Empty() {
		return false
	}
	return r.In(img.scaledGray.Bounds())
}

// CroppedScaledContains reports whether a scaled size fits inside the
// current crop.
func (img *Image) CroppedScaledContains(size image.Point) bool {
	if !img.cropValid() || size.X <= 0 || size.Y <= 0 {
		return false
	}
	b := img.crop.scaledGray.Bounds()
	return size.X <= b.Dx() && size.Y <= b.Dy()
}

// FullColor returns the full-size color buffer.
func (img *Image) FullColor() *image.NRGBA { return img.fullColor }

// ScaledColor returns the scaled color buffer.
func (img *Image) ScaledColor() *image.NRGBA { return img.scaledColor }

// ScaledGray returns the scaled grayscale buffer.
func (img *Image) ScaledGray() *image.Gray { return img.scaledGray }

// FullBounds returns the full-size bounds, empty before the first Process.
func (img *Image) FullBounds() image.Rectangle {
	if img.fullColor == nil {
		return image.Rectangle{}
	}
	return img.fullColor.Bounds()
}

// ScaledBounds returns the scaled bounds, empty before the first Process.
func (img *Image) ScaledBounds() image.Rectangle {
	if img.scaledGray == nil {
		return image.Rectangle{}
	}
	return img.scaledGray.Bounds()
}

// FullSize returns the full-size dimensions.
func (img *Image) FullSize() image.Point { return img.FullBounds().Size() }

// ScaledSize returns the scaled dimensions.
func (img *Image) ScaledSize() image.Point { return img.ScaledBounds().Size() }

// Ratio returns the ratio used by the last Process call.
func (img *Image) Ratio() float64 { return img.ratio }

// Generation returns the number of Process calls so far.
func (img *Image) Generation() uint64 { return img.generation }

// reuseNRGBA returns an NRGBA of the requested size, reusing buf's pixel
// storage when it has enough capacity.
func reuseNRGBA(buf *image.NRGBA, w, h int) *image.NRGBA {
	need := w * h * 4
	if buf == nil || cap(buf.Pix) < need {
		return image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	buf.Pix = buf.Pix[:need]
	buf.Stride = w * 4
	buf.Rect = image.Rect(0, 0, w, h)
	return buf
}

// reuseGray is reuseNRGBA for single channel buffers.
func reuseGray(buf *image.Gray, w, h int) *image.Gray {
	need := w * h
	if buf == nil || cap(buf.Pix) < need {
		return image.NewGray(image.Rect(0, 0, w, h))
	}
	buf.Pix = buf.Pix[:need]
	buf.Stride = w
	buf.Rect = image.Rect(0, 0, w, h)
	return buf
}
