package imaging

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// MeanColor returns the average color of img inside r, with each channel in
// [0, 1]. Alpha is ignored. It reports false when r does not overlap img.
func MeanColor(img image.Image, r image.Rectangle) (colorful.Color, bool) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return colorful.Color{}, false
	}

	var sumR, sumG, sumB float64
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			off := nrgba.PixOffset(r.Min.X, y)
			row := nrgba.Pix[off : off+r.Dx()*4]
			for i := 0; i < len(row); i += 4 {
				sumR += float64(row[i])
				sumG += float64(row[i+1])
				sumB += float64(row[i+2])
			}
		}
		sumR /= 255
		sumG /= 255
		sumB /= 255
	} else {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				cr, cg, cb, _ := img.At(x, y).RGBA()
				sumR += float64(cr) / 65535
				sumG += float64(cg) / 65535
				sumB += float64(cb) / 65535
			}
		}
	}

	n := float64(r.Dx() * r.Dy())
	return colorful.Color{R: sumR / n, G: sumG / n, B: sumB / n}, true
}

// ColorDiff compares two mean colors on a 0-100 scale: the absolute
// per-channel differences summed over R, G and B, normalized so that black
// against white scores 100.
func ColorDiff(a, b colorful.Color) float64 {
	diff := math.Abs(a.R-b.R) + math.Abs(a.G-b.G) + math.Abs(a.B-b.B)
	return diff * 100 / 3
}
