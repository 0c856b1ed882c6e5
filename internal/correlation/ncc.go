package correlation

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrEmptyImage is returned when the haystack or needle has no pixels.
	ErrEmptyImage = errors.New("empty image")
	// ErrNeedleTooLarge is returned when the needle does not fit the haystack.
	ErrNeedleTooLarge = errors.New("needle larger than haystack")
)

// flatEpsilon is the variance sum below which a window counts as flat.
const flatEpsilon = 1e-6

// Engine computes a correlation map between two grayscale buffers.
//
// Implementations write into dst when it is non-nil, reusing its storage,
// and return the map that was filled.
type Engine interface {
	ComputeMap(haystack, needle *image.Gray, dst *Map) (*Map, error)
}

// NCC computes normalized correlation coefficient maps, the same measure as
// OpenCV's TM_CCOEFF_NORMED:
//
//	R(x,y) = Σ(T'·I') / sqrt(ΣT'² · ΣI'²)
//
// where T' and I' are the template and window with their means removed.
// Window sums come from summed-area tables so only the cross term is computed
// per pixel.
//
// A flat needle against a flat window of the same intensity scores 1. Any
// other comparison involving a flat side scores 0.
//
// NCC keeps its integral tables between calls and is not safe for
// concurrent use.
type NCC struct {
	integral   []float64
	integralSq []float64
	needle     []float64
}

// NewNCC returns an NCC engine with empty buffers.
func NewNCC() *NCC {
	return &NCC{}
}

// ComputeMap implements Engine.
func (e *NCC) ComputeMap(haystack, needle *image.Gray, dst *Map) (*Map, error) {
	if haystack == nil || needle == nil {
		return nil, ErrEmptyImage
	}
	hb, nb := haystack.Bounds(), needle.Bounds()
	W, H := hb.Dx(), hb.Dy()
	w, h := nb.Dx(), nb.Dy()
	if W <= 0 || H <= 0 || w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}
	if w > W || h > H {
		return nil, fmt.Errorf("%w: needle %dx%d, haystack %dx%d", ErrNeedleTooLarge, w, h, W, H)
	}

	if dst == nil {
		dst = &Map{}
	}
	dst.resize(W-w+1, H-h+1)

	e.buildIntegrals(haystack)
	sumT, sqT := e.loadNeedle(needle)

	n := float64(w * h)
	meanT := sumT / n
	varT := sqT - sumT*sumT/n
	flatT := varT <= flatEpsilon*n

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			sumF := e.windowSum(e.integral, W, x, y, w, h)
			sqF := e.windowSum(e.integralSq, W, x, y, w, h)
			varF := sqF - sumF*sumF/n
			flatF := varF <= flatEpsilon*n

			var score float64
			switch {
			case flatT && flatF:
				if math.Abs(sumF/n-meanT) < 0.5 {
					score = 1
				}
			case flatT || flatF:
				score = 0
			default:
				cross := e.crossSum(haystack, x, y, w, h)
				score = (cross - sumF*meanT) / math.Sqrt(varT*varF)
				score = math.Max(-1, math.Min(1, score))
			}
			dst.Scores[y*dst.Width+x] = float32(score)
		}
	}
	return dst, nil
}

// buildIntegrals fills the summed-area tables of the haystack. The tables
// are (W+1)×(H+1) with a zero first row and column.
func (e *NCC) buildIntegrals(img *image.Gray) {
	b := img.Bounds()
	W, H := b.Dx(), b.Dy()
	stride := W + 1
	need := stride * (H + 1)
	e.integral = grow(e.integral, need)
	e.integralSq = grow(e.integralSq, need)
	clear(e.integral[:stride])
	clear(e.integralSq[:stride])

	for y := 0; y < H; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		var rowSum, rowSq float64
		cur := (y + 1) * stride
		prev := y * stride
		e.integral[cur] = 0
		e.integralSq[cur] = 0
		for x := 0; x < W; x++ {
			v := float64(row[x])
			rowSum += v
			rowSq += v * v
			e.integral[cur+x+1] = e.integral[prev+x+1] + rowSum
			e.integralSq[cur+x+1] = e.integralSq[prev+x+1] + rowSq
		}
	}
}

// loadNeedle copies the needle into a dense buffer and returns its sum and
// sum of squares.
func (e *NCC) loadNeedle(img *image.Gray) (sum, sq float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	e.needle = grow(e.needle, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			v := float64(row[x])
			e.needle[y*w+x] = v
			sum += v
			sq += v * v
		}
	}
	return sum, sq
}

// windowSum returns the sum over the w×h window at (x, y) of a
// (W+1)-strided integral table.
func (e *NCC) windowSum(t []float64, W, x, y, w, h int) float64 {
	stride := W + 1
	a := t[y*stride+x]
	b := t[y*stride+x+w]
	c := t[(y+h)*stride+x]
	d := t[(y+h)*stride+x+w]
	return d - b - c + a
}

// crossSum returns Σ I(x+i, y+j)·T(i, j) for the window at (x, y).
func (e *NCC) crossSum(img *image.Gray, x, y, w, h int) float64 {
	b := img.Bounds()
	var sum float64
	for j := 0; j < h; j++ {
		row := img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y+j):]
		t := e.needle[j*w : (j+1)*w]
		for i, tv := range t {
			sum += float64(row[i]) * tv
		}
	}
	return sum
}

func grow(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
