package correlation

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noiseGray fills a w×h gray image with a deterministic pseudo-random pattern.
func noiseGray(w, h int, seed uint32) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	s := seed
	for i := range img.Pix {
		s = s*1664525 + 1013904223
		img.Pix[i] = uint8(s >> 24)
	}
	return img
}

func flatGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// cut copies a w×h block of src starting at (x, y) into a new image.
func cut(src *image.Gray, x, y, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			dst.SetGray(i, j, src.GrayAt(x+i, y+j))
		}
	}
	return dst
}

func TestNCC_FindsExactPatch(t *testing.T) {
	haystack := noiseGray(60, 40, 7)
	needle := cut(haystack, 23, 11, 9, 7)

	m, err := NewNCC().ComputeMap(haystack, needle, nil)
	require.NoError(t, err)

	assert.Equal(t, 52, m.Width)
	assert.Equal(t, 34, m.Height)

	x, y, score, ok := m.Max()
	require.True(t, ok)
	assert.Equal(t, 23, x)
	assert.Equal(t, 11, y)
	assert.InDelta(t, 1.0, score, 1e-4)

	for _, v := range m.Scores {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestNCC_InvertedPatchScoresMinusOne(t *testing.T) {
	needle := noiseGray(8, 8, 3)
	haystack := image.NewGray(needle.Bounds())
	for i, v := range needle.Pix {
		haystack.Pix[i] = 255 - v
	}

	m, err := NewNCC().ComputeMap(haystack, needle, nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.Cells())
	assert.InDelta(t, -1.0, m.Scores[0], 1e-4)
}

func TestNCC_BrightnessInvariant(t *testing.T) {
	needle := noiseGray(10, 10, 11)
	haystack := image.NewGray(needle.Bounds())
	for i, v := range needle.Pix {
		haystack.Pix[i] = v/2 + 60
	}

	m, err := NewNCC().ComputeMap(haystack, needle, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Scores[0], 1e-2)
}

func TestNCC_FlatRules(t *testing.T) {
	tests := []struct {
		name     string
		haystack *image.Gray
		needle   *image.Gray
		want     float32
	}{
		{"flat vs same flat", flatGray(5, 5, 90), flatGray(5, 5, 90), 1},
		{"flat vs other flat", flatGray(5, 5, 90), flatGray(5, 5, 200), 0},
		{"flat needle vs texture", noiseGray(5, 5, 1), flatGray(5, 5, 90), 0},
		{"texture vs flat window", flatGray(5, 5, 90), noiseGray(5, 5, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewNCC().ComputeMap(tt.haystack, tt.needle, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Scores[0])
		})
	}
}

func TestNCC_SubImageHaystack(t *testing.T) {
	full := noiseGray(80, 80, 5)
	needle := cut(full, 50, 45, 6, 6)
	sub := full.SubImage(image.Rect(40, 40, 70, 70)).(*image.Gray)

	m, err := NewNCC().ComputeMap(sub, needle, nil)
	require.NoError(t, err)

	x, y, score, ok := m.Max()
	require.True(t, ok)
	assert.Equal(t, image.Pt(10, 5), image.Pt(x, y), "map cells are relative to the sub-image origin")
	assert.InDelta(t, 1.0, score, 1e-4)
}

func TestNCC_ReusesDestination(t *testing.T) {
	e := NewNCC()
	dst := NewMap(100, 100)
	backing := &dst.Scores[0]

	m, err := e.ComputeMap(noiseGray(30, 30, 9), noiseGray(5, 5, 2), dst)
	require.NoError(t, err)
	assert.Same(t, dst, m)
	assert.Same(t, backing, &m.Scores[0])
	assert.Len(t, m.Scores, 26*26)
}

func TestNCC_Errors(t *testing.T) {
	e := NewNCC()

	_, err := e.ComputeMap(nil, flatGray(2, 2, 0), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = e.ComputeMap(flatGray(4, 4, 0), image.NewGray(image.Rect(0, 0, 0, 3)), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = e.ComputeMap(flatGray(4, 4, 0), flatGray(5, 2, 0), nil)
	assert.ErrorIs(t, err, ErrNeedleTooLarge)
}
