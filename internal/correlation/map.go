package correlation

import (
	"fmt"
	"math"
)

// Suppressed marks a map cell that has already been visited. It is lower
// than any score the engine can produce.
const Suppressed float32 = -math.MaxFloat32

// Map is a row-major grid of correlation scores. Cell (x, y) holds the score
// of the needle placed with its top-left corner at (x, y) inside the
// haystack.
type Map struct {
	Width  int
	Height int
	Scores []float32
}

// NewMap allocates a map with every cell set to zero.
func NewMap(width, height int) *Map {
	m := &Map{}
	m.resize(width, height)
	return m
}

// Cells returns the number of cells in the map.
func (m *Map) Cells() int {
	if m == nil {
		return 0
	}
	return m.Width * m.Height
}

// At returns the score at (x, y). Coordinates outside the map read as
// Suppressed.
func (m *Map) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Suppressed
	}
	return m.Scores[y*m.Width+x]
}

// Set stores a score at (x, y). Coordinates outside the map are ignored.
func (m *Map) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Scores[y*m.Width+x] = v
}

// Max returns the position and value of the highest non-suppressed cell.
// Ties resolve to the first cell in row-major order. It reports false when
// every cell is suppressed.
func (m *Map) Max() (x, y int, score float32, ok bool) {
	best := -1
	bestScore := Suppressed
	for i, v := range m.Scores {
		if v > bestScore {
			best, bestScore = i, v
		}
	}
	if best < 0 {
		return 0, 0, Suppressed, false
	}
	return best % m.Width, best / m.Width, bestScore, true
}

// SuppressAround marks every cell within radius (rx, ry) of (x, y) as
// Suppressed, clipped to the map. The cell itself is always suppressed.
func (m *Map) SuppressAround(x, y, rx, ry int) int {
	rx = max(rx, 0)
	ry = max(ry, 0)
	x0, x1 := max(x-rx, 0), min(x+rx, m.Width-1)
	y0, y1 := max(y-ry, 0), min(y+ry, m.Height-1)

	n := 0
	for yy := y0; yy <= y1; yy++ {
		row := m.Scores[yy*m.Width : (yy+1)*m.Width]
		for xx := x0; xx <= x1; xx++ {
			if row[xx] != Suppressed {
				row[xx] = Suppressed
				n++
			}
		}
	}
	return n
}

// Remaining counts the cells that are not suppressed.
func (m *Map) Remaining() int {
	n := 0
	for _, v := range m.Scores {
		if v != Suppressed {
			n++
		}
	}
	return n
}

func (m *Map) String() string {
	return fmt.Sprintf("map{%dx%d}", m.Width, m.Height)
}

// resize sets the map dimensions, reusing the score storage when possible.
// Scores are not cleared.
func (m *Map) resize(width, height int) {
	need := width * height
	if cap(m.Scores) < need {
		m.Scores = make([]float32, need)
	}
	m.Scores = m.Scores[:need]
	m.Width = width
	m.Height = height
}
