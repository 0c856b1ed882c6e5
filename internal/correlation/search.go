package correlation

import (
	"errors"
	"image"

	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
)

// Candidate is one proposed match taken from a correlation map.
//
// Scaled and FullSize are relative to the top-left corner of the searched
// area; callers add the region origin in the matching space.
type Candidate struct {
	MapX, MapY int
	Score      float64
	Scaled     imaging.Rect
	FullSize   imaging.Rect
}

// Search walks a correlation map from the best score downwards.
//
// Each LocateNext call returns the current maximum and then suppresses it
// together with a neighbourhood the size of the needle, so one search
// returns at most Cells candidates, in non-increasing score order, never
// twice from the same cell.
type Search struct {
	engine  Engine
	m       *Map
	located int
	maxVal  float64
}

// NewSearch creates a search backed by engine.
func NewSearch(engine Engine) *Search {
	return &Search{engine: engine, m: &Map{}}
}

// Init computes a fresh map for haystack and needle, reusing the previous
// map's storage.
func (s *Search) Init(haystack, needle *image.Gray) error {
	if s.engine == nil {
		return errors.New("correlation engine not configured")
	}
	s.Reset()
	m, err := s.engine.ComputeMap(haystack, needle, s.m)
	if err != nil {
		return err
	}
	s.m = m
	return nil
}

// Reset empties the map and the candidate count.
func (s *Search) Reset() {
	s.m.resize(0, 0)
	s.located = 0
	s.maxVal = float64(Suppressed)
}

// LocateNext returns the best remaining candidate for a needle of the given
// scaled size. It reports false once every cell has been suppressed.
func (s *Search) LocateNext(needle image.Point, ratio float64) (Candidate, bool) {
	x, y, score, ok := s.m.Max()
	if !ok {
		return Candidate{}, false
	}

	s.m.SuppressAround(x, y, needle.X/2, needle.Y/2)
	s.located++
	s.maxVal = float64(score)

	scaled := imaging.ScaledRect(image.Rect(x, y, x+needle.X, y+needle.Y))
	return Candidate{
		MapX:     x,
		MapY:     y,
		Score:    float64(score),
		Scaled:   scaled,
		FullSize: scaled.ToFullSize(ratio),
	}, true
}

// MaxVal returns the score of the last located candidate.
func (s *Search) MaxVal() float64 { return s.maxVal }

// Located returns how many candidates were produced since Init.
func (s *Search) Located() int { return s.located }

// Cells returns the number of cells in the current map.
func (s *Search) Cells() int { return s.m.Cells() }

// Map exposes the current map. It is overwritten by the next Init.
func (s *Search) Map() *Map { return s.m }
