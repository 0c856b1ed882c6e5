package imaging

import (
	"math"
	"sync"

	"github.com/patrickmn/go-cache"
)

// Detection quality bounds. Quality is the target length, in pixels, of the
// longest side of the scaled image.
const (
	MinDetectionQuality = 100.0
	MaxDetectionQuality = 10000.0
)

// ScaleLength applies ratio to a full-size length or coordinate.
//
// Every full-size to scaled conversion in this package goes through this
// function so images and regions round the same way and stay addressable
// against each other.
func ScaleLength(v int, ratio float64) int {
	return int(math.Round(float64(v) * ratio))
}

// UnscaleLength maps a scaled length or coordinate back to full size.
// A non-positive ratio yields 0.
func UnscaleLength(v int, ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	return int(math.Round(float64(v) / ratio))
}

// ValidRatio reports whether ratio is usable for scaling: 0 < ratio <= 1.
func ValidRatio(ratio float64) bool {
	return ratio > 0 && ratio <= 1 && !math.IsNaN(ratio)
}

// ScaleMetrics is the stored outcome of one ratio computation.
type ScaleMetrics struct {
	Tag     string  `json:"tag"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Quality float64 `json:"quality"`
	Ratio   float64 `json:"ratio"`
}

// ScaleRatios derives and caches one scale ratio per screen-metrics tag.
//
// The most recently computed tag is the active one; Ratio returns its value.
// A ratio is recomputed only when the tag, the screen dimensions or the
// quality change. ScaleRatios is safe for concurrent use.
type ScaleRatios struct {
	mu      sync.RWMutex
	entries *cache.Cache
	active  string
}

// NewScaleRatios creates an empty ratio manager. Entries never expire.
func NewScaleRatios() *ScaleRatios {
	return &ScaleRatios{
		entries: cache.New(cache.NoExpiration, 0),
	}
}

// Compute stores the ratio for tag and makes tag the active metrics context.
//
// The ratio maps the longest screen side onto quality pixels and never
// exceeds 1.0. Quality is clamped to [MinDetectionQuality, MaxDetectionQuality].
// Non-positive dimensions or quality produce a ratio of 0, which callers must
// treat as a degenerate configuration.
func (s *ScaleRatios) Compute(width, height int, quality float64, tag string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = tag
	if v, ok := s.entries.Get(tag); ok {
		m := v.(ScaleMetrics)
		if m.Width == width && m.Height == height && m.Quality == quality {
			return m.Ratio
		}
	}

	m := ScaleMetrics{
		Tag:     tag,
		Width:   width,
		Height:  height,
		Quality: quality,
		Ratio:   computeRatio(width, height, quality),
	}
	s.entries.Set(tag, m, cache.NoExpiration)
	return m.Ratio
}

// Refresh recomputes the active ratio when the screen dimensions no longer
// match the stored metrics. It reports whether a recomputation happened.
func (s *ScaleRatios) Refresh(width, height int) (float64, bool) {
	m, ok := s.Active()
	if !ok {
		return 0, false
	}
	if m.Width == width && m.Height == height {
		return m.Ratio, false
	}
	return s.Compute(width, height, m.Quality, m.Tag), true
}

// Ratio returns the active ratio, or 0 when no metrics were set.
func (s *ScaleRatios) Ratio() float64 {
	m, ok := s.Active()
	if !ok {
		return 0
	}
	return m.Ratio
}

// Active returns the metrics of the active tag.
func (s *ScaleRatios) Active() (ScaleMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.active)
}

func (s *ScaleRatios) lookup(tag string) (ScaleMetrics, bool) {
	v, ok := s.entries.Get(tag)
	if !ok {
		return ScaleMetrics{}, false
	}
	return v.(ScaleMetrics), true
}

func computeRatio(width, height int, quality float64) float64 {
	if width <= 0 || height <= 0 || quality <= 0 || math.IsNaN(quality) {
		return 0
	}
	quality = ClampQuality(quality)

	longest := width
	if height > longest {
		longest = height
	}

	ratio := quality / float64(longest)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// ClampQuality limits quality to [MinDetectionQuality, MaxDetectionQuality].
func ClampQuality(quality float64) float64 {
	return math.Max(MinDetectionQuality, math.Min(MaxDetectionQuality, quality))
}
