package imaging

import (
	"math"
	"sync"
	"testing"
)

func TestScaleLength(t *testing.T) {
	tests := []struct {
		v     int
		ratio float64
		want  int
	}{
		{1920, 0.25, 480},
		{1080, 0.25, 270},
		{50, 0.25, 13}, // 12.5 rounds away from zero
		{3, 0.5, 2},
		{0, 0.3, 0},
		{100, 1, 100},
	}

	for _, tt := range tests {
		if got := ScaleLength(tt.v, tt.ratio); got != tt.want {
			t.Errorf("ScaleLength(%d, %v) = %d, want %d", tt.v, tt.ratio, got, tt.want)
		}
	}
}

func TestUnscaleLength(t *testing.T) {
	if got := UnscaleLength(480, 0.25); got != 1920 {
		t.Errorf("UnscaleLength(480, 0.25) = %d, want 1920", got)
	}
	if got := UnscaleLength(10, 0); got != 0 {
		t.Errorf("UnscaleLength with zero ratio = %d, want 0", got)
	}
}

func TestValidRatio(t *testing.T) {
	for _, r := range []float64{0.01, 0.5, 1} {
		if !ValidRatio(r) {
			t.Errorf("ValidRatio(%v) = false, want true", r)
		}
	}
	for _, r := range []float64{0, -0.5, 1.0001, math.NaN(), math.Inf(1)} {
		if ValidRatio(r) {
			t.Errorf("ValidRatio(%v) = true, want false", r)
		}
	}
}

func TestScaleRatios_Compute(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		quality       float64
		want          float64
	}{
		{"landscape", 1920, 1080, 480, 0.25},
		{"portrait", 1080, 1920, 960, 0.5},
		{"never upscales", 320, 240, 1000, 1},
		{"quality below minimum", 2000, 1000, 10, 0.05},
		{"quality above maximum", 40000, 20000, 20000, 0.25},
		{"zero width", 0, 1080, 480, 0},
		{"negative height", 1920, -1, 480, 0},
		{"zero quality", 1920, 1080, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScaleRatios()
			got := s.Compute(tt.width, tt.height, tt.quality, "main")
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Compute = %v, want %v", got, tt.want)
			}
			if s.Ratio() != got {
				t.Errorf("Ratio() = %v, want %v", s.Ratio(), got)
			}
		})
	}
}

func TestScaleRatios_Tags(t *testing.T) {
	s := NewScaleRatios()

	if s.Ratio() != 0 {
		t.Errorf("empty manager ratio: got %v, want 0", s.Ratio())
	}
	if _, ok := s.Active(); ok {
		t.Error("empty manager should have no active metrics")
	}

	s.Compute(1920, 1080, 480, "desktop")
	s.Compute(1000, 500, 500, "phone")

	if got := s.Ratio(); got != 0.5 {
		t.Errorf("active ratio: got %v, want 0.5", got)
	}
	if m, ok := s.lookup("desktop"); !ok || m.Ratio != 0.25 {
		t.Errorf("lookup(desktop) = %v, %v; want ratio 0.25", m.Ratio, ok)
	}
	if _, ok := s.lookup("missing"); ok {
		t.Error("lookup(missing) should report false")
	}

	// Switching back reuses the stored entry
	if got := s.Compute(1920, 1080, 480, "desktop"); got != 0.25 {
		t.Errorf("recompute desktop: got %v, want 0.25", got)
	}
	m, ok := s.Active()
	if !ok || m.Tag != "desktop" || m.Width != 1920 || m.Quality != 480 {
		t.Errorf("Active() = %+v, %v", m, ok)
	}
}

func TestScaleRatios_Refresh(t *testing.T) {
	s := NewScaleRatios()

	if _, changed := s.Refresh(100, 100); changed {
		t.Error("Refresh without metrics should not recompute")
	}

	s.Compute(1920, 1080, 480, "main")

	r, changed := s.Refresh(1920, 1080)
	if changed || r != 0.25 {
		t.Errorf("Refresh same size = %v, %v; want 0.25, false", r, changed)
	}

	r, changed = s.Refresh(960, 540)
	if !changed || r != 0.5 {
		t.Errorf("Refresh new size = %v, %v; want 0.5, true", r, changed)
	}
	m, _ := s.Active()
	if m.Width != 960 || m.Height != 540 || m.Quality != 480 {
		t.Errorf("refreshed metrics: %+v", m)
	}
}

func TestScaleRatios_Concurrent(t *testing.T) {
	s := NewScaleRatios()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.Compute(1920, 1080, 480, "a")
			} else {
				s.Compute(1000, 1000, 500, "b")
			}
			_ = s.Ratio()
		}(i)
	}
	wg.Wait()

	if m, _ := s.lookup("a"); m.Ratio != 0.25 {
		t.Errorf("lookup(a) ratio = %v, want 0.25", m.Ratio)
	}
	if m, _ := s.lookup("b"); m.Ratio != 0.5 {
		t.Errorf("lookup(b) ratio = %v, want 0.5", m.Ratio)
	}
}

func TestClampQuality(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{5, MinDetectionQuality},
		{480, 480},
		{1e6, MaxDetectionQuality},
	}
	for _, tt := range tests {
		if got := ClampQuality(tt.in); got != tt.want {
			t.Errorf("ClampQuality(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
