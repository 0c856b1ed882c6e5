package imaging

import (
	"image"
	"testing"
)

func TestRect_ToScaled(t *testing.T) {
	r := FullSizeRect(image.Rect(800, 400, 850, 450))
	s := r.ToScaled(0.25)

	if s.Space != Scaled {
		t.Errorf("space: got %v, want scaled", s.Space)
	}
	want := image.Rect(200, 100, 213, 113)
	if s.Rectangle != want {
		t.Errorf("ToScaled: got %v, want %v", s.Rectangle, want)
	}

	if again := s.ToScaled(0.25); again != s {
		t.Errorf("ToScaled on a scaled rect changed it: %v", again)
	}
}

func TestRect_ToFullSize(t *testing.T) {
	s := ScaledRect(image.Rect(200, 100, 213, 113))
	f := s.ToFullSize(0.25)

	if f.Space != FullSize {
		t.Errorf("space: got %v, want full-size", f.Space)
	}
	want := image.Rect(800, 400, 852, 452)
	if f.Rectangle != want {
		t.Errorf("ToFullSize: got %v, want %v", f.Rectangle, want)
	}
}

func TestRect_CanonicalizesCorners(t *testing.T) {
	r := FullSizeRect(image.Rectangle{Min: image.Pt(10, 10), Max: image.Pt(0, 0)})
	if r.Rectangle != image.Rect(0, 0, 10, 10) {
		t.Errorf("FullSizeRect did not canonicalize: %v", r.Rectangle)
	}
}

// A rect inside an image must stay inside the scaled image for any ratio.
func TestRect_ScaledStaysInside(t *testing.T) {
	full := image.Rect(0, 0, 1366, 768)
	inner := FullSizeRect(image.Rect(1300, 700, 1366, 768))

	for _, ratio := range []float64{0.1, 0.173, 0.25, 0.333, 0.5, 0.77, 1} {
		bounds := image.Rect(0, 0, ScaleLength(full.Dx(), ratio), ScaleLength(full.Dy(), ratio))
		if s := inner.ToScaled(ratio); !s.In(bounds) {
			t.Errorf("ratio %v: scaled %v escapes %v", ratio, s, bounds)
		}
	}
}

func TestRect_CenterRoundTrip(t *testing.T) {
	const ratio = 0.25
	cand := ScaledRect(image.Rect(50, 25, 63, 38))

	center := cand.ToFullSize(ratio).Center()
	if d := center.Sub(image.Pt(225, 125)); d.X*d.X+d.Y*d.Y > 4 {
		t.Errorf("center: got %v, want near (225,125)", center)
	}
}

func TestRect_Translate(t *testing.T) {
	r := ScaledRect(image.Rect(1, 2, 3, 4)).Translate(image.Pt(10, 20))
	if r.Rectangle != image.Rect(11, 22, 13, 24) || r.Space != Scaled {
		t.Errorf("Translate: got %v", r)
	}
}

func TestRegion_SetFullSize(t *testing.T) {
	var reg Region
	reg.SetFullSize(image.Rect(100, 100, 500, 300), 0.5)

	if reg.FullSize.Rectangle != image.Rect(100, 100, 500, 300) {
		t.Errorf("FullSize: got %v", reg.FullSize)
	}
	if reg.Scaled.Rectangle != image.Rect(50, 50, 250, 150) {
		t.Errorf("Scaled: got %v", reg.Scaled)
	}
	if reg.Origin() != image.Pt(100, 100) {
		t.Errorf("Origin: got %v", reg.Origin())
	}

	reg.SetFullImage(image.Rect(0, 0, 1920, 1080), 0.25)
	if reg.Scaled.Rectangle != image.Rect(0, 0, 480, 270) {
		t.Errorf("SetFullImage scaled: got %v", reg.Scaled)
	}
}

func TestSpace_String(t *testing.T) {
	if FullSize.String() != "full-size" || Scaled.String() != "scaled" {
		t.Errorf("unexpected names: %s %s", FullSize, Scaled)
	}
	if Space(7).String() != "Space(7)" {
		t.Errorf("unknown space: %s", Space(7))
	}
}
