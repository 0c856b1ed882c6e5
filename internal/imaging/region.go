package imaging

import (
	"fmt"
	"image"
)

// Space identifies the coordinate space a rectangle is expressed in.
type Space int

const (
	// FullSize is the coordinate space of the original, unscaled image.
	FullSize Space = iota
	// Scaled is the coordinate space after applying the scale ratio.
	Scaled
)

func (s Space) String() string {
	switch s {
	case FullSize:
		return "full-size"
	case Scaled:
		return "scaled"
	default:
		return fmt.Sprintf("Space(%d)", int(s))
	}
}

// Rect is a rectangle tagged with the coordinate space it lives in.
//
// Conversions between spaces scale the corners rather than the size, so a
// rectangle inside an image stays inside the scaled image: both corners go
// through ScaleLength, which is monotonic.
type Rect struct {
	image.Rectangle
	Space Space
}

// FullSizeRect tags r as a full-size rectangle.
func FullSizeRect(r image.Rectangle) Rect {
	return Rect{Rectangle: r.Canon(), Space: FullSize}
}

// ScaledRect tags r as a scaled rectangle.
func ScaledRect(r image.Rectangle) Rect {
	return Rect{Rectangle: r.Canon(), Space: Scaled}
}

// ToScaled converts r into the scaled space. A scaled rect is returned as is.
func (r Rect) ToScaled(ratio float64) Rect {
	if r.Space == Scaled {
		return r
	}
	return Rect{
		Rectangle: image.Rect(
			ScaleLength(r.Min.X, ratio),
			ScaleLength(r.Min.Y, ratio),
			ScaleLength(r.Max.X, ratio),
			ScaleLength(r.Max.Y, ratio),
		),
		Space: Scaled,
	}
}

// ToFullSize converts r into the full-size space. A full-size rect is
// returned as is.
func (r Rect) ToFullSize(ratio float64) Rect {
	if r.Space == FullSize {
		return r
	}
	return Rect{
		Rectangle: image.Rect(
			UnscaleLength(r.Min.X, ratio),
			UnscaleLength(r.Min.Y, ratio),
			UnscaleLength(r.Max.X, ratio),
			UnscaleLength(r.Max.Y, ratio),
		),
		Space: FullSize,
	}
}

// Translate moves r by p, keeping its space.
func (r Rect) Translate(p image.Point) Rect {
	return Rect{Rectangle: r.Add(p), Space: r.Space}
}

// Center returns the center point of r, rounded down.
func (r Rect) Center() image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}

func (r Rect) String() string {
	return fmt.Sprintf("%s%v", r.Space, r.Rectangle)
}

// Region is a detection area held in both the full-size and scaled spaces.
type Region struct {
	FullSize Rect
	Scaled   Rect
}

// SetFullSize sets the full-size rectangle and derives its scaled equivalent.
func (r *Region) SetFullSize(rect image.Rectangle, ratio float64) {
	r.FullSize = FullSizeRect(rect)
	r.Scaled = r.FullSize.ToScaled(ratio)
}

// SetFullImage makes the region cover the given image bounds entirely.
func (r *Region) SetFullImage(bounds image.Rectangle, ratio float64) {
	r.SetFullSize(bounds, ratio)
}

// Origin returns the top-left corner of the full-size rectangle.
func (r Region) Origin() image.Point {
	return r.FullSize.Min
}

func (r Region) String() string {
	return fmt.Sprintf("region{%v %v}", r.FullSize, r.Scaled)
}
