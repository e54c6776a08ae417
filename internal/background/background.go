// Package background tracks the reference background region. Its shape is
// supplied once and then only moved and turned from page to page.
package background

import (
	"fmt"
	"math"

	"cell-tracker/internal/histogram"
	"cell-tracker/pkg/geometry"
	"cell-tracker/pkg/roierr"
)

// ErrNoArea is returned by operations that need a validly placed background.
var ErrNoArea = fmt.Errorf("no background area: %w", roierr.ErrState)

// Placement reports whether a background could be put where it was asked to go.
type Placement int

const (
	PlacementOK Placement = iota
	PlacementOutOfBounds
	PlacementCollision
)

func (p Placement) String() string {
	switch p {
	case PlacementOK:
		return "ok"
	case PlacementOutOfBounds:
		return "out-of-bounds"
	case PlacementCollision:
		return "collision"
	default:
		return "unknown"
	}
}

// Constraint is one parameter of an edit request: Shape, Origin or Theta.
type Constraint interface {
	constraint()
}

// Shape defines the background outline together with the origin and
// orientation it was drawn against.
type Shape struct {
	Area   geometry.Polygon
	Origin geometry.Point
	Theta  float64
}

// Origin moves the background so the shape's origin lands on Point.
type Origin struct {
	Point geometry.Point
}

// Theta turns the background to an absolute orientation.
type Theta struct {
	Radians float64
}

func (Shape) constraint()  {}
func (Origin) constraint() {}
func (Theta) constraint()  {}

// Background is one placement of the shape.
type Background struct {
	// Area is nil when the placement was invalid.
	Area   *geometry.Polygon
	Origin geometry.Point
	Theta  float64
	// PI covers every pixel of the area, Edge only its outline.
	PI    *histogram.Histogram
	Edge  *histogram.Histogram
	Shape Shape
}

// Valid reports whether the background has an area.
func (b *Background) Valid() bool {
	return b != nil && b.Area != nil
}

// Mean returns the mean intensity of the area, or NaN without one.
func (b *Background) Mean() float64 {
	if !b.Valid() || b.PI == nil {
		return math.NaN()
	}
	return b.PI.Mean()
}

// FoldAngle maps an orientation change into (-π/2, π/2]. Orientations are
// lines, not rays, so a half turn is no change at all.
func FoldAngle(delta float64) float64 {
	d := math.Mod(delta, math.Pi)
	if d > math.Pi/2 {
		d -= math.Pi
	} else if d <= -math.Pi/2 {
		d += math.Pi
	}
	return d
}

// place derives the polygon for origin and theta from the defining shape.
func (s Shape) place(origin geometry.Point, theta float64) geometry.Polygon {
	p := s.Area.Translate(origin.X-s.Origin.X, origin.Y-s.Origin.Y)
	if d := theta - s.Theta; d != 0 {
		p = p.Rotate(origin, d)
	}
	return p
}
