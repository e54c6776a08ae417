package geometry

import (
	"fmt"
	"math"

	"cell-tracker/pkg/roierr"

	"gonum.org/v1/gonum/spatial/r2"
)

// parallelEps is the cross-product magnitude below which two directions are
// treated as parallel.
const parallelEps = 1e-12

// Line is an infinite line through P with direction Dir.
type Line struct {
	P   r2.Vec
	Dir r2.Vec
}

// NewLine creates the line through a and b.
func NewLine(a, b Point2D) (Line, error) {
	if a == b {
		return Line{}, fmt.Errorf("line through coincident points (%.2f, %.2f): %w", a.X, a.Y, roierr.ErrArgument)
	}
	return Line{
		P:   r2.Vec{X: a.X, Y: a.Y},
		Dir: r2.Vec{X: b.X - a.X, Y: b.Y - a.Y},
	}, nil
}

// LineAt creates the line through p at the given angle (radians, measured from +X toward +Y).
func LineAt(p Point2D, angle float64) Line {
	return Line{
		P:   r2.Vec{X: p.X, Y: p.Y},
		Dir: r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)},
	}
}

// Angle returns the line direction in radians.
func (l Line) Angle() float64 {
	return math.Atan2(l.Dir.Y, l.Dir.X)
}

// Intersection returns the point where the lines cross.
// Parallel or degenerate lines never intersect.
func (l Line) Intersection(other Line) (Point2D, bool) {
	t, _, ok := l.params(other)
	if !ok {
		return Point2D{}, false
	}
	p := r2.Add(l.P, r2.Scale(t, l.Dir))
	return Point2D{X: p.X, Y: p.Y}, true
}

// params solves l.P + t*l.Dir == other.P + s*other.Dir.
func (l Line) params(other Line) (t, s float64, ok bool) {
	denom := r2.Cross(l.Dir, other.Dir)
	if math.Abs(denom) < parallelEps {
		return 0, 0, false
	}
	d := r2.Sub(other.P, l.P)
	return r2.Cross(d, other.Dir) / denom, r2.Cross(d, l.Dir) / denom, true
}

// LineSegment is the closed segment between two pixels.
type LineSegment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Seg is shorthand for LineSegment{A: a, B: b}.
func Seg(a, b Point) LineSegment {
	return LineSegment{A: a, B: b}
}

// Line returns the infinite line through the segment.
// The line of a degenerate segment has zero direction and intersects nothing.
func (s LineSegment) Line() Line {
	return Line{
		P:   r2.Vec{X: float64(s.A.X), Y: float64(s.A.Y)},
		Dir: r2.Vec{X: float64(s.B.X - s.A.X), Y: float64(s.B.Y - s.A.Y)},
	}
}

// Length returns the Euclidean length.
func (s LineSegment) Length() float64 {
	return r2.Norm(s.Line().Dir)
}

// Angle returns the direction from A to B in radians.
func (s LineSegment) Angle() float64 {
	return math.Atan2(float64(s.B.Y-s.A.Y), float64(s.B.X-s.A.X))
}

// Midpoint returns the integer midpoint, rounded half away from zero.
func (s LineSegment) Midpoint() Point {
	return Point2D{
		X: float64(s.A.X+s.B.X) / 2,
		Y: float64(s.A.Y+s.B.Y) / 2,
	}.Round()
}

// Intersection returns the point where two segments cross, bounded by both.
func (s LineSegment) Intersection(other LineSegment) (Point2D, bool) {
	l, o := s.Line(), other.Line()
	t, u, ok := l.params(o)
	if !ok {
		return Point2D{}, false
	}
	const eps = 1e-9
	if t < -eps || t > 1+eps || u < -eps || u > 1+eps {
		return Point2D{}, false
	}
	p := r2.Add(l.P, r2.Scale(t, l.Dir))
	return Point2D{X: p.X, Y: p.Y}, true
}

// Points rasterizes the segment with one pixel per step along the major axis.
// The endpoint flags let consecutive sides of an outline share vertices
// without drawing them twice. A degenerate segment yields its single pixel
// only when both endpoints are included.
func (s LineSegment) Points(includeStart, includeEnd bool) []Point {
	dx := s.B.X - s.A.X
	dy := s.B.Y - s.A.Y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		if includeStart && includeEnd {
			return []Point{s.A}
		}
		return nil
	}

	first, last := 0, steps
	if !includeStart {
		first = 1
	}
	if !includeEnd {
		last = steps - 1
	}

	pts := make([]Point, 0, last-first+1)
	for i := first; i <= last; i++ {
		pts = append(pts, Point{
			X: s.A.X + roundDiv(dx*i, steps),
			Y: s.A.Y + roundDiv(dy*i, steps),
		})
	}
	return pts
}

// Outline rasterizes a vertex list into a connected 8-neighbour pixel path.
// A closed outline also draws the side from the last vertex back to the first.
func Outline(vertices []Point, closed bool) []Point {
	switch len(vertices) {
	case 0:
		return nil
	case 1:
		return []Point{vertices[0]}
	}

	var pts []Point
	n := len(vertices)
	sides := n - 1
	if closed {
		sides = n
	}
	for i := 0; i < sides; i++ {
		pts = append(pts, Seg(vertices[i], vertices[(i+1)%n]).Points(true, false)...)
	}
	if !closed {
		pts = append(pts, vertices[n-1])
	}
	return pts
}
