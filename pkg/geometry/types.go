// Package geometry provides the integer pixel geometry used by the region engine:
// points, bounding boxes, lines, segments, and polygons.
package geometry

import (
	"math"
)

// Point is an integer pixel coordinate. Points are values; transforms return copies.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// DistanceSq returns the squared Euclidean distance to another point.
func (p Point) DistanceSq(other Point) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Adjacent8 reports whether other is one of the 8 neighbours of p.
// A point is not adjacent to itself.
func (p Point) Adjacent8(other Point) bool {
	dx := abs(p.X - other.X)
	dy := abs(p.Y - other.Y)
	return dx <= 1 && dy <= 1 && (dx != 0 || dy != 0)
}

// Rotate rotates p by theta radians about origin.
//
// The offset from origin is converted to polar form, rotated, and converted
// back with each Cartesian component rounded half away from zero. Repeated
// frame-to-frame rotations depend on this exact policy.
func (p Point) Rotate(origin Point, theta float64) Point {
	dx := float64(p.X - origin.X)
	dy := float64(p.Y - origin.Y)
	if dx == 0 && dy == 0 {
		return p
	}
	r := math.Hypot(dx, dy)
	a := math.Atan2(dy, dx) + theta
	return Point{
		X: origin.X + int(math.Round(r*math.Cos(a))),
		Y: origin.Y + int(math.Round(r*math.Sin(a))),
	}
}

// ToFloat converts to Point2D.
func (p Point) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Round returns the nearest integer point, rounding half away from zero.
func (p Point2D) Round() Point {
	return Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += float64(p.X)
		sumY += float64(p.Y)
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// roundDiv returns n/d rounded half away from zero. d must be positive.
func roundDiv(n, d int) int {
	if n >= 0 {
		return (2*n + d) / (2 * d)
	}
	return -((-2*n + d) / (2 * d))
}
