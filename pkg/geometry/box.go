package geometry

import (
	"fmt"

	"cell-tracker/pkg/roierr"
)

// BoundingBox is an axis-aligned box with inclusive integer bounds.
// MinX <= MaxX and MinY <= MaxY always hold for boxes built by the constructors.
type BoundingBox struct {
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// NewBoundingBox creates a box from explicit bounds.
func NewBoundingBox(minX, maxX, minY, maxY int) (BoundingBox, error) {
	if minX > maxX || minY > maxY {
		return BoundingBox{}, fmt.Errorf("bounding box x[%d,%d] y[%d,%d]: %w",
			minX, maxX, minY, maxY, roierr.ErrArgument)
	}
	return BoundingBox{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}, nil
}

// BoxFromCorners creates a box spanning two opposite corners given in any order.
func BoxFromCorners(a, b Point) BoundingBox {
	return BoundingBox{
		MinX: min(a.X, b.X),
		MaxX: max(a.X, b.X),
		MinY: min(a.Y, b.Y),
		MaxY: max(a.Y, b.Y),
	}
}

// BoxOf returns the smallest box containing every point.
func BoxOf(points []Point) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("bounding box of no points: %w", roierr.ErrArgument)
	}
	b := BoundingBox{MinX: points[0].X, MaxX: points[0].X, MinY: points[0].Y, MaxY: points[0].Y}
	for _, p := range points[1:] {
		b = b.Update(p)
	}
	return b, nil
}

// Update returns the box grown to include p.
func (b BoundingBox) Update(p Point) BoundingBox {
	b.MinX = min(b.MinX, p.X)
	b.MaxX = max(b.MaxX, p.X)
	b.MinY = min(b.MinY, p.Y)
	b.MaxY = max(b.MaxY, p.Y)
	return b
}

// Width returns the number of columns covered.
func (b BoundingBox) Width() int {
	return b.MaxX - b.MinX + 1
}

// Height returns the number of rows covered.
func (b BoundingBox) Height() int {
	return b.MaxY - b.MinY + 1
}

// Intersects reports whether the boxes share at least one pixel.
// Touching boundaries count as overlap.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return b.MinX <= other.MaxX && other.MinX <= b.MaxX &&
		b.MinY <= other.MaxY && other.MinY <= b.MaxY
}

// Intersection returns the overlapping box, or false if the boxes are disjoint.
func (b BoundingBox) Intersection(other BoundingBox) (BoundingBox, bool) {
	if !b.Intersects(other) {
		return BoundingBox{}, false
	}
	return BoundingBox{
		MinX: max(b.MinX, other.MinX),
		MaxX: min(b.MaxX, other.MaxX),
		MinY: max(b.MinY, other.MinY),
		MaxY: min(b.MaxY, other.MaxY),
	}, true
}

// Contains reports whether p lies inside the box (inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// ContainsBox reports whether other lies entirely within b.
func (b BoundingBox) ContainsBox(other BoundingBox) bool {
	return other.MinX >= b.MinX && other.MaxX <= b.MaxX &&
		other.MinY >= b.MinY && other.MaxY <= b.MaxY
}

// Midpoint returns the integer centre of the box.
func (b BoundingBox) Midpoint() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Polygon returns the box as a four-vertex polygon, clockwise from the top-left corner.
func (b BoundingBox) Polygon() Polygon {
	return newPolygon([]Point{
		{X: b.MinX, Y: b.MinY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MinX, Y: b.MaxY},
	})
}

// Points returns every pixel in the box in row-major order.
func (b BoundingBox) Points() []Point {
	pts := make([]Point, 0, b.Width()*b.Height())
	for y := b.MinY; y <= b.MaxY; y++ {
		for x := b.MinX; x <= b.MaxX; x++ {
			pts = append(pts, Point{X: x, Y: y})
		}
	}
	return pts
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("x[%d,%d] y[%d,%d]", b.MinX, b.MaxX, b.MinY, b.MaxY)
}
