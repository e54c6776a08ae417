package geometry

import (
	"fmt"
	"math"
	"sort"

	"cell-tracker/pkg/roierr"
)

// Polygon is an ordered vertex list with a cached bounding box.
// Polygons are immutable; Translate, Rotate, and Scale return new polygons.
type Polygon struct {
	vertices []Point
	box      BoundingBox
}

// NewPolygon creates a polygon from at least three vertices.
// Self-intersecting vertex orders are allowed and filled even-odd.
func NewPolygon(vertices []Point) (Polygon, error) {
	if len(vertices) < 3 {
		return Polygon{}, fmt.Errorf("polygon needs at least 3 vertices, got %d: %w", len(vertices), roierr.ErrArgument)
	}
	v := make([]Point, len(vertices))
	copy(v, vertices)
	return newPolygon(v), nil
}

// newPolygon takes ownership of v, which must hold at least one vertex.
func newPolygon(v []Point) Polygon {
	box := BoundingBox{MinX: v[0].X, MaxX: v[0].X, MinY: v[0].Y, MaxY: v[0].Y}
	for _, p := range v[1:] {
		box = box.Update(p)
	}
	return Polygon{vertices: v, box: box}
}

// IsZero reports whether p is the zero Polygon (no vertices).
func (p Polygon) IsZero() bool {
	return len(p.vertices) == 0
}

// Vertices returns a copy of the vertex list.
func (p Polygon) Vertices() []Point {
	v := make([]Point, len(p.vertices))
	copy(v, p.vertices)
	return v
}

// Len returns the number of vertices.
func (p Polygon) Len() int {
	return len(p.vertices)
}

// Box returns the cached bounding box.
func (p Polygon) Box() BoundingBox {
	return p.box
}

// Centroid returns the mean of the vertices.
func (p Polygon) Centroid() Point2D {
	return Centroid(p.vertices)
}

// Translate returns the polygon shifted by (dx, dy).
func (p Polygon) Translate(dx, dy int) Polygon {
	v := make([]Point, len(p.vertices))
	for i, q := range p.vertices {
		v[i] = Point{X: q.X + dx, Y: q.Y + dy}
	}
	return newPolygon(v)
}

// Rotate returns the polygon rotated by theta radians about origin.
func (p Polygon) Rotate(origin Point, theta float64) Polygon {
	v := make([]Point, len(p.vertices))
	for i, q := range p.vertices {
		v[i] = q.Rotate(origin, theta)
	}
	return newPolygon(v)
}

// Scale returns the polygon scaled by factor about origin.
func (p Polygon) Scale(origin Point, factor float64) Polygon {
	v := make([]Point, len(p.vertices))
	for i, q := range p.vertices {
		v[i] = Point{
			X: origin.X + int(math.Round(float64(q.X-origin.X)*factor)),
			Y: origin.Y + int(math.Round(float64(q.Y-origin.Y)*factor)),
		}
	}
	return newPolygon(v)
}

// Edges returns the outline pixels, each once, in drawing order.
// Every side includes its start vertex and excludes its end vertex.
func (p Polygon) Edges() []Point {
	seen := make(map[Point]struct{})
	var pts []Point
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		for _, q := range Seg(p.vertices[i], p.vertices[(i+1)%n]).Points(true, false) {
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}
			pts = append(pts, q)
		}
	}
	return pts
}

// Innards returns the pixels strictly inside the polygon that are not outline pixels.
//
// Each interior row is scanned for the x positions where non-horizontal sides
// cross it. A side owns its lower endpoint row but not its upper one, so a
// vertex where the outline passes through counts once and a local extremum
// counts zero or two times. Horizontal sides contribute nothing, and the
// pixels they cover are removed with the rest of the outline. Pairs of sorted
// crossings bound the interior runs, exclusive of the crossings themselves.
func (p Polygon) Innards() []Point {
	if len(p.vertices) < 3 {
		return nil
	}
	edges := make(map[Point]struct{})
	for _, q := range p.Edges() {
		edges[q] = struct{}{}
	}

	var pts []Point
	var xs []float64
	for y := p.box.MinY + 1; y < p.box.MaxY; y++ {
		xs = p.crossings(y, xs[:0])
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			lo := int(math.Floor(xs[i])) + 1
			hi := int(math.Ceil(xs[i+1])) - 1
			for x := lo; x <= hi; x++ {
				q := Point{X: x, Y: y}
				if _, onEdge := edges[q]; onEdge {
					continue
				}
				pts = append(pts, q)
			}
		}
	}
	return pts
}

// crossings appends the x positions where sides cross row y.
func (p Polygon) crossings(y int, xs []float64) []float64 {
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		a, b := p.vertices[i], p.vertices[(i+1)%n]
		if a.Y == b.Y {
			continue
		}
		if (a.Y <= y && y < b.Y) || (b.Y <= y && y < a.Y) {
			x := float64(a.X) + float64((y-a.Y)*(b.X-a.X))/float64(b.Y-a.Y)
			xs = append(xs, x)
		}
	}
	return xs
}

// AllPoints returns the outline followed by the interior.
func (p Polygon) AllPoints() []Point {
	return append(p.Edges(), p.Innards()...)
}

// Contains reports whether q is an outline or interior pixel.
func (p Polygon) Contains(q Point) bool {
	if len(p.vertices) < 3 || !p.box.Contains(q) {
		return false
	}
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		for _, e := range Seg(p.vertices[i], p.vertices[(i+1)%n]).Points(true, true) {
			if e == q {
				return true
			}
		}
	}
	if q.Y == p.box.MinY || q.Y == p.box.MaxY {
		return false
	}
	inside := false
	for _, x := range p.crossings(q.Y, nil) {
		if x > float64(q.X) {
			inside = !inside
		}
	}
	return inside
}

func (p Polygon) String() string {
	return fmt.Sprintf("polygon%v", p.vertices)
}
