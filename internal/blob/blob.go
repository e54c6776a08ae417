// Package blob represents filled pixel regions as per-row runs of boundary
// pixels ("horizontal edges") derived from an ordered 8-connected contour.
package blob

import (
	"fmt"
	"sort"

	"cell-tracker/pkg/geometry"
	"cell-tracker/pkg/roierr"
)

// Edge is a run of boundary pixels on one row, inclusive at both ends.
type Edge struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Blob is an immutable filled region.
//
// Each row inside the bounding box holds the sorted horizontal edges the
// contour lays down on it. An edge where the contour turns back vertically
// is stored twice, so pairing consecutive edges on a row always brackets
// interior pixels.
type Blob struct {
	contour []geometry.Point
	box     geometry.BoundingBox
	rows    [][]Edge
	size    int
}

// New builds a blob from boundary points in any order.
//
// If the points already form a closed 8-connected chain they are used as the
// contour directly; otherwise the outer contour is traced. Tracing keeps only
// the component containing the top-most, right-most point.
func New(points []geometry.Point) (*Blob, error) {
	pts := dedupe(points)
	if len(pts) == 0 {
		return nil, fmt.Errorf("blob from no points: %w", roierr.ErrArgument)
	}
	if !isClosedChain(pts) {
		pts = Trace(pts)
	}
	return fromContour(pts), nil
}

// FromContour builds a blob from an already ordered 8-connected boundary.
func FromContour(contour []geometry.Point) (*Blob, error) {
	pts := dedupe(contour)
	if len(pts) == 0 {
		return nil, fmt.Errorf("blob from empty contour: %w", roierr.ErrArgument)
	}
	if !isClosedChain(pts) {
		return nil, fmt.Errorf("contour of %d points is not 8-connected: %w", len(pts), roierr.ErrArgument)
	}
	return fromContour(pts), nil
}

// run is a maximal stretch of consecutive contour points on one row.
type run struct {
	y          int
	start, end int
}

func fromContour(contour []geometry.Point) *Blob {
	box, _ := geometry.BoxOf(contour)
	b := &Blob{
		contour: contour,
		box:     box,
		rows:    make([][]Edge, box.Height()),
	}

	runs := groupRuns(contour)
	n := len(runs)
	for i, r := range runs {
		copies := 2
		if n > 1 {
			prev := runs[(i-1+n)%n].y
			next := runs[(i+1)%n].y
			if (prev < r.y) != (next < r.y) {
				copies = 1
			}
		}
		row := r.y - box.MinY
		for c := 0; c < copies; c++ {
			b.rows[row] = append(b.rows[row], Edge{Start: r.start, End: r.end})
		}
	}

	for _, row := range b.rows {
		sort.Slice(row, func(i, j int) bool {
			if row[i].Start != row[j].Start {
				return row[i].Start < row[j].Start
			}
			return row[i].End < row[j].End
		})
	}

	for y := range b.rows {
		b.size += countRow(b.rows[y])
	}
	return b
}

// groupRuns splits a closed contour into same-row runs, merging the last
// run into the first when the path wraps around on the same row.
func groupRuns(contour []geometry.Point) []run {
	var runs []run
	for _, p := range contour {
		if k := len(runs) - 1; k >= 0 && runs[k].y == p.Y {
			runs[k].start = min(runs[k].start, p.X)
			runs[k].end = max(runs[k].end, p.X)
			continue
		}
		runs = append(runs, run{y: p.Y, start: p.X, end: p.X})
	}
	if n := len(runs); n > 1 && runs[0].y == runs[n-1].y {
		runs[0].start = min(runs[0].start, runs[n-1].start)
		runs[0].end = max(runs[0].end, runs[n-1].end)
		runs = runs[:n-1]
	}
	return runs
}

// walkEdges calls fn for each column covered by the row's edges, once each.
func walkEdges(row []Edge, fn func(x int)) {
	last := 0
	started := false
	for _, e := range row {
		from := e.Start
		if started && last+1 > from {
			from = last + 1
		}
		for x := from; x <= e.End; x++ {
			fn(x)
		}
		if !started || e.End > last {
			last = e.End
			started = true
		}
	}
}

// walkInnards calls fn for each column strictly between paired edges that
// no earlier edge on the row already covers.
func walkInnards(row []Edge, fn func(x int)) {
	prevEnd := 0
	started := false
	for i := 0; i+1 < len(row); i += 2 {
		a, b := row[i], row[i+1]
		from := a.End + 1
		if started && prevEnd+1 > from {
			from = prevEnd + 1
		}
		for x := from; x < b.Start; x++ {
			fn(x)
		}
		end := max(a.End, b.End)
		if !started || end > prevEnd {
			prevEnd = end
			started = true
		}
	}
}

func countRow(row []Edge) int {
	n := 0
	count := func(int) { n++ }
	walkEdges(row, count)
	walkInnards(row, count)
	return n
}

// Contour returns a copy of the ordered boundary.
func (b *Blob) Contour() []geometry.Point {
	c := make([]geometry.Point, len(b.contour))
	copy(c, b.contour)
	return c
}

// Box returns the bounding box.
func (b *Blob) Box() geometry.BoundingBox {
	return b.box
}

// Row returns a copy of the edges stored for row y, including duplicates.
func (b *Blob) Row(y int) []Edge {
	if y < b.box.MinY || y > b.box.MaxY {
		return nil
	}
	src := b.rows[y-b.box.MinY]
	row := make([]Edge, len(src))
	copy(row, src)
	return row
}

// Edges returns the boundary pixels in row-major order, each once.
func (b *Blob) Edges() []geometry.Point {
	var pts []geometry.Point
	for i, row := range b.rows {
		y := b.box.MinY + i
		walkEdges(row, func(x int) {
			pts = append(pts, geometry.Point{X: x, Y: y})
		})
	}
	return pts
}

// Innards returns the interior pixels in row-major order.
func (b *Blob) Innards() []geometry.Point {
	var pts []geometry.Point
	for i, row := range b.rows {
		y := b.box.MinY + i
		walkInnards(row, func(x int) {
			pts = append(pts, geometry.Point{X: x, Y: y})
		})
	}
	return pts
}

// AllPoints returns Edges followed by Innards.
func (b *Blob) AllPoints() []geometry.Point {
	return append(b.Edges(), b.Innards()...)
}

// Size returns the number of pixels in the region.
func (b *Blob) Size() int {
	return b.size
}

// Contains reports whether p is an edge or interior pixel.
func (b *Blob) Contains(p geometry.Point) bool {
	if !b.box.Contains(p) {
		return false
	}
	row := b.rows[p.Y-b.box.MinY]
	for _, e := range row {
		if p.X >= e.Start && p.X <= e.End {
			return true
		}
	}
	found := false
	walkInnards(row, func(x int) {
		if x == p.X {
			found = true
		}
	})
	return found
}

// Erode returns the blob built from this blob's interior, or nil when the
// region has no interior left. Repeated erosion always reaches nil.
func (b *Blob) Erode() *Blob {
	inner := b.Innards()
	if len(inner) == 0 {
		return nil
	}
	e, _ := New(inner)
	return e
}

// MaxDiameter returns the farthest-apart pair of contour points.
func (b *Blob) MaxDiameter() geometry.LineSegment {
	best := geometry.Seg(b.contour[0], b.contour[0])
	bestD := -1
	for i := 0; i < len(b.contour); i++ {
		for j := i + 1; j < len(b.contour); j++ {
			if d := b.contour[i].DistanceSq(b.contour[j]); d > bestD {
				bestD = d
				best = geometry.Seg(b.contour[i], b.contour[j])
			}
		}
	}
	return best
}

func (b *Blob) String() string {
	return fmt.Sprintf("blob{%v size=%d}", b.box, b.size)
}
