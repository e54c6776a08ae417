package blob

import (
	"cell-tracker/pkg/geometry"
)

// Neighbour directions in clockwise order for image coordinates (y grows down).
var dirs = [8]geometry.Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
}

const dirE = 0

// dirIndex returns the index in dirs of a unit neighbour offset.
func dirIndex(off geometry.Point) int {
	for i, d := range dirs {
		if d == off {
			return i
		}
	}
	return -1
}

// mask is a padded membership grid over a point set's bounding box.
type mask struct {
	box   geometry.BoundingBox
	width int
	cells []bool
}

func newMask(points []geometry.Point) *mask {
	box, _ := geometry.BoxOf(points)
	m := &mask{box: box, width: box.Width() + 2}
	m.cells = make([]bool, m.width*(box.Height()+2))
	for _, p := range points {
		m.cells[m.index(p)] = true
	}
	return m
}

func (m *mask) index(p geometry.Point) int {
	return (p.Y-m.box.MinY+1)*m.width + (p.X - m.box.MinX + 1)
}

// has reports membership. p must be within one pixel of the box.
func (m *mask) has(p geometry.Point) bool {
	return m.cells[m.index(p)]
}

// Trace walks the outer boundary of the 8-connected component that contains
// the top-most, right-most point, returning it as a clockwise closed path
// without the repeated start point. Points outside that component are ignored.
// A lone pixel traces to itself.
func Trace(points []geometry.Point) []geometry.Point {
	if len(points) == 0 {
		return nil
	}
	m := newMask(points)

	start := points[0]
	for _, p := range points[1:] {
		if p.Y < start.Y || (p.Y == start.Y && p.X > start.X) {
			start = p
		}
	}

	// Nothing lies above the start row or right of the start pixel,
	// so the east neighbour is a valid background backtrack.
	contour := []geometry.Point{start}
	cur, back := start, dirE
	var first geometry.Point
	maxSteps := 4*len(points) + 8
	for step := 0; step < maxSteps; step++ {
		next, nextBack, ok := mooreStep(m, cur, back)
		if !ok {
			break
		}
		if step > 0 && cur == start && next == first {
			break
		}
		if step == 0 {
			first = next
		}
		contour = append(contour, next)
		cur, back = next, nextBack
	}

	if n := len(contour); n > 1 && contour[n-1] == contour[0] {
		contour = contour[:n-1]
	}
	return contour
}

// mooreStep sweeps clockwise around cur starting just past the background
// neighbour at index back. It returns the first member found and the
// direction, relative to that member, of the background pixel examined
// just before it.
func mooreStep(m *mask, cur geometry.Point, back int) (geometry.Point, int, bool) {
	for k := 1; k < 8; k++ {
		j := (back + k) % 8
		cand := cur.Add(dirs[j])
		if !m.has(cand) {
			continue
		}
		bg := cur.Add(dirs[(back+k-1)%8])
		return cand, dirIndex(bg.Sub(cand)), true
	}
	return geometry.Point{}, 0, false
}

// isClosedChain reports whether every consecutive pair, including the
// wrap-around pair, is 8-connected.
func isClosedChain(points []geometry.Point) bool {
	if len(points) == 1 {
		return true
	}
	for i := range points {
		if !points[i].Adjacent8(points[(i+1)%len(points)]) {
			return false
		}
	}
	return true
}

// dedupe drops consecutive repeats, including a closing point equal to the first.
func dedupe(points []geometry.Point) []geometry.Point {
	out := make([]geometry.Point, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	return out
}
