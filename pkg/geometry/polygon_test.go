package geometry

import (
	"errors"
	"math"
	"testing"

	"cell-tracker/pkg/roierr"
)

func mustPolygon(t *testing.T, v ...Point) Polygon {
	t.Helper()
	p, err := NewPolygon(v)
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	return p
}

func TestNewPolygon_RequiresThreeVertices(t *testing.T) {
	if _, err := NewPolygon([]Point{Pt(0, 0), Pt(1, 1)}); !errors.Is(err, roierr.ErrArgument) {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestPolygonInnards_RectangleStrictInterior(t *testing.T) {
	for _, wh := range [][2]int{{2, 2}, {3, 3}, {5, 4}, {10, 7}} {
		w, h := wh[0], wh[1]
		cw := mustPolygon(t, Pt(0, 0), Pt(w-1, 0), Pt(w-1, h-1), Pt(0, h-1))
		ccw := mustPolygon(t, Pt(0, 0), Pt(0, h-1), Pt(w-1, h-1), Pt(w-1, 0))
		want := (w - 2) * (h - 2)
		if got := len(cw.Innards()); got != want {
			t.Fatalf("%dx%d clockwise: expected %d interior pixels, got %d", w, h, want, got)
		}
		if got := len(ccw.Innards()); got != want {
			t.Fatalf("%dx%d counter-clockwise: expected %d interior pixels, got %d", w, h, want, got)
		}
	}
}

func TestPolygonEdges_NoDuplicateVertices(t *testing.T) {
	p := mustPolygon(t, Pt(0, 0), Pt(4, 0), Pt(4, 4), Pt(0, 4))
	edges := p.Edges()
	seen := make(map[Point]bool)
	for _, q := range edges {
		if seen[q] {
			t.Fatalf("duplicate edge pixel %v", q)
		}
		seen[q] = true
	}
	if len(edges) != 16 {
		t.Fatalf("expected 16 edge pixels, got %d", len(edges))
	}
}

func TestPolygonInnards_DisjointFromEdges(t *testing.T) {
	shapes := map[string]Polygon{
		"triangle": mustPolygon(t, Pt(0, 0), Pt(12, 3), Pt(4, 11)),
		"star":     mustPolygon(t, Pt(10, 0), Pt(16, 19), Pt(0, 7), Pt(20, 7), Pt(4, 19)),
		"notch":    mustPolygon(t, Pt(0, 0), Pt(8, 0), Pt(8, 8), Pt(4, 3), Pt(0, 8)),
		"steps":    mustPolygon(t, Pt(0, 0), Pt(5, 0), Pt(5, 3), Pt(9, 3), Pt(9, 8), Pt(0, 8)),
	}
	for name, p := range shapes {
		edges := make(map[Point]bool)
		for _, q := range p.Edges() {
			edges[q] = true
		}
		inner := make(map[Point]bool)
		for _, q := range p.Innards() {
			if edges[q] {
				t.Fatalf("%s: interior pixel %v is also an edge", name, q)
			}
			if inner[q] {
				t.Fatalf("%s: duplicate interior pixel %v", name, q)
			}
			inner[q] = true
			if !p.Contains(q) {
				t.Fatalf("%s: Contains disagrees for interior pixel %v", name, q)
			}
		}
		if len(inner) == 0 {
			t.Fatalf("%s: expected a non-empty interior", name)
		}
	}
}

func TestPolygonInnards_StepsShape(t *testing.T) {
	p := mustPolygon(t, Pt(0, 0), Pt(5, 0), Pt(5, 3), Pt(9, 3), Pt(9, 8), Pt(0, 8))
	// rows 1-3 span x 1..4, rows 4-7 span x 1..8
	want := 3*4 + 4*8
	if got := len(p.Innards()); got != want {
		t.Fatalf("expected %d interior pixels, got %d", want, got)
	}
	if p.Contains(Pt(7, 1)) {
		t.Fatalf("pixel above the step must be outside")
	}
	if !p.Contains(Pt(7, 5)) {
		t.Fatalf("pixel below the step must be inside")
	}
}

func TestPolygonContains_OutsideBox(t *testing.T) {
	p := mustPolygon(t, Pt(0, 0), Pt(4, 0), Pt(4, 4))
	if p.Contains(Pt(5, 5)) || p.Contains(Pt(-1, 0)) {
		t.Fatalf("points outside the box must not be contained")
	}
	if !p.Contains(Pt(4, 4)) {
		t.Fatalf("vertex must be contained")
	}
}

func TestPolygonRotate_RoundTrip(t *testing.T) {
	p := mustPolygon(t, Pt(3, 1), Pt(17, 4), Pt(12, 15), Pt(2, 9))
	origin := Pt(8, 8)
	for _, theta := range []float64{0.1, 0.5, math.Pi / 3, 1.9, -2.7} {
		back := p.Rotate(origin, theta).Rotate(origin, -theta)
		orig := p.Vertices()
		for i, v := range back.Vertices() {
			if abs(v.X-orig[i].X) > 1 || abs(v.Y-orig[i].Y) > 1 {
				t.Fatalf("theta %.2f: vertex %d drifted from %v to %v", theta, i, orig[i], v)
			}
		}
	}
}

func TestPointRotate_QuarterTurn(t *testing.T) {
	got := Pt(5, 2).Rotate(Pt(2, 2), math.Pi/2)
	if got != Pt(2, 5) {
		t.Fatalf("expected (2,5), got %v", got)
	}
	if got := Pt(2, 2).Rotate(Pt(2, 2), 1.0); got != Pt(2, 2) {
		t.Fatalf("origin must be fixed, got %v", got)
	}
}

func TestPolygonTransforms_CopyOnWrite(t *testing.T) {
	p := mustPolygon(t, Pt(0, 0), Pt(4, 0), Pt(4, 4), Pt(0, 4))
	moved := p.Translate(3, -1)
	if p.Vertices()[0] != Pt(0, 0) {
		t.Fatalf("translate mutated the source polygon")
	}
	if moved.Box() != (BoundingBox{MinX: 3, MaxX: 7, MinY: -1, MaxY: 3}) {
		t.Fatalf("unexpected translated box %v", moved.Box())
	}
	big := p.Scale(Pt(0, 0), 2)
	if big.Box().MaxX != 8 || big.Box().MaxY != 8 {
		t.Fatalf("unexpected scaled box %v", big.Box())
	}
	v := p.Vertices()
	v[0] = Pt(99, 99)
	if p.Vertices()[0] != Pt(0, 0) {
		t.Fatalf("Vertices must return a copy")
	}
}
