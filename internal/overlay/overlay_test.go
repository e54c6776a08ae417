package overlay

import (
	"testing"

	"cell-tracker/internal/background"
	"cell-tracker/internal/blob"
	"cell-tracker/internal/cellbody"
	"cell-tracker/pkg/geometry"
)

func TestBuild_Empty(t *testing.T) {
	s := Build(nil, nil)
	if len(s.Marks)+len(s.Strokes)+len(s.Rings) != 0 {
		t.Fatalf("expected empty scene, got %+v", s)
	}
	if s := Build(nil, &background.Background{}); len(s.Strokes) != 0 {
		t.Fatalf("expected invalid background skipped, got %+v", s)
	}
}

func TestBuild_RegionPrimitives(t *testing.T) {
	var square []geometry.Point
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			square = append(square, geometry.Pt(x+5, y+5))
		}
	}
	b, err := blob.New(square)
	if err != nil {
		t.Fatalf("blob.New: %v", err)
	}
	cell := &cellbody.CellBody{Seed: geometry.Pt(6, 6), Blob: b}

	area, _ := geometry.NewPolygon([]geometry.Point{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 0, Y: 3}})
	bg := &background.Background{Area: &area, Origin: geometry.Pt(1, 1)}

	s := Build(cell, bg)
	if len(s.Marks) != 8 {
		t.Fatalf("expected 8 outline marks, got %d", len(s.Marks))
	}
	if len(s.Strokes) != 1+3 {
		t.Fatalf("expected diameter plus 3 sides, got %d", len(s.Strokes))
	}
	if len(s.Rings) != 2 || s.Rings[0].Center != cell.Seed || s.Rings[1].Center != bg.Origin {
		t.Fatalf("unexpected rings %+v", s.Rings)
	}
}
