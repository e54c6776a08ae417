package grid

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"cell-tracker/pkg/geometry"
	"cell-tracker/pkg/roierr"
)

func newTestGrid(t *testing.T, w, h int) *Grid {
	t.Helper()
	g, err := New(w, h)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNew_RejectsEmptySize(t *testing.T) {
	if _, err := New(0, 5); !errors.Is(err, roierr.ErrArgument) {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestSetOwner_AtMostOneOwner(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	p := geometry.Pt(1, 2)
	if err := g.SetOwner(p, 3); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if err := g.SetOwner(p, 3); err != nil {
		t.Fatalf("re-claim by same owner should be a no-op, got %v", err)
	}
	err := g.SetOwner(p, 4)
	if !errors.Is(err, ErrOwned) || !errors.Is(err, roierr.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
	if g.Owner(p) != 3 {
		t.Fatalf("failed claim changed the owner to %d", g.Owner(p))
	}
	g.ClearOwner(p)
	if err := g.SetOwner(p, 4); err != nil {
		t.Fatalf("claim after clear failed: %v", err)
	}
}

func TestSetOwner_Validation(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	if err := g.SetOwner(geometry.Pt(2, 0), 1); !errors.Is(err, roierr.ErrArgument) {
		t.Fatalf("expected argument error for out-of-bounds, got %v", err)
	}
	if err := g.SetOwner(geometry.Pt(0, 0), None); !errors.Is(err, roierr.ErrArgument) {
		t.Fatalf("expected argument error for None owner, got %v", err)
	}
}

func TestIntensityIndependentOfOwner(t *testing.T) {
	g := newTestGrid(t, 3, 3)
	p := geometry.Pt(2, 1)
	if err := g.SetIntensity(p, 200); err != nil {
		t.Fatalf("SetIntensity: %v", err)
	}
	if err := g.SetOwner(p, 15); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}
	g.ClearOwner(p)
	if g.Intensity(p) != 200 {
		t.Fatalf("expected intensity 200, got %d", g.Intensity(p))
	}
}

func TestOwnedByAndCount(t *testing.T) {
	g := newTestGrid(t, 5, 5)
	for _, p := range []geometry.Point{geometry.Pt(0, 0), geometry.Pt(4, 4), geometry.Pt(2, 3)} {
		if err := g.SetOwner(p, 2); err != nil {
			t.Fatalf("SetOwner: %v", err)
		}
	}
	if g.CountOwned(2) != 3 {
		t.Fatalf("expected 3 owned cells, got %d", g.CountOwned(2))
	}
	owned := g.OwnedBy(2)
	if len(owned) != 3 || owned[1] != geometry.Pt(2, 3) {
		t.Fatalf("unexpected owned cells %v", owned)
	}
	for _, p := range owned {
		g.ClearOwner(p)
	}
	if g.CountOwned(2) != 0 {
		t.Fatalf("expected no owned cells after clearing, got %d", g.CountOwned(2))
	}
}

func TestClaims_RollbackOnlyNewCells(t *testing.T) {
	g := newTestGrid(t, 4, 1)
	if err := g.SetOwner(geometry.Pt(0, 0), 1); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}
	if err := g.SetOwner(geometry.Pt(3, 0), 2); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}

	claims := g.NewClaims(1)
	for x := 0; x < 3; x++ {
		if _, err := claims.Claim(geometry.Pt(x, 0)); err != nil {
			t.Fatalf("Claim: %v", err)
		}
	}
	if claims.Len() != 2 {
		t.Fatalf("expected 2 new claims, got %d", claims.Len())
	}
	if _, err := claims.Claim(geometry.Pt(3, 0)); !errors.Is(err, ErrOwned) {
		t.Fatalf("expected ErrOwned, got %v", err)
	}
	claims.Rollback()

	if g.Owner(geometry.Pt(0, 0)) != 1 {
		t.Fatalf("rollback released a cell held before the attempt")
	}
	if g.Owner(geometry.Pt(1, 0)) != None || g.Owner(geometry.Pt(2, 0)) != None {
		t.Fatalf("rollback left attempted cells owned")
	}
	if g.Owner(geometry.Pt(3, 0)) != 2 {
		t.Fatalf("rollback touched another region's cell")
	}
}

func TestFromGray(t *testing.T) {
	img := image.NewGray(image.Rect(10, 20, 13, 22))
	img.SetGray(11, 21, color.Gray{Y: 7})
	g, err := FromGray(img)
	if err != nil {
		t.Fatalf("FromGray: %v", err)
	}
	if g.Width() != 3 || g.Height() != 2 {
		t.Fatalf("expected 3x2, got %dx%d", g.Width(), g.Height())
	}
	if g.Intensity(geometry.Pt(1, 1)) != 7 {
		t.Fatalf("expected 7, got %d", g.Intensity(geometry.Pt(1, 1)))
	}
}
