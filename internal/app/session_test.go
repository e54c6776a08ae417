package app

import (
	"errors"
	goimage "image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"cell-tracker/internal/background"
	"cell-tracker/internal/cellbody"
	"cell-tracker/internal/config"
	"cell-tracker/internal/grid"
	"cell-tracker/internal/image"
	"cell-tracker/pkg/geometry"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// conePage is a 21x21 page whose intensity falls by 10 per ring around centre.
func conePage(cx, cy int) *image.Page {
	img := goimage.NewGray(goimage.Rect(0, 0, 21, 21))
	for y := 0; y < 21; y++ {
		for x := 0; x < 21; x++ {
			d := max(abs(x-cx), abs(y-cy))
			img.SetGray(x, y, color.Gray{Y: uint8(max(200-10*d, 0))})
		}
	}
	return &image.Page{Image: img}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func rect(t *testing.T, x0, y0, x1, y1 int) geometry.Polygon {
	t.Helper()
	p, err := geometry.NewPolygon([]geometry.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}})
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	return p
}

func twoPageSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(config.Default(), discard)
	s.AddPage(conePage(10, 10))
	s.AddPage(conePage(11, 10))
	if err := s.GoTo(0); err != nil {
		t.Fatalf("GoTo(0): %v", err)
	}
	return s
}

// analyzeFirstPage grows a 25 pixel cell and a background to its upper
// left, aligned with the cell's long axis, then accepts the page.
func analyzeFirstPage(t *testing.T, s *Session) PageStats {
	t.Helper()
	if _, err := s.SeedCell(nil); err != nil {
		t.Fatalf("SeedCell: %v", err)
	}
	body, err := s.ResizeCell(25, cellbody.AsCloseAsPossible)
	if err != nil || body.Size() != 25 {
		t.Fatalf("ResizeCell: size %v err %v", body, err)
	}
	origin, theta, err := s.CellAxis()
	if err != nil {
		t.Fatalf("CellAxis: %v", err)
	}
	if origin != geometry.Pt(10, 10) || math.Abs(theta-3*math.Pi/4) > 1e-9 {
		t.Fatalf("expected axis at (10,10) angle 3π/4, got %v %v", origin, theta)
	}
	if _, pl, err := s.DefineBackground(rect(t, 1, 1, 4, 3), origin, theta); err != nil || pl != background.PlacementOK {
		t.Fatalf("DefineBackground: placement %v err %v", pl, err)
	}
	stats, err := s.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return stats
}

func TestSession_AcceptRecordsStats(t *testing.T) {
	s := twoPageSession(t)
	stats := analyzeFirstPage(t, s)
	if stats.Page != 0 || stats.CellSize != 25 || stats.CellMean != 184 || stats.Threshold != 180 {
		t.Fatalf("unexpected cell stats %+v", stats)
	}
	wantBg := 1400.0 / 12
	if math.Abs(stats.Background-wantBg) > 1e-9 || math.Abs(stats.PIRatio-184/wantBg) > 1e-9 {
		t.Fatalf("expected background %v ratio %v, got %+v", wantBg, 184/wantBg, stats)
	}
	got, ok := s.Stats(0)
	if !ok || got != stats {
		t.Fatalf("expected stored stats, got %+v %v", got, ok)
	}
	if _, ok := s.Stats(1); ok {
		t.Fatalf("expected no stats for unvisited page")
	}
	if owner, _ := s.Owner(geometry.Pt(10, 10)); owner != grid.None {
		t.Fatalf("expected accepted regions unmarked, got owner %d", owner)
	}
}

func TestSession_NextPageFollowsAcceptedRegions(t *testing.T) {
	s := twoPageSession(t)
	analyzeFirstPage(t, s)
	if err := s.GoTo(1); err != nil {
		t.Fatalf("GoTo(1): %v", err)
	}
	cell, bg, err := s.Regions()
	if err != nil {
		t.Fatalf("Regions: %v", err)
	}
	if cell == nil || cell.Seed != geometry.Pt(11, 10) || cell.Size() != 25 {
		t.Fatalf("expected cell followed to (11,10) size 25, got %+v", cell)
	}
	want := []geometry.Point{{X: 2, Y: 1}, {X: 5, Y: 1}, {X: 5, Y: 3}, {X: 2, Y: 3}}
	if !bg.Valid() || !reflect.DeepEqual(bg.Area.Vertices(), want) {
		t.Fatalf("expected background shifted one column, got %+v", bg)
	}
	if owner, _ := s.Owner(geometry.Pt(11, 10)); owner == grid.None {
		t.Fatalf("expected followed cell marked")
	}
}

func TestSession_RevisitRestoresAcceptedPage(t *testing.T) {
	s := twoPageSession(t)
	analyzeFirstPage(t, s)
	if err := s.GoTo(1); err != nil {
		t.Fatalf("GoTo(1): %v", err)
	}
	if err := s.GoTo(0); err != nil {
		t.Fatalf("GoTo(0): %v", err)
	}
	cellOwner, _ := s.Owner(geometry.Pt(10, 10))
	bgOwner, _ := s.Owner(geometry.Pt(1, 1))
	if cellOwner == grid.None || bgOwner == grid.None || cellOwner == bgOwner {
		t.Fatalf("expected distinct restored owners, got %d and %d", cellOwner, bgOwner)
	}
}

func TestSession_InvalidBackgroundBlocksAccept(t *testing.T) {
	s := twoPageSession(t)
	var invalid []interface{}
	s.On(EventBackgroundInvalid, func(data interface{}) { invalid = append(invalid, data) })
	if _, err := s.SeedCell(nil); err != nil {
		t.Fatalf("SeedCell: %v", err)
	}
	if _, _, err := s.DefineBackground(rect(t, 1, 1, 4, 3), geometry.Pt(2, 2), 0); err != nil {
		t.Fatalf("DefineBackground: %v", err)
	}
	bg, pl, err := s.MoveBackground(geometry.Pt(0, 0))
	if err != nil || pl != background.PlacementOutOfBounds || bg.Valid() {
		t.Fatalf("expected out of bounds, got %v %v", pl, err)
	}
	if len(invalid) != 1 || invalid[0] != background.PlacementOutOfBounds {
		t.Fatalf("expected one invalid event, got %v", invalid)
	}
	if _, err := s.Accept(); !errors.Is(err, background.ErrNoArea) {
		t.Fatalf("expected ErrNoArea, got %v", err)
	}
	if err := s.RemoveBackground(); err != nil {
		t.Fatalf("RemoveBackground: %v", err)
	}
	stats, err := s.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !math.IsNaN(stats.PIRatio) || !math.IsNaN(stats.Background) {
		t.Fatalf("expected NaN background stats, got %+v", stats)
	}
}

func TestSession_ListenersMayCallBack(t *testing.T) {
	s := NewSession(config.Default(), discard)
	s.AddPage(conePage(10, 10))
	var seen []int
	s.On(EventPageChanged, func(data interface{}) {
		seen = append(seen, s.Current())
	})
	if err := s.GoTo(0); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if len(seen) != 1 || seen[0] != 0 {
		t.Fatalf("expected listener to observe page 0, got %v", seen)
	}
}

func TestSession_NoPage(t *testing.T) {
	s := NewSession(config.Default(), discard)
	if _, err := s.SeedCell(nil); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	s.AddPage(conePage(10, 10))
	if err := s.GoTo(3); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	if err := s.GoTo(0); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if _, err := s.Accept(); !errors.Is(err, cellbody.ErrNoBody) {
		t.Fatalf("expected ErrNoBody, got %v", err)
	}
}

func TestSession_RemoveCellDropsStats(t *testing.T) {
	s := twoPageSession(t)
	analyzeFirstPage(t, s)
	if err := s.RemoveCell(); !errors.Is(err, cellbody.ErrNoBody) {
		t.Fatalf("expected ErrNoBody removing an accepted cell that is not marked, got %v", err)
	}
	if err := s.GoTo(0); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if err := s.RemoveCell(); err != nil {
		t.Fatalf("RemoveCell: %v", err)
	}
	if _, ok := s.Stats(0); ok {
		t.Fatalf("expected stats dropped")
	}
	if len(s.AllStats()) != 0 {
		t.Fatalf("expected no stats, got %v", s.AllStats())
	}
}

func TestSession_FailedCellAcceptKeepsBackground(t *testing.T) {
	s := twoPageSession(t)
	if _, err := s.SeedCell(nil); err != nil {
		t.Fatalf("SeedCell: %v", err)
	}
	if _, pl, err := s.DefineBackground(rect(t, 1, 1, 4, 3), geometry.Pt(10, 10), 0); err != nil || pl != background.PlacementOK {
		t.Fatalf("DefineBackground: placement %v err %v", pl, err)
	}
	ps := s.pages[0]
	stray := geometry.Pt(20, 20)
	if err := ps.grid.SetOwner(stray, ps.cell.ID()); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}

	if _, err := s.Accept(); err == nil {
		t.Fatalf("expected accept to fail on a stray cell")
	}
	if ps.bg.State() != background.StatePlaced {
		t.Fatalf("expected background placed again, got %v", ps.bg.State())
	}
	if owner, _ := s.Owner(geometry.Pt(2, 2)); owner != ps.bg.ID() {
		t.Fatalf("expected background marked again, got owner %d", owner)
	}
	if _, ok := s.Stats(0); ok {
		t.Fatalf("expected no stats after a failed accept")
	}
}

func TestSession_CellAreaFromResolution(t *testing.T) {
	s := NewSession(config.Default(), discard)
	page := conePage(10, 10)
	page.DPI = 2540
	s.AddPage(page)
	if err := s.GoTo(0); err != nil {
		t.Fatalf("GoTo(0): %v", err)
	}
	if _, err := s.SeedCell(nil); err != nil {
		t.Fatalf("SeedCell: %v", err)
	}
	stats, err := s.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	// 10 µm pixels, 9 pixel cell.
	if stats.DPI != 2540 || math.Abs(stats.CellArea-900) > 1e-9 {
		t.Fatalf("expected dpi 2540 area 900, got %v %v", stats.DPI, stats.CellArea)
	}
}
