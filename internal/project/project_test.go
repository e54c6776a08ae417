package project

import (
	"math"
	"path/filepath"
	"testing"

	"cell-tracker/internal/app"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	p := New("run")
	p.SetPages(path, []string{filepath.Join(dir, "pages", "a.tif"), "/abs/b.tif"})
	p.SetResults([]app.PageStats{
		{Page: 0, CellSize: 25, CellMean: 184, Background: 100, PIRatio: 1.84, DPI: 2540, CellArea: 2500},
		{Page: 1, CellSize: 9, Background: math.NaN(), PIRatio: math.NaN()},
	})
	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Pages[0] != filepath.Join("pages", "a.tif") {
		t.Fatalf("expected relative page path, got %q", got.Pages[0])
	}
	paths := got.PagePaths(path)
	if paths[0] != filepath.Join(dir, "pages", "a.tif") || paths[1] != "/abs/b.tif" {
		t.Fatalf("unexpected resolved paths %v", paths)
	}
	if len(got.Results) != 2 || *got.Results[0].PIRatio != 1.84 || got.Results[1].Background != nil {
		t.Fatalf("unexpected results %+v", got.Results)
	}
	if got.Results[0].DPI != 2540 || got.Results[0].CellArea != 2500 || got.Results[1].CellArea != 0 {
		t.Fatalf("expected resolution kept on page 0 only, got %+v", got.Results)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatalf("expected error for missing project")
	}
}
