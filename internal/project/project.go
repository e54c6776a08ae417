// Package project provides project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"cell-tracker/internal/app"
)

// File is a cell-tracker project: the page stack and the accepted results.
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Page paths, relative to the project file when possible.
	Pages      []string `json:"pages"`
	ConfigPath string   `json:"config,omitempty"`

	Results []PageResult `json:"results,omitempty"`
}

// PageResult is one accepted page. Background figures are absent when the
// page had no background.
type PageResult struct {
	Page       int      `json:"page"`
	CellSize   int      `json:"cell_size"`
	Threshold  int      `json:"threshold"`
	CellMean   float64  `json:"cell_mean"`
	CellP50    float64  `json:"cell_p50"`
	CellP90    float64  `json:"cell_p90"`
	Background *float64 `json:"background_mean,omitempty"`
	PIRatio    *float64 `json:"pi_ratio,omitempty"`
	DPI        float64  `json:"dpi,omitempty"`
	CellArea   float64  `json:"cell_area_um2,omitempty"`
}

// New creates an empty project.
func New(name string) *File {
	now := time.Now()
	return &File{Version: 1, Name: name, Created: now, Modified: now}
}

// Load loads a project file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}
	return &proj, nil
}

// Save writes the project to path.
func (p *File) Save(path string) error {
	p.Modified = time.Now()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SetPages records page paths relative to the project file.
func (p *File) SetPages(projectPath string, paths []string) {
	p.Pages = p.Pages[:0]
	for _, path := range paths {
		p.Pages = append(p.Pages, relative(projectPath, path))
	}
	p.Modified = time.Now()
}

// PagePaths returns the page paths resolved against the project file.
func (p *File) PagePaths(projectPath string) []string {
	out := make([]string, 0, len(p.Pages))
	for _, path := range p.Pages {
		if filepath.IsAbs(path) {
			out = append(out, path)
		} else {
			out = append(out, filepath.Join(filepath.Dir(projectPath), path))
		}
	}
	return out
}

// SetResults replaces the stored results.
func (p *File) SetResults(stats []app.PageStats) {
	p.Results = Results(stats)
	p.Modified = time.Now()
}

// Results converts session statistics to their stored form.
func Results(stats []app.PageStats) []PageResult {
	out := make([]PageResult, 0, len(stats))
	for _, st := range stats {
		r := PageResult{
			Page:      st.Page,
			CellSize:  st.CellSize,
			Threshold: st.Threshold,
			CellMean:  st.CellMean,
			CellP50:   st.CellP50,
			CellP90:   st.CellP90,
			DPI:       st.DPI,
			CellArea:  st.CellArea,
		}
		if !math.IsNaN(st.Background) {
			bg, ratio := st.Background, st.PIRatio
			r.Background, r.PIRatio = &bg, &ratio
		}
		out = append(out, r)
	}
	return out
}

func relative(projectPath, path string) string {
	rel, err := filepath.Rel(filepath.Dir(projectPath), path)
	if err != nil {
		return path
	}
	return rel
}
