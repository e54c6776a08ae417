// Command cell-tracker segments a cell body and a background region on a
// stack of grayscale pages and prints per-page intensity statistics.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cell-tracker/internal/app"
	"cell-tracker/internal/background"
	"cell-tracker/internal/cellbody"
	"cell-tracker/internal/config"
	"cell-tracker/internal/overlay"
	"cell-tracker/internal/project"
	"cell-tracker/internal/version"
	"cell-tracker/pkg/geometry"
)

type options struct {
	seed      *geometry.Polygon
	size      int
	policy    cellbody.Policy
	threshold int
	bg        *geometry.Polygon
	bgOrigin  *geometry.Point
	bgTheta   *float64
	overlay   string
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "YAML file with finder parameters")
	seed := flag.String("seed", "", "Seed area polygon x0,y0,x1,y1,... (default whole page)")
	size := flag.Int("size", 0, "Target cell size in pixels")
	policy := flag.String("policy", "close", "Size policy: close, bigger or smaller")
	threshold := flag.Int("threshold", -1, "Fixed growth threshold 0-255")
	bg := flag.String("bg", "", "Background polygon x0,y0,x1,y1,...")
	bgOrigin := flag.String("bg-origin", "", "Background origin x,y (default the cell's long axis midpoint)")
	bgTheta := flag.Float64("bg-theta", math.NaN(), "Background orientation in degrees (default the cell's long axis)")
	overlayDir := flag.String("overlay", "", "Directory to write overlay images into")
	asJSON := flag.Bool("json", false, "Print statistics as JSON")
	projectPath := flag.String("project", "", "Project file to read pages from when none are given")
	savePath := flag.String("save", "", "Write pages and results to this project file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	pages := flag.Args()
	if len(pages) == 0 && *projectPath != "" {
		proj, err := project.Load(*projectPath)
		if err != nil {
			log.Fatalf("Failed to load project: %v", err)
		}
		pages = proj.PagePaths(*projectPath)
		if *configPath == "" && proj.ConfigPath != "" {
			*configPath = proj.ConfigPath
		}
	}
	if len(pages) == 0 {
		fmt.Println("Usage: cell-tracker [-config cfg.yaml] [-seed x,y,...] [-size N] [-policy close|bigger|smaller] [-bg x,y,...] [-overlay dir] [-save run.json] page.tif ...")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	opts := options{size: *size, threshold: *threshold, overlay: *overlayDir}
	if opts.seed, err = parsePolygon(*seed); err != nil {
		log.Fatalf("Invalid -seed: %v", err)
	}
	if opts.bg, err = parsePolygon(*bg); err != nil {
		log.Fatalf("Invalid -bg: %v", err)
	}
	if opts.policy, err = parsePolicy(*policy); err != nil {
		log.Fatalf("Invalid -policy: %v", err)
	}
	if *bgOrigin != "" {
		pts, err := parsePoints(*bgOrigin)
		if err != nil || len(pts) != 1 {
			log.Fatalf("Invalid -bg-origin %q", *bgOrigin)
		}
		opts.bgOrigin = &pts[0]
	}
	if !math.IsNaN(*bgTheta) {
		rad := *bgTheta * math.Pi / 180
		opts.bgTheta = &rad
	} else if opts.bgOrigin != nil {
		rad := cfg.Background.DefaultTheta
		opts.bgTheta = &rad
	}

	session := app.NewSession(cfg, logger)
	if err := session.Open(pages); err != nil {
		log.Fatalf("Failed to open pages: %v", err)
	}
	if err := run(session, opts); err != nil {
		log.Fatalf("%v", err)
	}

	stats := session.AllStats()
	if *savePath != "" {
		proj := project.New(strings.TrimSuffix(filepath.Base(*savePath), filepath.Ext(*savePath)))
		proj.SetPages(*savePath, pages)
		proj.ConfigPath = *configPath
		proj.SetResults(stats)
		if err := proj.Save(*savePath); err != nil {
			log.Fatalf("Failed to save project: %v", err)
		}
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(project.Results(stats)); err != nil {
			log.Fatalf("Failed to encode statistics: %v", err)
		}
		return
	}
	printStats(stats)
}

// run analyzes the first page from the options and lets every later page
// follow the one before it.
func run(s *app.Session, opts options) error {
	if err := analyzeFirst(s, opts); err != nil {
		return fmt.Errorf("page 0: %w", err)
	}
	if err := finish(s, opts); err != nil {
		return fmt.Errorf("page 0: %w", err)
	}
	for i := 1; i < s.PageCount(); i++ {
		if err := s.GoTo(i); err != nil {
			slog.Warn("page not tracked", "page", i, "error", err)
		}
		if err := finish(s, opts); err != nil {
			slog.Warn("page not accepted", "page", i, "error", err)
		}
	}
	return nil
}

func analyzeFirst(s *app.Session, opts options) error {
	if _, err := s.SeedCell(opts.seed); err != nil {
		return err
	}
	if opts.threshold >= 0 {
		if _, err := s.SetCellThreshold(opts.threshold); err != nil {
			return err
		}
	}
	if opts.size > 0 {
		if _, err := s.ResizeCell(opts.size, opts.policy); err != nil {
			return err
		}
	}
	if opts.bg == nil {
		return nil
	}

	origin, theta, err := s.CellAxis()
	if err != nil {
		return err
	}
	if opts.bgOrigin != nil {
		origin = *opts.bgOrigin
	}
	if opts.bgTheta != nil {
		theta = *opts.bgTheta
	}
	_, pl, err := s.DefineBackground(*opts.bg, origin, theta)
	if err != nil {
		return err
	}
	if pl != background.PlacementOK {
		slog.Warn("background placement rejected", "placement", pl)
	}
	return nil
}

// finish drops an unplaceable background, accepts the page and writes its overlay.
func finish(s *app.Session, opts options) error {
	cell, bg, err := s.Regions()
	if err != nil {
		return err
	}
	if bg != nil && !bg.Valid() {
		if err := s.RemoveBackground(); err != nil {
			return err
		}
		bg = nil
	}
	if cell == nil {
		return cellbody.ErrNoBody
	}
	if _, err := s.Accept(); err != nil {
		return err
	}
	if opts.overlay == "" {
		return nil
	}
	page, err := s.Page()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.overlay, 0o755); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}
	path := filepath.Join(opts.overlay, fmt.Sprintf("page-%03d.png", page.Index))
	return overlay.Write(path, page.Gray(), overlay.Build(cell, bg))
}

func printStats(stats []app.PageStats) {
	fmt.Printf("%-5s %8s %9s %7s %7s %9s %10s %8s %10s\n", "page", "size", "threshold", "mean", "p50", "p90", "background", "ratio", "area_um2")
	for _, st := range stats {
		area := "-"
		if st.DPI > 0 {
			area = fmt.Sprintf("%.1f", st.CellArea)
		}
		fmt.Printf("%-5d %8d %9d %7.2f %7.1f %9.1f %10.2f %8.3f %10s\n",
			st.Page, st.CellSize, st.Threshold, st.CellMean, st.CellP50, st.CellP90, st.Background, st.PIRatio, area)
	}
}

// parsePoints reads "x0,y0,x1,y1,...".
func parsePoints(s string) ([]geometry.Point, error) {
	fields := strings.Split(s, ",")
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates in %q", s)
	}
	pts := make([]geometry.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, err
		}
		y, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			return nil, err
		}
		pts = append(pts, geometry.Pt(x, y))
	}
	return pts, nil
}

// parsePolygon returns nil for an empty string.
func parsePolygon(s string) (*geometry.Polygon, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	pts, err := parsePoints(s)
	if err != nil {
		return nil, err
	}
	p, err := geometry.NewPolygon(pts)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func parsePolicy(s string) (cellbody.Policy, error) {
	switch strings.ToLower(s) {
	case "close", "":
		return cellbody.AsCloseAsPossible, nil
	case "bigger":
		return cellbody.Bigger, nil
	case "smaller":
		return cellbody.Smaller, nil
	default:
		return 0, errors.New("policy must be close, bigger or smaller")
	}
}
