// Command growtest sweeps the growth threshold from one seed and prints the
// resulting cell body sizes, which helps pick -size targets for a stack.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cell-tracker/internal/cellbody"
	"cell-tracker/internal/config"
	"cell-tracker/internal/grid"
	cellimage "cell-tracker/internal/image"
	"cell-tracker/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Path to page image (TIFF, PNG, or JPEG)")
	seedFlag := flag.String("seed", "", "Seed pixel x,y (default brightest pixel)")
	from := flag.Int("from", 0, "First threshold")
	to := flag.Int("to", 255, "Last threshold")
	step := flag.Int("step", 8, "Threshold step")
	flag.Parse()

	if *imagePath == "" || *step <= 0 {
		fmt.Println("Usage: growtest -image <path> [-seed x,y] [-from 0] [-to 255] [-step 8]")
		os.Exit(1)
	}

	page, err := cellimage.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %s: %dx%d pixels\n", *imagePath, page.Width(), page.Height())

	var seed *geometry.Point
	if *seedFlag != "" {
		p, err := parseSeed(*seedFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -seed: %v\n", err)
			os.Exit(1)
		}
		seed = &p
	}

	cfg := config.Default().CellBody
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Printf("\n%9s %8s %8s %8s\n", "threshold", "size", "mean", "p90")
	for t := *from; t <= *to; t += *step {
		g, err := page.Grid()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build grid: %v\n", err)
			os.Exit(1)
		}
		constraints := []cellbody.Constraint{cellbody.Threshold{Value: t}}
		if seed != nil {
			area := geometry.BoxFromCorners(*seed, *seed).Polygon()
			constraints = append(constraints, cellbody.SeedArea{Area: area})
		}
		body, err := cellbody.NewFinder(g, grid.NewPool(), cfg, quiet).Create(constraints...)
		if err != nil {
			fmt.Printf("%9d %8s\n", t, "-")
			continue
		}
		fmt.Printf("%9d %8d %8.2f %8.1f\n", t, body.Size(), body.Mean(), body.Percentile(90))
	}
}

func parseSeed(s string) (geometry.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return geometry.Point{}, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Pt(x, y), nil
}
