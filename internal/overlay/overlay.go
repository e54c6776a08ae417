// Package overlay draws tracked regions over a page for visual checking.
package overlay

import (
	"fmt"
	goimage "image"
	"image/color"

	"cell-tracker/internal/background"
	"cell-tracker/internal/cellbody"
	"cell-tracker/pkg/colorutil"
	"cell-tracker/pkg/geometry"

	"gocv.io/x/gocv"
)

var (
	cellColor     = colorutil.Green
	seedColor     = colorutil.Red
	diameterColor = colorutil.Yellow
	bgColor       = colorutil.Azure
)

// Mark is a single coloured pixel.
type Mark struct {
	At    geometry.Point
	Color color.RGBA
}

// Stroke is a coloured line.
type Stroke struct {
	Seg   geometry.LineSegment
	Color color.RGBA
}

// Ring is a circle outline.
type Ring struct {
	Center geometry.Point
	Radius int
	Color  color.RGBA
}

// Scene lists what to draw over a page.
type Scene struct {
	Marks   []Mark
	Strokes []Stroke
	Rings   []Ring
}

// Build collects the primitives for a cell body and a background. Either may be nil.
func Build(cell *cellbody.CellBody, bg *background.Background) Scene {
	var s Scene
	if cell != nil && cell.Blob != nil {
		for _, p := range cell.Blob.Edges() {
			s.Marks = append(s.Marks, Mark{At: p, Color: cellColor})
		}
		s.Strokes = append(s.Strokes, Stroke{Seg: cell.Blob.MaxDiameter(), Color: diameterColor})
		s.Rings = append(s.Rings, Ring{Center: cell.Seed, Radius: 3, Color: seedColor})
	}
	if bg.Valid() {
		v := bg.Area.Vertices()
		for i := range v {
			s.Strokes = append(s.Strokes, Stroke{Seg: geometry.Seg(v[i], v[(i+1)%len(v)]), Color: bgColor})
		}
		s.Rings = append(s.Rings, Ring{Center: bg.Origin, Radius: 2, Color: bgColor})
	}
	return s
}

// Write renders scene over the grayscale page and saves it to path. The
// file format follows the extension.
func Write(path string, page *goimage.Gray, scene Scene) error {
	b := page.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := page.Pix
	if page.Stride != w {
		pix = make([]byte, 0, w*h)
		for y := 0; y < h; y++ {
			pix = append(pix, page.Pix[y*page.Stride:y*page.Stride+w]...)
		}
	}

	gray, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return fmt.Errorf("failed to wrap page: %w", err)
	}
	defer gray.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)

	for _, m := range scene.Marks {
		if m.At.X < 0 || m.At.X >= w || m.At.Y < 0 || m.At.Y >= h {
			continue
		}
		for ch, v := range colorutil.BGR(m.Color) {
			bgr.SetUCharAt(m.At.Y, m.At.X*3+ch, v)
		}
	}
	for _, s := range scene.Strokes {
		gocv.Line(&bgr, toImage(s.Seg.A), toImage(s.Seg.B), s.Color, 1)
	}
	for _, r := range scene.Rings {
		gocv.Circle(&bgr, toImage(r.Center), r.Radius, r.Color, 1)
	}

	if !gocv.IMWrite(path, bgr) {
		return fmt.Errorf("failed to write overlay %s", path)
	}
	return nil
}

func toImage(p geometry.Point) goimage.Point {
	return goimage.Point{X: p.X, Y: p.Y}
}
