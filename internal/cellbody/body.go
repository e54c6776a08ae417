package cellbody

import (
	"math"

	"cell-tracker/internal/blob"
	"cell-tracker/internal/grid"
	"cell-tracker/internal/histogram"
	"cell-tracker/pkg/geometry"
)

// CellBody is a grown region together with the measurements taken from it.
type CellBody struct {
	Seed          geometry.Point
	SeedIntensity int
	Threshold     int
	Blob          *blob.Blob
	// PI summarizes the intensity of every pixel in the region.
	PI       *histogram.Histogram
	Profiles []Profile
}

// Profile is the intensity along one straight line through the seed.
type Profile struct {
	AngleDeg float64
	Points   []geometry.Point
	Values   []uint8
}

// Size returns the region's pixel count.
func (c *CellBody) Size() int {
	return c.Blob.Size()
}

// Mean returns the mean pixel intensity.
func (c *CellBody) Mean() float64 {
	return c.PI.Mean()
}

// Percentile returns the p-th intensity percentile, p in [0,100].
func (c *CellBody) Percentile(p float64) float64 {
	return c.PI.Percentile(p)
}

func measure(g *grid.Grid, seed geometry.Point, threshold int, b *blob.Blob, angles []float64, padding int) *CellBody {
	hb, _ := histogram.NewBuilder(0, 255)
	for _, p := range b.AllPoints() {
		_ = hb.Add(int(g.Intensity(p)))
	}
	body := &CellBody{
		Seed:          seed,
		SeedIntensity: int(g.Intensity(seed)),
		Threshold:     threshold,
		Blob:          b,
		PI:            hb.Build(),
	}
	box := b.Box()
	half := float64(max(box.Width(), box.Height()) + padding)
	for _, deg := range angles {
		body.Profiles = append(body.Profiles, profile(g, seed, deg, half))
	}
	return body
}

// profile samples the grid along a line of length 2*half centred on seed.
func profile(g *grid.Grid, seed geometry.Point, deg, half float64) Profile {
	rad := deg * math.Pi / 180
	off := geometry.Point2D{X: half * math.Cos(rad), Y: half * math.Sin(rad)}.Round()
	seg := geometry.Seg(seed.Sub(off), seed.Add(off))
	pr := Profile{AngleDeg: deg}
	for _, p := range seg.Points(true, true) {
		if !g.InBounds(p) {
			continue
		}
		pr.Points = append(pr.Points, p)
		pr.Values = append(pr.Values, g.Intensity(p))
	}
	return pr
}
