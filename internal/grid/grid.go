// Package grid provides the owned pixel grid shared by every tracked region.
//
// Each cell carries an intensity and at most one owner id. A cell owned by one
// region can only be claimed by another after it has been cleared.
package grid

import (
	"fmt"
	"image"

	"cell-tracker/pkg/geometry"
	"cell-tracker/pkg/roierr"
)

// ID identifies a region owning pixels. The zero ID means unowned.
type ID uint8

// None is the owner of unclaimed cells.
const None ID = 0

// ErrOwned is returned when a cell is already owned by a different region.
var ErrOwned = fmt.Errorf("pixel owned by another region: %w", roierr.ErrState)

// Cell is one grid position.
type Cell struct {
	Intensity uint8
	Owner     ID
}

// Grid is a width x height array of cells stored row-major.
type Grid struct {
	width  int
	height int
	cells  []Cell
}

// New creates an all-zero grid.
func New(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid size %dx%d: %w", width, height, roierr.ErrArgument)
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}, nil
}

// FromGray creates a grid holding the image's pixel values, with the image's
// minimum bound mapped to (0, 0).
func FromGray(img *image.Gray) (*Grid, error) {
	b := img.Bounds()
	g, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < g.height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+g.width]
		for x, v := range row {
			g.cells[y*g.width+x].Intensity = v
		}
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Bounds returns the grid extent as a bounding box.
func (g *Grid) Bounds() geometry.BoundingBox {
	return geometry.BoundingBox{MinX: 0, MaxX: g.width - 1, MinY: 0, MaxY: g.height - 1}
}

// InBounds reports whether p addresses a cell.
func (g *Grid) InBounds(p geometry.Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid) cell(p geometry.Point) (*Cell, error) {
	if !g.InBounds(p) {
		return nil, fmt.Errorf("pixel %v outside %dx%d grid: %w", p, g.width, g.height, roierr.ErrArgument)
	}
	return &g.cells[p.Y*g.width+p.X], nil
}

// Intensity returns the pixel value at p. Out-of-bounds pixels read as 0.
func (g *Grid) Intensity(p geometry.Point) uint8 {
	if !g.InBounds(p) {
		return 0
	}
	return g.cells[p.Y*g.width+p.X].Intensity
}

// SetIntensity stores a pixel value.
func (g *Grid) SetIntensity(p geometry.Point, v uint8) error {
	c, err := g.cell(p)
	if err != nil {
		return err
	}
	c.Intensity = v
	return nil
}

// Owner returns the id owning p, or None.
func (g *Grid) Owner(p geometry.Point) ID {
	if !g.InBounds(p) {
		return None
	}
	return g.cells[p.Y*g.width+p.X].Owner
}

// SetOwner claims p for id. Claiming a cell already held by id is a no-op;
// claiming one held by another id fails with ErrOwned and changes nothing.
func (g *Grid) SetOwner(p geometry.Point, id ID) error {
	if id == None {
		return fmt.Errorf("claim %v with no owner: %w", p, roierr.ErrArgument)
	}
	c, err := g.cell(p)
	if err != nil {
		return err
	}
	switch c.Owner {
	case id:
		return nil
	case None:
		c.Owner = id
		return nil
	default:
		return fmt.Errorf("claim %v for %d, held by %d: %w", p, id, c.Owner, ErrOwned)
	}
}

// ClearOwner releases p. Clearing an unowned or out-of-bounds cell is a no-op.
func (g *Grid) ClearOwner(p geometry.Point) {
	if g.InBounds(p) {
		g.cells[p.Y*g.width+p.X].Owner = None
	}
}

// OwnedBy returns every cell held by id in row-major order.
func (g *Grid) OwnedBy(id ID) []geometry.Point {
	var pts []geometry.Point
	for i, c := range g.cells {
		if c.Owner == id {
			pts = append(pts, geometry.Point{X: i % g.width, Y: i / g.width})
		}
	}
	return pts
}

// CountOwned returns how many cells id holds.
func (g *Grid) CountOwned(id ID) int {
	n := 0
	for _, c := range g.cells {
		if c.Owner == id {
			n++
		}
	}
	return n
}

// Claims records cells newly claimed during one operation so they can be
// released together if the operation fails.
type Claims struct {
	grid *Grid
	id   ID
	pts  []geometry.Point
}

// NewClaims starts an empty claim log for id.
func (g *Grid) NewClaims(id ID) *Claims {
	return &Claims{grid: g, id: id}
}

// Claim takes p for the log's owner. It reports whether p was newly claimed;
// cells the owner already holds are left out of the log.
func (c *Claims) Claim(p geometry.Point) (bool, error) {
	if c.grid.Owner(p) == c.id {
		return false, nil
	}
	if err := c.grid.SetOwner(p, c.id); err != nil {
		return false, err
	}
	c.pts = append(c.pts, p)
	return true, nil
}

// Points returns the cells claimed so far.
func (c *Claims) Points() []geometry.Point {
	return c.pts
}

// Len returns the number of cells claimed so far.
func (c *Claims) Len() int {
	return len(c.pts)
}

// Rollback releases every cell in the log and empties it.
func (c *Claims) Rollback() {
	for _, p := range c.pts {
		c.grid.ClearOwner(p)
	}
	c.pts = nil
}
