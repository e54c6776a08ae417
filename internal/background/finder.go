package background

import (
	"errors"
	"fmt"
	"log/slog"

	"cell-tracker/internal/blob"
	"cell-tracker/internal/grid"
	"cell-tracker/internal/histogram"
	"cell-tracker/pkg/geometry"
	"cell-tracker/pkg/roierr"
)

// State is the lifecycle stage of a background finder.
type State int

const (
	StateNone State = iota
	StatePlaced
	StateInvalid
	StateAccepted
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StatePlaced:
		return "placed"
	case StateInvalid:
		return "invalid"
	case StateAccepted:
		return "accepted"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Live reports whether the finder holds a region id.
func (s State) Live() bool {
	return s == StatePlaced || s == StateInvalid
}

// Finder places and tracks one background on a grid.
type Finder struct {
	grid   *grid.Grid
	pool   *grid.Pool
	logger *slog.Logger

	lease *grid.Lease
	state State
	bg    *Background
}

// NewFinder returns a finder working on g with ids from pool.
func NewFinder(g *grid.Grid, pool *grid.Pool, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{grid: g, pool: pool, logger: logger}
}

// State returns the current lifecycle stage.
func (f *Finder) State() State { return f.state }

// Background returns the current placement, or nil.
func (f *Finder) Background() *Background { return f.bg }

// ID returns the owner id the background is marked with, or grid.None.
func (f *Finder) ID() grid.ID { return f.lease.ID() }

// Create places shape at its own origin and orientation. An invalid
// placement is not an error: the background is kept without an area.
func (f *Finder) Create(shape Shape) (*Background, Placement, error) {
	if shape.Area.IsZero() {
		return nil, PlacementOK, fmt.Errorf("empty background shape: %w", roierr.ErrArgument)
	}
	return f.start("created", shape, shape.Origin, shape.Theta)
}

// Follow places the previous page's background shape on this page. With a
// cell outline the background is aligned to it, otherwise it keeps the
// previous origin and orientation.
func (f *Finder) Follow(prev *Background, cell *blob.Blob) (*Background, Placement, error) {
	if prev == nil || prev.Shape.Area.IsZero() {
		return nil, PlacementOK, fmt.Errorf("follow without a previous background: %w", roierr.ErrArgument)
	}
	origin, theta := prev.Origin, prev.Theta
	if cell != nil {
		origin, theta = alignment(cell)
		theta = prev.Theta + FoldAngle(theta-prev.Theta)
	}
	return f.start("followed", prev.Shape, origin, theta)
}

func (f *Finder) start(verb string, shape Shape, origin geometry.Point, theta float64) (*Background, Placement, error) {
	if f.state.Live() {
		return nil, PlacementOK, fmt.Errorf("background %d already exists: %w", f.lease.ID(), roierr.ErrState)
	}
	lease, err := f.pool.Acquire()
	if err != nil {
		f.logger.Warn("region id pool exhausted", "available", f.pool.Available())
		return nil, PlacementOK, err
	}
	f.lease = lease
	pl, err := f.place(shape, origin, theta)
	if err != nil {
		_ = f.pool.Release(lease)
		f.lease = nil
		return nil, pl, err
	}
	f.logger.Info("background "+verb, "id", lease.ID(), "placement", pl, "origin", origin, "theta", theta)
	return f.bg, pl, nil
}

// Edit applies one constraint. A Shape redefines the background from
// scratch; Origin and Theta move the existing shape.
func (f *Finder) Edit(c Constraint) (*Background, Placement, error) {
	if !f.state.Live() {
		return nil, PlacementOK, ErrNoArea
	}
	shape, origin, theta := f.bg.Shape, f.bg.Origin, f.bg.Theta
	switch c := c.(type) {
	case Shape:
		if c.Area.IsZero() {
			return nil, PlacementOK, fmt.Errorf("empty background shape: %w", roierr.ErrArgument)
		}
		shape, origin, theta = c, c.Origin, c.Theta
	case Origin:
		origin = c.Point
	case Theta:
		theta = c.Radians
	default:
		return nil, PlacementOK, fmt.Errorf("unknown constraint %T: %w", c, roierr.ErrArgument)
	}
	f.unmark()
	pl, err := f.place(shape, origin, theta)
	return f.bg, pl, err
}

// Track moves the background to origin and turns it toward theta, taking
// whichever of theta and theta+π is nearer the current orientation.
func (f *Finder) Track(origin geometry.Point, theta float64) (*Background, Placement, error) {
	if !f.state.Live() {
		return nil, PlacementOK, ErrNoArea
	}
	next := f.bg.Theta + FoldAngle(theta-f.bg.Theta)
	f.unmark()
	pl, err := f.place(f.bg.Shape, origin, next)
	return f.bg, pl, err
}

// AlignTo tracks the longest diameter of cell: its midpoint becomes the
// origin and its direction the orientation.
func (f *Finder) AlignTo(cell *blob.Blob) (*Background, Placement, error) {
	if cell == nil {
		return nil, PlacementOK, fmt.Errorf("align to nil blob: %w", roierr.ErrArgument)
	}
	origin, theta := alignment(cell)
	return f.Track(origin, theta)
}

func alignment(cell *blob.Blob) (geometry.Point, float64) {
	d := cell.MaxDiameter()
	return d.Midpoint(), d.Angle()
}

// Accept unmarks a valid background and returns its id.
func (f *Finder) Accept() (*Background, error) {
	if f.state != StatePlaced {
		return nil, ErrNoArea
	}
	id := f.lease.ID()
	if err := f.release(); err != nil {
		return nil, err
	}
	f.state = StateAccepted
	f.logger.Info("background accepted", "id", id, "mean", f.bg.Mean())
	return f.bg, nil
}

// Remove unmarks the background, returns its id and discards it.
func (f *Finder) Remove() error {
	if !f.state.Live() {
		return ErrNoArea
	}
	id := f.lease.ID()
	if err := f.release(); err != nil {
		return err
	}
	f.bg, f.state = nil, StateRemoved
	f.logger.Info("background removed", "id", id)
	return nil
}

// Restore marks a previously placed background on the grid as it was.
func (f *Finder) Restore(bg *Background) error {
	if !bg.Valid() {
		return fmt.Errorf("restore without an area: %w", roierr.ErrArgument)
	}
	if f.state.Live() {
		return fmt.Errorf("background %d already exists: %w", f.lease.ID(), roierr.ErrState)
	}
	lease, err := f.pool.Acquire()
	if err != nil {
		f.logger.Warn("region id pool exhausted", "available", f.pool.Available())
		return err
	}
	claims := f.grid.NewClaims(lease.ID())
	for _, p := range bg.Area.AllPoints() {
		if _, err := claims.Claim(p); err != nil {
			claims.Rollback()
			_ = f.pool.Release(lease)
			return err
		}
	}
	f.lease, f.bg, f.state = lease, bg, StatePlaced
	f.logger.Info("background restored", "id", lease.ID())
	return nil
}

func (f *Finder) release() error {
	id := f.lease.ID()
	f.unmark()
	if n := f.grid.CountOwned(id); n != 0 {
		f.logger.Error("stray cells after unmarking", "id", id, "count", n)
		return fmt.Errorf("%d cells still owned by %d after unmarking: %w", n, id, roierr.ErrState)
	}
	if err := f.pool.Release(f.lease); err != nil {
		return err
	}
	f.lease = nil
	return nil
}

// unmark releases the pixels of the placed area. An invalid placement holds none.
func (f *Finder) unmark() {
	if f.bg == nil || f.bg.Area == nil {
		return
	}
	id := f.lease.ID()
	for _, p := range f.bg.Area.AllPoints() {
		if f.grid.Owner(p) == id {
			f.grid.ClearOwner(p)
		}
	}
}

// place marks shape at origin and theta. An out-of-bounds or colliding
// placement leaves nothing marked and records the background without an area.
func (f *Finder) place(shape Shape, origin geometry.Point, theta float64) (Placement, error) {
	poly := shape.place(origin, theta)
	bg := &Background{Origin: origin, Theta: theta, Shape: shape}

	pl := PlacementOK
	if !f.grid.Bounds().ContainsBox(poly.Box()) {
		pl = PlacementOutOfBounds
	} else {
		claims := f.grid.NewClaims(f.lease.ID())
		for _, p := range poly.AllPoints() {
			if _, err := claims.Claim(p); err != nil {
				claims.Rollback()
				if !errors.Is(err, grid.ErrOwned) {
					return pl, err
				}
				pl = PlacementCollision
				break
			}
		}
	}

	if pl != PlacementOK {
		f.bg, f.state = bg, StateInvalid
		f.logger.Warn("background placement invalid", "id", f.lease.ID(), "placement", pl, "origin", origin, "theta", theta)
		return pl, nil
	}
	bg.Area = &poly
	bg.PI = f.intensities(poly.AllPoints())
	bg.Edge = f.intensities(poly.Edges())
	f.bg, f.state = bg, StatePlaced
	return pl, nil
}

func (f *Finder) intensities(pts []geometry.Point) *histogram.Histogram {
	b, _ := histogram.NewBuilder(0, 255)
	for _, p := range pts {
		_ = b.Add(int(f.grid.Intensity(p)))
	}
	return b.Build()
}
