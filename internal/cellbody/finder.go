// Package cellbody grows the cell-body region from its brightest pixel and
// keeps it marked on the shared ownership grid.
package cellbody

import (
	"errors"
	"fmt"
	"log/slog"

	"cell-tracker/internal/blob"
	"cell-tracker/internal/config"
	"cell-tracker/internal/grid"
	"cell-tracker/pkg/geometry"
	"cell-tracker/pkg/roierr"
)

var (
	// ErrNoSeed is returned when the seed area holds no unowned pixel.
	ErrNoSeed = fmt.Errorf("no unowned pixel in seed area: %w", roierr.ErrState)
	// ErrNoBody is returned by operations that need a grown region.
	ErrNoBody = fmt.Errorf("no cell body: %w", roierr.ErrState)
)

// Finder is the region-grower state machine for one cell body.
type Finder struct {
	grid   *grid.Grid
	pool   *grid.Pool
	cfg    config.CellBody
	logger *slog.Logger

	lease *grid.Lease
	state State
	body  *CellBody
}

// NewFinder returns a finder working on g with ids from pool.
func NewFinder(g *grid.Grid, pool *grid.Pool, cfg config.CellBody, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ThresholdStep <= 0 {
		cfg.ThresholdStep = 1
	}
	return &Finder{grid: g, pool: pool, cfg: cfg, logger: logger}
}

// State returns the current lifecycle stage.
func (f *Finder) State() State { return f.state }

// Body returns the current region, or nil. An accepted body stays readable.
func (f *Finder) Body() *CellBody { return f.body }

// ID returns the owner id the region is marked with, or grid.None.
func (f *Finder) ID() grid.ID { return f.lease.ID() }

type request struct {
	area      *geometry.Polygon
	size      *Size
	threshold *int
}

func collect(constraints []Constraint) (request, error) {
	var r request
	for _, c := range constraints {
		switch c := c.(type) {
		case SeedArea:
			if c.Area.IsZero() {
				return r, fmt.Errorf("empty seed area: %w", roierr.ErrArgument)
			}
			r.area = &c.Area
		case Size:
			if c.Target <= 0 {
				return r, fmt.Errorf("size target %d: %w", c.Target, roierr.ErrArgument)
			}
			r.size = &c
		case Threshold:
			if c.Value < 0 || c.Value > 255 {
				return r, fmt.Errorf("threshold %d outside 0-255: %w", c.Value, roierr.ErrArgument)
			}
			v := c.Value
			r.threshold = &v
		}
	}
	return r, nil
}

// Create picks a seed, grows the region and applies any size request.
// Without a SeedArea the whole grid is searched.
func (f *Finder) Create(constraints ...Constraint) (*CellBody, error) {
	if f.state.Live() {
		return nil, fmt.Errorf("cell body %d already exists: %w", f.lease.ID(), roierr.ErrState)
	}
	req, err := collect(constraints)
	if err != nil {
		return nil, err
	}
	seed, ok := f.pickSeed(req.area)
	if !ok {
		return nil, ErrNoSeed
	}
	lease, err := f.pool.Acquire()
	if err != nil {
		f.logger.Warn("region id pool exhausted", "available", f.pool.Available())
		return nil, err
	}
	prevState := f.state
	f.lease, f.state = lease, StateSeeded

	threshold := f.initialThreshold(seed, req.threshold)
	b, err := f.grow(seed, threshold)
	if err != nil {
		_ = f.pool.Release(lease)
		f.lease, f.state = nil, prevState
		return nil, err
	}
	f.body = f.measure(seed, threshold, b)
	f.state = StateGrown
	if req.size != nil {
		if err := f.resize(req.size.Target, req.size.Policy); err != nil {
			return nil, err
		}
	}
	f.logger.Info("cell body created", "id", lease.ID(), "seed", seed, "threshold", f.body.Threshold, "size", f.body.Size())
	return f.body, nil
}

// Follow grows a body on this page starting from the previous page's body:
// the seed is searched inside its bounding box and the size matched as
// closely as the thresholds allow.
func (f *Finder) Follow(prev *CellBody) (*CellBody, error) {
	if prev == nil || prev.Blob == nil {
		return nil, fmt.Errorf("follow without a previous body: %w", roierr.ErrArgument)
	}
	return f.Create(
		SeedArea{Area: prev.Blob.Box().Polygon()},
		Size{Target: prev.Size(), Policy: AsCloseAsPossible},
	)
}

// Edit changes the live region. A failed edit leaves the previous region marked.
func (f *Finder) Edit(c Constraint) (*CellBody, error) {
	if !f.state.Live() || f.body == nil {
		return nil, ErrNoBody
	}
	req, err := collect([]Constraint{c})
	if err != nil {
		return nil, err
	}
	switch {
	case req.area != nil:
		err = f.reseed(*req.area)
	case req.size != nil:
		err = f.resize(req.size.Target, req.size.Policy)
	case req.threshold != nil:
		err = f.regrowAt(min(*req.threshold, f.body.SeedIntensity))
	}
	if err != nil {
		return nil, err
	}
	f.state = StateEdited
	f.logger.Info("cell body edited", "id", f.lease.ID(), "threshold", f.body.Threshold, "size", f.body.Size())
	return f.body, nil
}

// Accept unmarks the region and returns its id. The body stays readable.
func (f *Finder) Accept() (*CellBody, error) {
	if !f.state.Live() || f.body == nil {
		return nil, ErrNoBody
	}
	id := f.lease.ID()
	if err := f.unmarkAll(); err != nil {
		return nil, err
	}
	f.state = StateAccepted
	f.logger.Info("cell body accepted", "id", id, "size", f.body.Size(), "mean", f.body.Mean())
	return f.body, nil
}

// Remove unmarks the region, returns its id and discards the body.
func (f *Finder) Remove() error {
	if !f.state.Live() {
		return ErrNoBody
	}
	id := f.lease.ID()
	if err := f.unmarkAll(); err != nil {
		return err
	}
	f.body, f.state = nil, StateRemoved
	f.logger.Info("cell body removed", "id", id)
	return nil
}

// Restore marks a previously computed body on the grid without regrowing.
func (f *Finder) Restore(body *CellBody) error {
	if body == nil || body.Blob == nil {
		return fmt.Errorf("restore without a body: %w", roierr.ErrArgument)
	}
	if f.state.Live() {
		return fmt.Errorf("cell body %d already exists: %w", f.lease.ID(), roierr.ErrState)
	}
	lease, err := f.pool.Acquire()
	if err != nil {
		f.logger.Warn("region id pool exhausted", "available", f.pool.Available())
		return err
	}
	f.lease = lease
	if err := f.mark(body.Blob); err != nil {
		_ = f.pool.Release(lease)
		f.lease = nil
		return err
	}
	f.body, f.state = body, StateGrown
	f.logger.Info("cell body restored", "id", lease.ID(), "size", body.Size())
	return nil
}

// unmarkAll releases the body's pixels and then its id. A pixel still held
// by the id afterwards is reported and the id is kept.
func (f *Finder) unmarkAll() error {
	id := f.lease.ID()
	if f.body != nil {
		f.unmark(f.body.Blob)
	}
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

func (f *Finder) initialThreshold(seed geometry.Point, explicit *int) int {
	si := int(f.grid.Intensity(seed))
	t := si - f.cfg.ThresholdMargin
	if explicit != nil {
		t = *explicit
	}
	return clamp(t, 0, si)
}

// pickSeed returns the brightest unowned pixel in area, nearest the area's
// centroid on ties. A nil area means the whole grid.
func (f *Finder) pickSeed(area *geometry.Polygon) (geometry.Point, bool) {
	var (
		candidates []geometry.Point
		centre     geometry.Point2D
	)
	if area == nil {
		box := f.grid.Bounds()
		candidates = box.Points()
		centre = geometry.Point2D{X: float64(box.MinX+box.MaxX) / 2, Y: float64(box.MinY+box.MaxY) / 2}
	} else {
		candidates = area.AllPoints()
		if len(candidates) == 0 {
			candidates = area.Vertices()
		}
		centre = area.Centroid()
	}

	var best geometry.Point
	bestI, bestD := -1, 0.0
	for _, p := range candidates {
		if !f.grid.InBounds(p) || f.grid.Owner(p) != grid.None {
			continue
		}
		i := int(f.grid.Intensity(p))
		d := p.ToFloat().Distance(centre)
		if i > bestI || (i == bestI && d < bestD) {
			best, bestI, bestD = p, i, d
		}
	}
	return best, bestI >= 0
}

// reseed drops the current region and grows a new one from the best seed in area.
func (f *Finder) reseed(area geometry.Polygon) error {
	prev := f.body
	f.unmark(prev.Blob)
	seed, ok := f.pickSeed(&area)
	if !ok {
		return errors.Join(ErrNoSeed, f.mark(prev.Blob))
	}
	threshold := f.initialThreshold(seed, nil)
	b, err := f.grow(seed, threshold)
	if err != nil {
		return errors.Join(err, f.mark(prev.Blob))
	}
	f.body = f.measure(seed, threshold, b)
	return nil
}

// regrowAt replaces the region with the one grown from the same seed at threshold.
func (f *Finder) regrowAt(threshold int) error {
	prev := f.body
	f.unmark(prev.Blob)
	b, err := f.grow(prev.Seed, threshold)
	if err != nil {
		return errors.Join(err, f.mark(prev.Blob))
	}
	f.body = f.measure(prev.Seed, threshold, b)
	return nil
}

func (f *Finder) measure(seed geometry.Point, threshold int, b *blob.Blob) *CellBody {
	return measure(f.grid, seed, threshold, b, f.cfg.ProfileAnglesDeg, f.cfg.ProfilePadding)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
