package cellbody

import (
	"fmt"

	"cell-tracker/internal/blob"
	"cell-tracker/internal/grid"
	"cell-tracker/pkg/geometry"
)

var neighbours4 = [4]geometry.Point{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}

// grow floods out from seed over unowned 4-neighbours at or above threshold,
// then fills the traced outline. On failure every cell claimed by this
// attempt is released again.
func (f *Finder) grow(seed geometry.Point, threshold int) (*blob.Blob, error) {
	claims := f.grid.NewClaims(f.lease.ID())
	if _, err := claims.Claim(seed); err != nil {
		return nil, err
	}
	region := []geometry.Point{seed}
	frontier := []geometry.Point{seed}
	for len(frontier) > 0 {
		p := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, d := range neighbours4 {
			q := p.Add(d)
			if !f.grid.InBounds(q) || f.grid.Owner(q) != grid.None || int(f.grid.Intensity(q)) < threshold {
				continue
			}
			if _, err := claims.Claim(q); err != nil {
				claims.Rollback()
				return nil, err
			}
			region = append(region, q)
			frontier = append(frontier, q)
		}
	}

	b, err := blob.FromContour(blob.Trace(region))
	if err != nil {
		claims.Rollback()
		return nil, err
	}
	// Holes enclosed by the outline belong to the region too.
	for _, p := range b.Innards() {
		if _, err := claims.Claim(p); err != nil {
			claims.Rollback()
			return nil, fmt.Errorf("fill region %d: %w", f.lease.ID(), err)
		}
	}
	return b, nil
}

// mark claims every pixel of b, all or nothing.
func (f *Finder) mark(b *blob.Blob) error {
	claims := f.grid.NewClaims(f.lease.ID())
	for _, p := range b.AllPoints() {
		if _, err := claims.Claim(p); err != nil {
			claims.Rollback()
			return err
		}
	}
	return nil
}

// unmark releases the pixels of b that this finder owns.
func (f *Finder) unmark(b *blob.Blob) {
	id := f.lease.ID()
	for _, p := range b.AllPoints() {
		if f.grid.Owner(p) == id {
			f.grid.ClearOwner(p)
		}
	}
}

// resize steps the threshold from the current one, regrowing from the seed
// each time, until the size reaches or passes target. The policy then
// decides between the last two sizes. Thresholds stay within
// [0, seed intensity]; hitting a bound ends the search early.
func (f *Finder) resize(target int, policy Policy) error {
	orig := f.body
	cur := orig
	if cur.Size() == target {
		return nil
	}
	step := f.cfg.ThresholdStep
	growing := cur.Size() < target
	if growing {
		step = -step
	}
	crossed := func(size int) bool {
		if growing {
			return size >= target
		}
		return size <= target
	}

	prev := cur
	for {
		t := clamp(cur.Threshold+step, 0, cur.SeedIntensity)
		if t == cur.Threshold {
			break
		}
		f.unmark(cur.Blob)
		b, err := f.grow(cur.Seed, t)
		if err != nil {
			// grow rolled back its own claims and cur is already unmarked.
			if merr := f.mark(orig.Blob); merr != nil {
				return fmt.Errorf("%w; restoring previous region: %w", err, merr)
			}
			f.body = orig
			return err
		}
		prev, cur = cur, f.measure(cur.Seed, t, b)
		f.logger.Debug("cell body resize step", "id", f.lease.ID(), "threshold", t, "size", cur.Size(), "target", target)
		if crossed(cur.Size()) {
			break
		}
	}
	f.body = cur
	if cur == prev || !crossed(cur.Size()) || cur.Size() == target {
		return nil
	}

	back := false
	switch policy {
	case Bigger:
		back = cur.Size() < target
	case Smaller:
		back = cur.Size() > target
	default:
		back = distance(prev.Size(), target) < distance(cur.Size(), target)
	}
	if !back {
		return nil
	}
	f.unmark(cur.Blob)
	if err := f.mark(prev.Blob); err != nil {
		// prev was marked a moment ago, so only a foreign claim in between fails here.
		if merr := f.mark(cur.Blob); merr != nil {
			return fmt.Errorf("%w; restoring region: %w", err, merr)
		}
		return err
	}
	f.body = prev
	return nil
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
