package grid

import (
	"fmt"

	"cell-tracker/pkg/roierr"
)

// MaxRegions is the number of owner ids available to concurrently tracked regions.
const MaxRegions = 15

var (
	// ErrPoolExhausted is returned when every id is leased.
	ErrPoolExhausted = fmt.Errorf("all %d region ids in use: %w", MaxRegions, roierr.ErrState)
	// ErrLeaseReleased is returned when a lease is released twice.
	ErrLeaseReleased = fmt.Errorf("region id already released: %w", roierr.ErrState)
	// ErrForeignLease is returned when a lease is presented to a pool that did not issue it.
	ErrForeignLease = fmt.Errorf("region id leased from another pool: %w", roierr.ErrState)
)

// Pool hands out owner ids. Each id is held through a Lease; only the holder
// of a lease can give the id back.
type Pool struct {
	leased [MaxRegions + 1]*Lease
}

// Lease is the right to own pixels under one id.
type Lease struct {
	pool     *Pool
	id       ID
	released bool
}

// NewPool creates a pool with every id free.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire leases the lowest free id.
func (p *Pool) Acquire() (*Lease, error) {
	for id := ID(1); id <= MaxRegions; id++ {
		if p.leased[id] == nil {
			l := &Lease{pool: p, id: id}
			p.leased[id] = l
			return l, nil
		}
	}
	return nil, ErrPoolExhausted
}

// Release returns the lease's id to the pool. The lease is dead afterwards.
func (p *Pool) Release(l *Lease) error {
	if l == nil {
		return fmt.Errorf("release nil lease: %w", roierr.ErrArgument)
	}
	if l.pool != p {
		return ErrForeignLease
	}
	if l.released || p.leased[l.id] != l {
		return ErrLeaseReleased
	}
	p.leased[l.id] = nil
	l.released = true
	return nil
}

// Available returns the number of free ids.
func (p *Pool) Available() int {
	n := 0
	for id := ID(1); id <= MaxRegions; id++ {
		if p.leased[id] == nil {
			n++
		}
	}
	return n
}

// ID returns the leased id, or None once released.
func (l *Lease) ID() ID {
	if l == nil || l.released {
		return None
	}
	return l.id
}

// Live reports whether the lease still holds its id.
func (l *Lease) Live() bool {
	return l != nil && !l.released
}
