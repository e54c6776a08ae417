package grid

import (
	"errors"
	"testing"
)

func TestPool_ExhaustionAndReuse(t *testing.T) {
	p := NewPool()
	var leases []*Lease
	for i := 0; i < MaxRegions; i++ {
		l, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		if l.ID() != ID(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, l.ID())
		}
		leases = append(leases, l)
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if err := p.Release(leases[4]); err != nil {
		t.Fatalf("Release: %v", err)
	}
	l, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if l.ID() != 5 {
		t.Fatalf("expected freed id 5, got %d", l.ID())
	}
}

func TestPool_ReleaseChecksHolder(t *testing.T) {
	p := NewPool()
	other := NewPool()
	l, _ := p.Acquire()
	if err := other.Release(l); !errors.Is(err, ErrForeignLease) {
		t.Fatalf("expected foreign lease error, got %v", err)
	}
	if err := p.Release(l); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := p.Release(l); !errors.Is(err, ErrLeaseReleased) {
		t.Fatalf("expected double release error, got %v", err)
	}
	if l.Live() || l.ID() != None {
		t.Fatalf("released lease still reports id %d", l.ID())
	}

	// A stale lease must not free an id re-leased to someone else.
	l2, _ := p.Acquire()
	if err := p.Release(l); err == nil {
		t.Fatalf("stale lease released id %d", l2.ID())
	}
	if !l2.Live() || p.Available() != MaxRegions-1 {
		t.Fatalf("stale release disturbed the live lease")
	}
}
