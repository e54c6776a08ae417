// Package histogram provides immutable integer histograms built incrementally.
package histogram

import (
	"fmt"
	"math"

	"cell-tracker/pkg/roierr"

	"gonum.org/v1/gonum/stat"
)

// Builder accumulates counts over the fixed domain [lo, hi].
type Builder struct {
	lo, hi int
	counts []int
}

// NewBuilder creates a builder for values in [lo, hi].
func NewBuilder(lo, hi int) (*Builder, error) {
	if lo > hi {
		return nil, fmt.Errorf("histogram domain [%d,%d]: %w", lo, hi, roierr.ErrArgument)
	}
	return &Builder{lo: lo, hi: hi, counts: make([]int, hi-lo+1)}, nil
}

// Add records one occurrence of v.
func (b *Builder) Add(v int) error {
	return b.AddN(v, 1)
}

// AddN records n occurrences of v.
func (b *Builder) AddN(v, n int) error {
	if v < b.lo || v > b.hi {
		return fmt.Errorf("value %d outside [%d,%d]: %w", v, b.lo, b.hi, roierr.ErrArgument)
	}
	if n < 0 {
		return fmt.Errorf("negative count %d: %w", n, roierr.ErrArgument)
	}
	b.counts[v-b.lo] += n
	return nil
}

// Build freezes the current counts. The builder may keep accumulating;
// later additions do not affect histograms already built.
func (b *Builder) Build() *Histogram {
	h := &Histogram{
		lo:     b.lo,
		hi:     b.hi,
		counts: make([]int, len(b.counts)),
		min:    -1,
		max:    -1,
	}
	copy(h.counts, b.counts)
	for i, c := range h.counts {
		if c == 0 {
			continue
		}
		v := b.lo + i
		h.n += c
		h.sum += int64(v) * int64(c)
		if h.min < 0 {
			h.min = i
		}
		h.max = i
		h.values = append(h.values, float64(v))
		h.weights = append(h.weights, float64(c))
	}
	return h
}

// Histogram is a frozen count array over [Lo, Hi].
type Histogram struct {
	lo, hi   int
	counts   []int
	n        int
	sum      int64
	min, max int // occupied bin offsets, -1 when empty

	// occupied bins only, ascending, for the gonum estimators
	values  []float64
	weights []float64
}

// Lo returns the lower domain bound.
func (h *Histogram) Lo() int { return h.lo }

// Hi returns the upper domain bound.
func (h *Histogram) Hi() int { return h.hi }

// N returns the number of samples.
func (h *Histogram) N() int { return h.n }

// Sum returns the sum of all samples.
func (h *Histogram) Sum() int64 { return h.sum }

// Count returns the number of samples equal to v.
func (h *Histogram) Count(v int) int {
	if v < h.lo || v > h.hi {
		return 0
	}
	return h.counts[v-h.lo]
}

// Min returns the smallest occupied value. ok is false for an empty histogram.
func (h *Histogram) Min() (v int, ok bool) {
	if h.n == 0 {
		return 0, false
	}
	return h.lo + h.min, true
}

// Max returns the largest occupied value. ok is false for an empty histogram.
func (h *Histogram) Max() (v int, ok bool) {
	if h.n == 0 {
		return 0, false
	}
	return h.lo + h.max, true
}

// Mean returns the sample mean, or NaN when empty.
func (h *Histogram) Mean() float64 {
	if h.n == 0 {
		return math.NaN()
	}
	return stat.Mean(h.values, h.weights)
}

// Variance returns the unbiased sample variance. It is NaN when empty and
// zero for a single sample.
func (h *Histogram) Variance() float64 {
	switch h.n {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	_, v := stat.MeanVariance(h.values, h.weights)
	return v
}

// Stdev returns the square root of Variance.
func (h *Histogram) Stdev() float64 {
	return math.Sqrt(h.Variance())
}

// Percentile returns the smallest value whose cumulative count reaches p
// percent of the samples. p is clamped to [0, 100]; the result is NaN when empty.
func (h *Histogram) Percentile(p float64) float64 {
	if h.n == 0 {
		return math.NaN()
	}
	q := math.Min(math.Max(p/100, 0), 1)
	return stat.Quantile(q, stat.Empirical, h.values, h.weights)
}

// Mode returns the most frequent value, preferring the smallest on ties.
// ok is false for an empty histogram.
func (h *Histogram) Mode() (v int, ok bool) {
	if h.n == 0 {
		return 0, false
	}
	best := h.min
	for i := h.min; i <= h.max; i++ {
		if h.counts[i] > h.counts[best] {
			best = i
		}
	}
	return h.lo + best, true
}

// CountInRange returns the number of samples in [a, b], clipped to the domain.
func (h *Histogram) CountInRange(a, b int) int {
	if a > b {
		a, b = b, a
	}
	a = max(a, h.lo)
	b = min(b, h.hi)
	n := 0
	for v := a; v <= b; v++ {
		n += h.counts[v-h.lo]
	}
	return n
}
