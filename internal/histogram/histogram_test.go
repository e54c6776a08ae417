package histogram

import (
	"errors"
	"math"
	"testing"

	"cell-tracker/pkg/roierr"
)

func build(t *testing.T, lo, hi int, values ...int) *Histogram {
	t.Helper()
	b, err := NewBuilder(lo, hi)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for _, v := range values {
		if err := b.Add(v); err != nil {
			t.Fatalf("Add(%d): %v", v, err)
		}
	}
	return b.Build()
}

func TestNewBuilder_RejectsInvertedDomain(t *testing.T) {
	if _, err := NewBuilder(5, 4); !errors.Is(err, roierr.ErrArgument) {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestAdd_RejectsOutOfDomain(t *testing.T) {
	b, _ := NewBuilder(0, 10)
	if err := b.Add(11); !errors.Is(err, roierr.ErrArgument) {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestStatistics(t *testing.T) {
	h := build(t, 0, 255, 2, 4, 4, 4, 5, 5, 7, 9)
	if h.N() != 8 || h.Sum() != 40 {
		t.Fatalf("expected n=8 sum=40, got n=%d sum=%d", h.N(), h.Sum())
	}
	if h.Mean() != 5 {
		t.Fatalf("expected mean 5, got %v", h.Mean())
	}
	// sum of squared deviations is 32 over n-1 = 7
	if math.Abs(h.Variance()-32.0/7) > 1e-9 {
		t.Fatalf("expected variance %v, got %v", 32.0/7, h.Variance())
	}
	if math.Abs(h.Stdev()-math.Sqrt(32.0/7)) > 1e-9 {
		t.Fatalf("unexpected stdev %v", h.Stdev())
	}
	if m, _ := h.Mode(); m != 4 {
		t.Fatalf("expected mode 4, got %d", m)
	}
	if lo, _ := h.Min(); lo != 2 {
		t.Fatalf("expected min 2, got %d", lo)
	}
	if hi, _ := h.Max(); hi != 9 {
		t.Fatalf("expected max 9, got %d", hi)
	}
	if got := h.CountInRange(4, 5); got != 5 {
		t.Fatalf("expected 5 samples in [4,5], got %d", got)
	}
	if got := h.CountInRange(300, -3); got != 8 {
		t.Fatalf("expected clipped range to hold every sample, got %d", got)
	}
}

func TestPercentile(t *testing.T) {
	h := build(t, 0, 100, 10, 20, 30, 40)
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{25, 10},
		{26, 20},
		{50, 20},
		{100, 40},
		{150, 40},
	}
	for _, c := range cases {
		if got := h.Percentile(c.p); got != c.want {
			t.Fatalf("Percentile(%v): expected %v, got %v", c.p, c.want, got)
		}
	}
}

func TestMode_TiesPreferSmallest(t *testing.T) {
	h := build(t, -5, 5, 3, 3, -2, -2, 0)
	if m, ok := h.Mode(); !ok || m != -2 {
		t.Fatalf("expected mode -2, got %d", m)
	}
}

func TestEmpty(t *testing.T) {
	h := build(t, 0, 10)
	if !math.IsNaN(h.Mean()) || !math.IsNaN(h.Percentile(50)) || !math.IsNaN(h.Variance()) {
		t.Fatalf("empty statistics should be NaN")
	}
	if _, ok := h.Mode(); ok {
		t.Fatalf("empty histogram has no mode")
	}
	if _, ok := h.Min(); ok {
		t.Fatalf("empty histogram has no min")
	}
}

func TestBuild_Frozen(t *testing.T) {
	b, _ := NewBuilder(0, 3)
	_ = b.AddN(1, 4)
	h := b.Build()
	_ = b.Add(2)
	if h.N() != 4 || h.Count(2) != 0 {
		t.Fatalf("built histogram changed after further additions")
	}
	if b.Build().N() != 5 {
		t.Fatalf("builder lost additions")
	}
}
