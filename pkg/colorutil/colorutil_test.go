package colorutil

import "testing"

func TestBGR(t *testing.T) {
	if got := BGR(Azure); got != [3]uint8{255, 128, 0} {
		t.Fatalf("expected [255 128 0], got %v", got)
	}
}
