package cellbody

import "cell-tracker/pkg/geometry"

// Constraint is one parameter of a create or edit request.
// It is one of SeedArea, Size or Threshold.
type Constraint interface {
	constraint()
}

// SeedArea restricts where the seed pixel may be picked.
type SeedArea struct {
	Area geometry.Polygon
}

// Size asks for a region of about Target pixels.
type Size struct {
	Target int
	Policy Policy
}

// Threshold sets the growth threshold directly.
type Threshold struct {
	Value int
}

func (SeedArea) constraint()  {}
func (Size) constraint()      {}
func (Threshold) constraint() {}

// Policy decides which side of a size target a resize settles on.
type Policy int

const (
	// AsCloseAsPossible picks whichever bracketing size is nearer the target.
	AsCloseAsPossible Policy = iota
	// Bigger settles on the smallest size not below the target.
	Bigger
	// Smaller settles on the largest size not above the target.
	Smaller
)

func (p Policy) String() string {
	switch p {
	case AsCloseAsPossible:
		return "as-close-as-possible"
	case Bigger:
		return "bigger"
	case Smaller:
		return "smaller"
	default:
		return "unknown"
	}
}

// State is the lifecycle stage of a finder's region.
type State int

const (
	StateNone State = iota
	StateSeeded
	StateGrown
	StateEdited
	StateAccepted
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSeeded:
		return "seeded"
	case StateGrown:
		return "grown"
	case StateEdited:
		return "edited"
	case StateAccepted:
		return "accepted"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Live reports whether the region currently holds grid cells.
func (s State) Live() bool {
	return s == StateSeeded || s == StateGrown || s == StateEdited
}
