// Package roierr defines the error taxonomy shared by the region engine.
//
// Argument errors report malformed input (a polygon with too few vertices, an
// inverted bounding box, a non-positive size request). State errors report an
// operation attempted out of sequence or against ownership held by another
// region. Both abort only the offending operation.
package roierr

import "errors"

var (
	// ErrArgument marks malformed input.
	ErrArgument = errors.New("invalid argument")
	// ErrState marks an operation that conflicts with current engine state.
	ErrState = errors.New("invalid state")
)
