// SPDX-License-Identifier: MIT
// Package wrappers: sentinel error set.
// Construction failures wrap these with the constructor name; recovery
// failures surface through tree.Unwrap with the wrapper variant prepended.

package wrappers

import "errors"

var (
	// ErrDomain indicates a desired value outside the image of a
	// reparameterization map. The map's own error is joined after it.
	ErrDomain = errors.New("wrappers: value outside parameterization image")

	// ErrShape indicates raw leaves whose ranks or trailing extents do not fit
	// the recovery rule (e.g. a weight-norm scale that does not match the rows).
	ErrShape = errors.New("wrappers: incompatible raw shape")

	// ErrNilArgument indicates a nil node, array, map or function argument.
	ErrNilArgument = errors.New("wrappers: nil argument")

	// ErrZeroNorm indicates a weight row with zero Euclidean norm, for which
	// the normalized direction is undefined.
	ErrZeroNorm = errors.New("wrappers: zero-norm weight row")
)
