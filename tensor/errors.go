// SPDX-License-Identifier: MIT
// Package tensor: sentinel error set.
// All constructors and kernels return these sentinels (optionally wrapped with
// method context) and tests match them via errors.Is. No kernel panics on
// user-triggered conditions.

package tensor

import "errors"

// Every message is prefixed with "tensor: ..." so it greps cleanly in logs.
// Wrap with fmt.Errorf("ctx: %w", ErrX) at the call boundary when context helps.
var (
	// ErrBadShape is returned when a requested shape is invalid (negative extent)
	// or when the data length does not match the product of the shape.
	ErrBadShape = errors.New("tensor: invalid shape")

	// ErrDimensionMismatch indicates incompatible shapes between operands.
	ErrDimensionMismatch = errors.New("tensor: dimension mismatch")

	// ErrOutOfRange indicates that an index is outside valid bounds.
	ErrOutOfRange = errors.New("tensor: index out of range")

	// ErrRank indicates that an operation needs a different number of axes.
	ErrRank = errors.New("tensor: unsupported rank")

	// ErrNilArray indicates that a nil *Array was used.
	ErrNilArray = errors.New("tensor: nil array")

	// ErrEmptyStack indicates that Stack was called with no arrays.
	ErrEmptyStack = errors.New("tensor: nothing to stack")

	// ErrSingular is returned when a zero pivot is met during triangular solves.
	ErrSingular = errors.New("tensor: singular matrix")
)
