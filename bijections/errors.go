// SPDX-License-Identifier: MIT
// Package bijections: sentinel error set.
//
// Configuration errors (malformed composition) all wrap ErrConfig, so callers
// may test the whole class with errors.Is(err, ErrConfig) or a specific cause.

package bijections

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is the class of malformed-composition errors.
	ErrConfig = errors.New("bijections: invalid configuration")

	// ErrEmptyChain indicates a Chain (or intertwining) with no bijections.
	ErrEmptyChain = fmt.Errorf("%w: empty chain", ErrConfig)

	// ErrShapeMismatch indicates composed bijections with different shapes.
	ErrShapeMismatch = fmt.Errorf("%w: shape mismatch", ErrConfig)

	// ErrCondShapeMismatch indicates composed bijections whose non-zero
	// conditioning dimensions differ.
	ErrCondShapeMismatch = fmt.Errorf("%w: conditioning shape mismatch", ErrConfig)

	// ErrUnknownStrategy indicates a permutation strategy tag outside the closed set.
	ErrUnknownStrategy = fmt.Errorf("%w: unknown permutation strategy", ErrConfig)

	// ErrInvalidPermutation indicates an index list that is not a permutation.
	ErrInvalidPermutation = fmt.Errorf("%w: invalid permutation", ErrConfig)

	// ErrInvalidDim indicates a non-positive dimension or split point.
	ErrInvalidDim = fmt.Errorf("%w: invalid dimension", ErrConfig)

	// ErrDomain indicates an input outside the domain of a map, e.g. the
	// inverse of a positive-valued map applied to a non-positive value.
	ErrDomain = errors.New("bijections: input outside domain")

	// ErrShape indicates an input array of the wrong shape.
	ErrShape = errors.New("bijections: wrong input shape")

	// ErrCondition indicates a missing or wrongly shaped conditioning variable.
	ErrCondition = errors.New("bijections: bad conditioning variable")

	// ErrNotBijection indicates a child node that does not implement Bijection.
	ErrNotBijection = errors.New("bijections: node is not a bijection")

	// ErrNoConvergence indicates a numerical inverse that failed to bracket
	// or converge.
	ErrNoConvergence = errors.New("bijections: numerical inverse did not converge")
)
