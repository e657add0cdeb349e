// SPDX-License-Identifier: MIT
// Package distributions: sentinel error set.

package distributions

import "errors"

var (
	// ErrConditionalBase indicates a base distribution with conditioning
	// variables, which a Transformed distribution cannot condition.
	ErrConditionalBase = errors.New("distributions: base distribution must be unconditional")

	// ErrShape indicates an input whose shape does not match the distribution.
	ErrShape = errors.New("distributions: shape mismatch")

	// ErrCondition indicates missing or mismatched conditioning variables.
	ErrCondition = errors.New("distributions: bad conditioning variables")

	// ErrInvalidParam indicates a distribution parameter outside its domain.
	ErrInvalidParam = errors.New("distributions: invalid parameter")

	// ErrNotDistribution indicates a node that does not implement Distribution.
	ErrNotDistribution = errors.New("distributions: node is not a distribution")
)
