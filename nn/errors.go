// SPDX-License-Identifier: MIT
// Package nn: sentinel error set.

package nn

import "errors"

var (
	// ErrInvalidSize indicates a non-positive layer width, input or output size.
	ErrInvalidSize = errors.New("nn: invalid layer size")

	// ErrInvalidDepth indicates a negative number of hidden layers.
	ErrInvalidDepth = errors.New("nn: invalid depth")

	// ErrUnknownActivation indicates an activation tag outside the closed set.
	ErrUnknownActivation = errors.New("nn: unknown activation")

	// ErrInput indicates an input vector of the wrong shape.
	ErrInput = errors.New("nn: bad input")

	// ErrRanks indicates autoregressive ranks that cannot form a valid mask.
	ErrRanks = errors.New("nn: invalid autoregressive ranks")
)
