// SPDX-License-Identifier: MIT
// Package train: sentinel error set.

package train

import "errors"

var (
	// ErrNonFiniteLoss indicates a NaN or infinite loss during fitting. It is
	// always returned, never skipped.
	ErrNonFiniteLoss = errors.New("train: non-finite loss")

	// ErrInvalidOption indicates a fitting option outside its valid range.
	ErrInvalidOption = errors.New("train: invalid option")

	// ErrData indicates training data of the wrong shape or too few rows to
	// form both a training and a validation set.
	ErrData = errors.New("train: bad training data")

	// ErrNotDistribution indicates a rebuilt tree that is no longer a distribution.
	ErrNotDistribution = errors.New("train: tree is not a distribution")

	// ErrGradient indicates a loss evaluation that failed while estimating gradients.
	ErrGradient = errors.New("train: gradient evaluation failed")
)
