// SPDX-License-Identifier: MIT
// Package: tensor
//
// Purpose:
//  - Single source of truth for nil/shape guards used by kernels.
//  - Return plain sentinel errors so call sites can wrap uniformly.

package tensor

import (
	"fmt"
	"math"
	"slices"
)

// validatorErrorf wraps an underlying error with the given validator tag.
func validatorErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// ValidateNotNil ensures the array reference is non-nil.
func ValidateNotNil(a *Array) error {
	if a == nil {
		return validatorErrorf("ValidateNotNil", ErrNilArray)
	}

	return nil
}

// ValidateSameShape ensures a and b are non-nil and have equal shapes.
func ValidateSameShape(a, b *Array) error {
	if a == nil || b == nil {
		return validatorErrorf("ValidateSameShape", ErrNilArray)
	}
	if !SameShape(a, b) {
		return validatorErrorf("ValidateSameShape",
			fmt.Errorf("%v vs %v: %w", a.shape, b.shape, ErrDimensionMismatch))
	}

	return nil
}

// ValidateShape ensures a is non-nil and has exactly the given shape.
func ValidateShape(a *Array, shape []int) error {
	if a == nil {
		return validatorErrorf("ValidateShape", ErrNilArray)
	}
	if !slices.Equal(a.shape, shape) {
		return validatorErrorf("ValidateShape",
			fmt.Errorf("got %v want %v: %w", a.shape, shape, ErrDimensionMismatch))
	}

	return nil
}

// ValidateMinRank ensures a has at least r axes.
func ValidateMinRank(a *Array, r int) error {
	if a == nil {
		return validatorErrorf("ValidateMinRank", ErrNilArray)
	}
	if len(a.shape) < r {
		return validatorErrorf("ValidateMinRank", fmt.Errorf("rank %d < %d: %w", len(a.shape), r, ErrRank))
	}

	return nil
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b *Array) bool {
	return slices.Equal(a.shape, b.shape)
}

// HasNaN reports whether any element is NaN.
func HasNaN(a *Array) bool {
	for _, v := range a.data {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}

// IsFinite reports whether every element is neither NaN nor ±Inf.
func IsFinite(a *Array) bool {
	for _, v := range a.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}
