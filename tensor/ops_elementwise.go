// SPDX-License-Identifier: MIT
// Package: tensor
//
// Purpose:
//   - Elementwise and last-axis kernels shared by bijections, wrappers and networks.
//   - Every kernel allocates its output and leaves inputs untouched, so arrays
//     behave as values inside immutable trees.
//
// Determinism & Performance:
//   - Flat 0..n-1 loops over the row-major buffer; vector kernels delegate to
//     gonum/floats.
//   - Last-axis kernels (RowNorms, MulRows) are rank agnostic: every leading
//     axis is treated as a batch of rows.

package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Map applies fn to every element and returns a new array of the same shape.
func Map(a *Array, fn func(float64) float64) *Array {
	out := &Array{shape: cloneInts(a.shape), data: make([]float64, len(a.data))}
	for i, v := range a.data {
		out.data[i] = fn(v)
	}

	return out
}

// zip combines two same-shape arrays with a gonum kernel of the form dst = f(s, t).
func zip(method string, a, b *Array, kernel func(dst, s, t []float64) []float64) (*Array, error) {
	if err := ValidateSameShape(a, b); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	out := &Array{shape: cloneInts(a.shape), data: make([]float64, len(a.data))}
	kernel(out.data, a.data, b.data)

	return out, nil
}

// Add returns a + b elementwise.
func Add(a, b *Array) (*Array, error) { return zip("Add", a, b, floats.AddTo) }

// Sub returns a - b elementwise.
func Sub(a, b *Array) (*Array, error) { return zip("Sub", a, b, floats.SubTo) }

// Mul returns a * b elementwise.
func Mul(a, b *Array) (*Array, error) { return zip("Mul", a, b, floats.MulTo) }

// Div returns a / b elementwise.
func Div(a, b *Array) (*Array, error) { return zip("Div", a, b, floats.DivTo) }

// Scale returns s * a.
func Scale(s float64, a *Array) *Array {
	out := &Array{shape: cloneInts(a.shape), data: make([]float64, len(a.data))}
	floats.ScaleTo(out.data, s, a.data)

	return out
}

// Exp returns exp(a) elementwise.
func Exp(a *Array) *Array { return Map(a, math.Exp) }

// Log returns log(a) elementwise.
func Log(a *Array) *Array { return Map(a, math.Log) }

// Sum returns the sum of all elements.
func Sum(a *Array) float64 { return floats.Sum(a.data) }

// Softplus computes log(1 + exp(x)) without overflow for large |x|.
func Softplus(x float64) float64 {
	return math.Log1p(math.Exp(-math.Abs(x))) + math.Max(x, 0)
}

// InvSoftplus is the inverse of Softplus, defined for y > 0.
// Callers are expected to check the domain; non-positive y yields NaN or -Inf.
func InvSoftplus(y float64) float64 {
	return math.Log(-math.Expm1(-y)) + y
}

// Sigmoid computes 1 / (1 + exp(-x)), the derivative of Softplus.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)

	return e / (1 + e)
}

// RowNorms returns the Euclidean norm of every row along the last axis, keeping
// that axis with extent 1 (shape [..., n, 1] for input [..., n, m]).
// Stage 1 (Validate): rank ≥ 1.
// Stage 2 (Execute): one floats.Norm per contiguous row.
// Complexity: O(n) time.
func RowNorms(a *Array) (*Array, error) {
	if err := ValidateMinRank(a, 1); err != nil {
		return nil, fmt.Errorf("RowNorms: %w", err)
	}
	m := a.shape[len(a.shape)-1]
	rows := 0
	if m > 0 {
		rows = len(a.data) / m
	}
	shape := cloneInts(a.shape)
	shape[len(shape)-1] = 1
	out := &Array{shape: shape, data: make([]float64, rows)}
	for r := 0; r < rows; r++ {
		out.data[r] = floats.Norm(a.data[r*m:(r+1)*m], 2)
	}

	return out, nil
}

// MulRows multiplies every last-axis row of a by the matching entry of s, where
// s has the shape of a with the last axis collapsed to 1 (as returned by RowNorms).
func MulRows(a, s *Array) (*Array, error) {
	if err := ValidateMinRank(a, 1); err != nil {
		return nil, fmt.Errorf("MulRows: %w", err)
	}
	want := cloneInts(a.shape)
	want[len(want)-1] = 1
	if err := ValidateShape(s, want); err != nil {
		return nil, fmt.Errorf("MulRows: %w", err)
	}
	m := a.shape[len(a.shape)-1]
	out := a.Clone()
	for r, f := range s.data {
		floats.Scale(f, out.data[r*m:(r+1)*m])
	}

	return out, nil
}

// DivRows divides every last-axis row of a by the matching entry of s.
func DivRows(a, s *Array) (*Array, error) {
	inv := Map(s, func(v float64) float64 { return 1 / v })
	out, err := MulRows(a, inv)
	if err != nil {
		return nil, fmt.Errorf("DivRows: %w", err)
	}

	return out, nil
}

// AllClose reports whether a and b have equal shapes and every pair of elements
// is within tol (absolute or relative). Equal infinities compare as close.
func AllClose(a, b *Array, tol float64) bool {
	if a == nil || b == nil || !SameShape(a, b) {
		return false
	}
	for i := range a.data {
		x, y := a.data[i], b.data[i]
		if x == y {
			continue
		}
		if !scalar.EqualWithinAbsOrRel(x, y, tol, tol) {
			return false
		}
	}

	return true
}

// Equal reports whether a and b have equal shapes and identical elements.
func Equal(a, b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}

	return SameShape(a, b) && floats.Same(a.data, b.data)
}
