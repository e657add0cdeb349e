// SPDX-License-Identifier: MIT
// Package: tensor
//
// Purpose:
//   - Matrix-vector products and lower-triangular solves for linear layers and
//     triangular bijections.
//   - MatVec delegates to gonum/mat; the triangular solve is a plain forward
//     substitution that fails fast on a zero pivot (deterministic, no pivoting).

package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ZeroPivot is the pivot value treated as singular by SolveLower.
const ZeroPivot = 0.0

// MatVec returns w·x for w of shape [r, c] and x of shape [c].
// Complexity: O(r*c).
func MatVec(w, x *Array) (*Array, error) {
	if err := ValidateNotNil(w); err != nil {
		return nil, fmt.Errorf("MatVec: %w", err)
	}
	if err := ValidateNotNil(x); err != nil {
		return nil, fmt.Errorf("MatVec: %w", err)
	}
	if w.Rank() != 2 || x.Rank() != 1 {
		return nil, fmt.Errorf("MatVec: ranks %d,%d: %w", w.Rank(), x.Rank(), ErrRank)
	}
	r, c := w.shape[0], w.shape[1]
	if x.shape[0] != c {
		return nil, fmt.Errorf("MatVec: %v·%v: %w", w.shape, x.shape, ErrDimensionMismatch)
	}
	if r == 0 || c == 0 {
		return Zeros(r), nil
	}

	out := mat.NewVecDense(r, nil)
	out.MulVec(mat.NewDense(r, c, w.data), mat.NewVecDense(c, x.data))

	return Vector(out.RawVector().Data...), nil
}

// SolveLower solves L·x = b by forward substitution for a square lower
// triangular L of shape [n, n] (entries above the diagonal are ignored).
// Stage 1 (Validate): square L, len(b) == n.
// Stage 2 (Execute): for i = 0..n-1, x[i] = (b[i] - Σ_{k<i} L[i][k]·x[k]) / L[i][i].
// Complexity: O(n²) time, O(n) memory.
func SolveLower(l, b *Array) (*Array, error) {
	if err := ValidateNotNil(l); err != nil {
		return nil, fmt.Errorf("SolveLower: %w", err)
	}
	if err := ValidateNotNil(b); err != nil {
		return nil, fmt.Errorf("SolveLower: %w", err)
	}
	if l.Rank() != 2 || l.shape[0] != l.shape[1] {
		return nil, fmt.Errorf("SolveLower: non-square %v: %w", l.shape, ErrDimensionMismatch)
	}
	n := l.shape[0]
	if b.Rank() != 1 || b.shape[0] != n {
		return nil, fmt.Errorf("SolveLower: rhs %v for %dx%d: %w", b.shape, n, n, ErrDimensionMismatch)
	}

	x := make([]float64, n)
	var sum, pivot float64
	for i := 0; i < n; i++ {
		sum = 0
		for k := 0; k < i; k++ { // accumulate L[i][k]*x[k]
			sum += l.data[i*n+k] * x[k]
		}
		pivot = l.data[i*n+i]
		if pivot == ZeroPivot {
			return nil, fmt.Errorf("SolveLower: zero pivot at %d: %w", i, ErrSingular)
		}
		x[i] = (b.data[i] - sum) / pivot
	}

	return Vector(x...), nil
}

// Diag returns the diagonal of a square [n, n] array as a vector.
func Diag(a *Array) (*Array, error) {
	if a == nil || a.Rank() != 2 || a.shape[0] != a.shape[1] {
		return nil, fmt.Errorf("Diag: %w", ErrDimensionMismatch)
	}
	n := a.shape[0]
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a.data[i*n+i]
	}

	return Vector(out...), nil
}

// DiagMatrix returns the [n, n] matrix with v on its diagonal.
func DiagMatrix(v *Array) (*Array, error) {
	if v == nil || v.Rank() != 1 {
		return nil, fmt.Errorf("DiagMatrix: %w", ErrRank)
	}
	n := v.shape[0]
	out := Zeros(n, n)
	for i := 0; i < n; i++ {
		out.data[i*n+i] = v.data[i]
	}

	return out, nil
}
