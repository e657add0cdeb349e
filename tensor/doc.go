// Package tensor provides the numeric leaves of lvflow trees.
//
// The tensor package provides:
//
//   - Array, a row-major N-dimensional float64 array treated as an immutable
//     value: every kernel returns a fresh array.
//   - Elementwise kernels (Add, Mul, Exp, Softplus, ...) backed by gonum/floats.
//   - Last-axis kernels (RowNorms, MulRows) that treat every leading axis as a
//     batch, so they work unchanged on vectorized (stacked) parameters.
//   - Leading-axis plumbing (Index, Stack) used by tree.Vmap.
//   - MatVec (gonum/mat) and SolveLower (forward substitution).
//
// Arrays are small and dense; there is no broadcasting beyond the explicit
// row kernels.
package tensor
