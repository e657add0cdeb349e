// SPDX-License-Identifier: MIT
// Package: bijections
//
// TriangularAffine: y = L·x + loc for lower-triangular L with positive diagonal.
//
// Storage (children [loc, triangular]):
//   - triangular = Lambda(tril₋₁(raw) + diag(d), raw, BijectionReparam(d, Exp))
//     so the diagonal stays positive under any update of its raw leaf;
//   - with weight normalization, triangular is additionally wrapped in
//     WeightNormalization (positive row scale keeps the diagonal positive).
//
// Inverse solves L·x = y - loc by forward substitution.
// log |det J| = Σ log L_ii.

package bijections

import (
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/katalvlaran/lvflow/wrappers"
)

// TriangularAffine is an affine map with a lower-triangular matrix.
type TriangularAffine struct {
	loc        tree.Node
	triangular tree.Node
	dim        int
}

// TriangularOption customises NewTriangularAffine.
type TriangularOption func(*triangularOptions)

type triangularOptions struct {
	weightNorm bool
}

// WithWeightNormalization reparameterizes the rows of L as direction × scale.
func WithWeightNormalization(on bool) TriangularOption {
	return func(o *triangularOptions) { o.weightNorm = on }
}

func assembleLower(args []*tensor.Array) (*tensor.Array, error) {
	raw, diag := args[0], args[1]
	n := diag.Dim(0)
	src := raw.Raw()
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		copy(out[i*n:i*n+i], src[i*n:i*n+i]) // strictly lower part
		out[i*n+i] = diag.Raw()[i]
	}

	return tensor.New([]int{n, n}, out)
}

// NewTriangularAffine builds y = L·x + loc from an initial lower-triangular
// matrix (entries above the diagonal are ignored).
// Stage 1 (Validate): loc is [n], lower is [n, n].
// Stage 2 (Prepare): the diagonal is reparameterized through Exp; a
// non-positive diagonal entry is a domain error.
// Stage 3 (Finalize): optional weight normalization.
func NewTriangularAffine(loc, lower *tensor.Array, opts ...TriangularOption) (*TriangularAffine, error) {
	if loc == nil || lower == nil || loc.Rank() != 1 {
		return nil, fmt.Errorf("NewTriangularAffine: loc must be a vector: %w", ErrShape)
	}
	n := loc.Dim(0)
	if !slices.Equal(lower.Shape(), []int{n, n}) {
		return nil, fmt.Errorf("NewTriangularAffine: matrix %v for loc [%d]: %w", lower.Shape(), n, ErrShape)
	}
	o := triangularOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	diag, err := tensor.Diag(lower)
	if err != nil {
		return nil, fmt.Errorf("NewTriangularAffine: %w", err)
	}
	d, err := wrappers.BijectionReparam(diag, NewExp())
	if err != nil {
		return nil, fmt.Errorf("NewTriangularAffine: diagonal: %w", err)
	}
	var tri tree.Node
	if tri, err = wrappers.Lambda(assembleLower, tree.Array(lower), d); err != nil {
		return nil, fmt.Errorf("NewTriangularAffine: %w", err)
	}
	if o.weightNorm {
		if tri, err = wrappers.WeightNormalization(tri); err != nil {
			return nil, fmt.Errorf("NewTriangularAffine: %w", err)
		}
	}

	return &TriangularAffine{loc: tree.Array(loc), triangular: tri, dim: n}, nil
}

// Kind implements tree.Node.
func (t *TriangularAffine) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (t *TriangularAffine) Children() []tree.Node { return []tree.Node{t.loc, t.triangular} }

// WithChildren implements tree.Node.
func (t *TriangularAffine) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("TriangularAffine.WithChildren", children, 2); err != nil {
		return nil, err
	}

	return &TriangularAffine{loc: children[0], triangular: children[1], dim: t.dim}, nil
}

// Shape implements Bijection.
func (t *TriangularAffine) Shape() []int { return []int{t.dim} }

// CondDim implements Bijection.
func (t *TriangularAffine) CondDim() int { return 0 }

// Matrix resolves L.
func (t *TriangularAffine) Matrix() (*tensor.Array, error) { return tree.UnwrapArray(t.triangular) }

func (t *TriangularAffine) params(method string) (*tensor.Array, *tensor.Array, float64, error) {
	loc, err := tree.UnwrapArray(t.loc)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", method, err)
	}
	l, err := t.Matrix()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", method, err)
	}
	diag, err := tensor.Diag(l)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", method, err)
	}
	var logDet float64
	for _, v := range diag.Raw() {
		logDet += math.Log(v)
	}

	return loc, l, logDet, nil
}

// Transform implements Bijection.
func (t *TriangularAffine) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(t.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (t *TriangularAffine) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("TriangularAffine.TransformAndLogDet", t, x, cond); err != nil {
		return nil, 0, err
	}
	loc, l, logDet, err := t.params("TriangularAffine.TransformAndLogDet")
	if err != nil {
		return nil, 0, err
	}
	lx, err := tensor.MatVec(l, x)
	if err != nil {
		return nil, 0, fmt.Errorf("TriangularAffine.TransformAndLogDet: %w", err)
	}
	y, err := tensor.Add(lx, loc)
	if err != nil {
		return nil, 0, fmt.Errorf("TriangularAffine.TransformAndLogDet: %w", err)
	}

	return y, logDet, nil
}

// Inverse implements Bijection.
func (t *TriangularAffine) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(t.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (t *TriangularAffine) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("TriangularAffine.InverseAndLogDet", t, y, cond); err != nil {
		return nil, 0, err
	}
	loc, l, logDet, err := t.params("TriangularAffine.InverseAndLogDet")
	if err != nil {
		return nil, 0, err
	}
	d, err := tensor.Sub(y, loc)
	if err != nil {
		return nil, 0, fmt.Errorf("TriangularAffine.InverseAndLogDet: %w", err)
	}
	x, err := tensor.SolveLower(l, d)
	if err != nil {
		return nil, 0, fmt.Errorf("TriangularAffine.InverseAndLogDet: %w: %w", ErrDomain, err)
	}

	return x, -logDet, nil
}
