// SPDX-License-Identifier: MIT

package distributions

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Distribution is a density over vectors of size Dim, optionally conditioned on
// a vector of size CondDim. Like bijections, distributions are immutable tree
// nodes whose learned content lives in child leaves.
type Distribution interface {
	tree.Node
	Dim() int
	CondDim() int
	LogProb(x, cond *tensor.Array) (float64, error)
	Sample(key prng.Key, cond *tensor.Array) (*tensor.Array, error)
	SampleAndLogProb(key prng.Key, cond *tensor.Array) (*tensor.Array, float64, error)
}

// checkInput validates x against dim and cond against condDim.
func checkInput(method string, dim, condDim int, x, cond *tensor.Array) error {
	if x != nil && (x.Rank() != 1 || x.Dim(0) != dim) {
		return fmt.Errorf("%s: input %v want [%d]: %w", method, x.Shape(), dim, ErrShape)
	}
	if condDim > 0 && (cond == nil || cond.Rank() != 1 || cond.Dim(0) != condDim) {
		return fmt.Errorf("%s: condition want [%d]: %w", method, condDim, ErrCondition)
	}

	return nil
}

// StandardNormal is the isotropic unit Gaussian on ℝ^dim. It has no children.
type StandardNormal struct {
	dim int
}

// NewStandardNormal returns N(0, I) over dim variables.
func NewStandardNormal(dim int) (*StandardNormal, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("NewStandardNormal: dim %d: %w", dim, ErrInvalidParam)
	}

	return &StandardNormal{dim: dim}, nil
}

// Kind implements tree.Node.
func (n *StandardNormal) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (n *StandardNormal) Children() []tree.Node { return nil }

// WithChildren implements tree.Node.
func (n *StandardNormal) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("StandardNormal.WithChildren", children, 0); err != nil {
		return nil, err
	}

	return n, nil
}

// Dim implements Distribution.
func (n *StandardNormal) Dim() int { return n.dim }

// CondDim implements Distribution.
func (n *StandardNormal) CondDim() int { return 0 }

// LogProb implements Distribution.
func (n *StandardNormal) LogProb(x, _ *tensor.Array) (float64, error) {
	if x == nil {
		return 0, fmt.Errorf("StandardNormal.LogProb: nil input: %w", ErrShape)
	}
	if err := checkInput("StandardNormal.LogProb", n.dim, 0, x, nil); err != nil {
		return 0, err
	}
	var lp float64
	for _, v := range x.Raw() {
		lp += distuv.UnitNormal.LogProb(v)
	}

	return lp, nil
}

// Sample implements Distribution.
func (n *StandardNormal) Sample(key prng.Key, _ *tensor.Array) (*tensor.Array, error) {
	return prng.Normal(key, n.dim), nil
}

// SampleAndLogProb implements Distribution.
func (n *StandardNormal) SampleAndLogProb(key prng.Key, _ *tensor.Array) (*tensor.Array, float64, error) {
	x := prng.Normal(key, n.dim)
	lp, err := n.LogProb(x, nil)
	if err != nil {
		return nil, 0, err
	}

	return x, lp, nil
}

// NewNormal returns the diagonal Gaussian N(loc, diag(scale²)), expressed as a
// standard normal pushed through an Affine bijection so loc and scale train
// like any other flow parameters.
func NewNormal(loc, scale *tensor.Array) (*Transformed, error) {
	if loc == nil || scale == nil || loc.Rank() != 1 {
		return nil, fmt.Errorf("NewNormal: loc must be a vector: %w", ErrShape)
	}
	for i, s := range scale.Raw() {
		if !(s > 0) || math.IsInf(s, 1) {
			return nil, fmt.Errorf("NewNormal: scale[%d]=%v: %w", i, s, ErrInvalidParam)
		}
	}
	base, err := NewStandardNormal(loc.Dim(0))
	if err != nil {
		return nil, fmt.Errorf("NewNormal: %w", err)
	}
	affine, err := bijections.NewAffine(loc, scale)
	if err != nil {
		return nil, fmt.Errorf("NewNormal: %w", err)
	}

	return NewTransformed(base, affine)
}
