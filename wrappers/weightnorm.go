// SPDX-License-Identifier: MIT
// Package: wrappers
//
// WeightNorm: normalization by construction.
//
// Exposed value: W[..., i, :] = s[..., i] * V[..., i, :] / ‖V[..., i, :]‖₂
//   - V is the raw weight (any wrapper resolving to an array of rank ≥ 1).
//   - s is a trainable per-row scale, stored as Lambda(softplus, t) so it stays
//     positive; t starts at InvSoftplus(‖V_i‖) so that the first resolution
//     returns V unchanged.
//
// Norms are taken over the last axis only, so the rule is the same for any
// number of leading (batch) axes.

package wrappers

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// WeightNorm exposes row-normalized weights times a learned scale.
// Children: [weight, scale].
type WeightNorm struct {
	weight tree.Node
	scale  tree.Node
	batch  []int
}

// WeightNormalization wraps weight so that its rows are reparameterized as
// direction × scale.
// Stage 1 (Validate): weight resolves to an array of rank ≥ 1.
// Stage 2 (Prepare): row norms of the current weight seed the scale.
// Stage 3 (Finalize): scale = Lambda(softplus, InvSoftplus(norms)).
func WeightNormalization(weight tree.Node) (*WeightNorm, error) {
	if weight == nil {
		return nil, fmt.Errorf("WeightNormalization: %w", ErrNilArgument)
	}
	w, err := tree.UnwrapArray(weight)
	if err != nil {
		return nil, fmt.Errorf("WeightNormalization: %w", err)
	}
	norms, err := tensor.RowNorms(w)
	if err != nil {
		return nil, fmt.Errorf("WeightNormalization: %w: %w", ErrShape, err)
	}
	scale, err := Lambda(softplusArray, tree.Array(tensor.Map(norms, tensor.InvSoftplus)))
	if err != nil {
		return nil, fmt.Errorf("WeightNormalization: %w", err)
	}

	return &WeightNorm{weight: weight, scale: scale}, nil
}

func softplusArray(args []*tensor.Array) (*tensor.Array, error) {
	return tensor.Map(args[0], tensor.Softplus), nil
}

// Kind implements tree.Node.
func (w *WeightNorm) Kind() tree.Kind { return tree.KindWrapper }

// Children implements tree.Node.
func (w *WeightNorm) Children() []tree.Node { return []tree.Node{w.weight, w.scale} }

// WithChildren implements tree.Node.
func (w *WeightNorm) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("WeightNorm.WithChildren", children, 2); err != nil {
		return nil, err
	}

	return &WeightNorm{weight: children[0], scale: children[1], batch: w.batch}, nil
}

// Variant implements tree.Wrapper.
func (w *WeightNorm) Variant() tree.Variant { return tree.VariantWeightNorm }

// BatchShape implements tree.Wrapper.
func (w *WeightNorm) BatchShape() []int { return slices.Clone(w.batch) }

// WithBatchShape implements tree.Wrapper.
func (w *WeightNorm) WithBatchShape(shape []int) tree.Wrapper {
	return &WeightNorm{weight: w.weight, scale: w.scale, batch: slices.Clone(shape)}
}

// Scale returns the scale node (a wrapper resolving to shape [..., rows, 1]).
func (w *WeightNorm) Scale() tree.Node { return w.scale }

// Weight returns the raw weight node.
func (w *WeightNorm) Weight() tree.Node { return w.weight }

// Recover implements tree.Wrapper.
func (w *WeightNorm) Recover(children []tree.Node) (tree.Node, error) {
	v, err := tree.UnwrapArray(children[0])
	if err != nil {
		return nil, err
	}
	s, err := tree.UnwrapArray(children[1])
	if err != nil {
		return nil, err
	}
	norms, err := tensor.RowNorms(v)
	if err != nil {
		return nil, fmt.Errorf("WeightNorm.Recover: %w: %w", ErrShape, err)
	}
	for i, n := range norms.Raw() {
		if n == 0 {
			return nil, fmt.Errorf("WeightNorm.Recover: row %d: %w", i, ErrZeroNorm)
		}
	}
	if !tensor.SameShape(norms, s) {
		return nil, fmt.Errorf("WeightNorm.Recover: scale %v for rows %v: %w", s.Shape(), norms.Shape(), ErrShape)
	}
	dir, err := tensor.DivRows(v, norms)
	if err != nil {
		return nil, fmt.Errorf("WeightNorm.Recover: %w", err)
	}
	out, err := tensor.MulRows(dir, s)
	if err != nil {
		return nil, fmt.Errorf("WeightNorm.Recover: %w", err)
	}

	return tree.Array(out), nil
}
