// SPDX-License-Identifier: MIT
// Package: bijections
//
// Chain: sequential composition.
//
//	Transform: y = b_n(…b_2(b_1(x)))         log|J| = Σ log|J_k|
//	Inverse:   x = b_1⁻¹(…b_n⁻¹(y))          (children in reverse order)
//
// Invariants:
//   - at least one child;
//   - every child with a declared shape has the same shape;
//   - non-zero conditioning sizes agree; the chain's CondDim is that size and
//     the same condition is passed to every child.

package bijections

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Chain applies its children in order.
type Chain struct {
	bijections []Bijection
	shape      []int
	condDim    int
}

// NewChain composes bs.
// Stage 1 (Validate): non-empty, equal shapes, compatible conditioning sizes.
// Stage 2 (Finalize): store an owned copy of the sequence.
func NewChain(bs ...Bijection) (*Chain, error) {
	if len(bs) == 0 {
		return nil, fmt.Errorf("NewChain: %w", ErrEmptyChain)
	}
	for i, b := range bs {
		if b == nil {
			return nil, fmt.Errorf("NewChain: index %d is nil: %w", i, ErrNotBijection)
		}
	}
	shape, err := mergeShapes("NewChain", bs)
	if err != nil {
		return nil, err
	}
	cond, err := mergeCondDims("NewChain", bs)
	if err != nil {
		return nil, err
	}

	return &Chain{bijections: slices.Clone(bs), shape: shape, condDim: cond}, nil
}

// Kind implements tree.Node.
func (c *Chain) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (c *Chain) Children() []tree.Node { return asNodes(c.bijections) }

// WithChildren implements tree.Node.
func (c *Chain) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Chain.WithChildren", children, len(c.bijections)); err != nil {
		return nil, err
	}
	bs, err := asBijections("Chain.WithChildren", children)
	if err != nil {
		return nil, err
	}

	return &Chain{bijections: bs, shape: c.shape, condDim: c.condDim}, nil
}

// Shape implements Bijection.
func (c *Chain) Shape() []int { return slices.Clone(c.shape) }

// CondDim implements Bijection.
func (c *Chain) CondDim() int { return c.condDim }

// Len is the number of composed bijections.
func (c *Chain) Len() int { return len(c.bijections) }

// Bijections returns the composed bijections in forward order.
func (c *Chain) Bijections() []Bijection { return slices.Clone(c.bijections) }

// Transform implements Bijection.
func (c *Chain) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	if err := checkArgs("Chain.Transform", c, x, cond); err != nil {
		return nil, err
	}
	var err error
	for i, b := range c.bijections {
		if x, err = b.Transform(x, cond); err != nil {
			return nil, fmt.Errorf("Chain.Transform: step %d: %w", i, err)
		}
	}

	return x, nil
}

// TransformAndLogDet implements Bijection.
func (c *Chain) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Chain.TransformAndLogDet", c, x, cond); err != nil {
		return nil, 0, err
	}
	var (
		total, ld float64
		err       error
	)
	for i, b := range c.bijections {
		if x, ld, err = b.TransformAndLogDet(x, cond); err != nil {
			return nil, 0, fmt.Errorf("Chain.TransformAndLogDet: step %d: %w", i, err)
		}
		total += ld
	}

	return x, total, nil
}

// Inverse implements Bijection.
func (c *Chain) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	if err := checkArgs("Chain.Inverse", c, y, cond); err != nil {
		return nil, err
	}
	var err error
	for i := len(c.bijections) - 1; i >= 0; i-- {
		if y, err = c.bijections[i].Inverse(y, cond); err != nil {
			return nil, fmt.Errorf("Chain.Inverse: step %d: %w", i, err)
		}
	}

	return y, nil
}

// InverseAndLogDet implements Bijection.
func (c *Chain) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Chain.InverseAndLogDet", c, y, cond); err != nil {
		return nil, 0, err
	}
	var (
		total, ld float64
		err       error
	)
	for i := len(c.bijections) - 1; i >= 0; i-- {
		if y, ld, err = c.bijections[i].InverseAndLogDet(y, cond); err != nil {
			return nil, 0, fmt.Errorf("Chain.InverseAndLogDet: step %d: %w", i, err)
		}
		total += ld
	}

	return y, total, nil
}
