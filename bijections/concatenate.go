// SPDX-License-Identifier: MIT
// Package: bijections
//
// Concatenate and Stack: apply different bijections to different parts of x.
//
//	Concatenate: x ∈ ℝ^(n₁+…+n_k) split into contiguous parts of sizes nⱼ.
//	Stack:       x of shape [k, s…]; bijection j sees x[j] of shape [s…].
//
// Log-dets of the parts are summed; conditioning sizes are merged as in Chain.

package bijections

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Concatenate joins vector bijections side by side.
type Concatenate struct {
	bijections []Bijection
	sizes      []int
	condDim    int
}

// NewConcatenate requires every bijection to declare a vector shape.
func NewConcatenate(bs ...Bijection) (*Concatenate, error) {
	if len(bs) == 0 {
		return nil, fmt.Errorf("NewConcatenate: %w", ErrEmptyChain)
	}
	sizes := make([]int, len(bs))
	for i, b := range bs {
		if b == nil {
			return nil, fmt.Errorf("NewConcatenate: index %d is nil: %w", i, ErrNotBijection)
		}
		s := b.Shape()
		if len(s) != 1 {
			return nil, fmt.Errorf("NewConcatenate: index %d has shape %v: %w", i, s, ErrShapeMismatch)
		}
		sizes[i] = s[0]
	}
	cond, err := mergeCondDims("NewConcatenate", bs)
	if err != nil {
		return nil, err
	}

	return &Concatenate{bijections: slices.Clone(bs), sizes: sizes, condDim: cond}, nil
}

// Kind implements tree.Node.
func (c *Concatenate) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (c *Concatenate) Children() []tree.Node { return asNodes(c.bijections) }

// WithChildren implements tree.Node.
func (c *Concatenate) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Concatenate.WithChildren", children, len(c.bijections)); err != nil {
		return nil, err
	}
	bs, err := asBijections("Concatenate.WithChildren", children)
	if err != nil {
		return nil, err
	}

	return &Concatenate{bijections: bs, sizes: c.sizes, condDim: c.condDim}, nil
}

// Shape implements Bijection.
func (c *Concatenate) Shape() []int {
	n := 0
	for _, s := range c.sizes {
		n += s
	}

	return []int{n}
}

// CondDim implements Bijection.
func (c *Concatenate) CondDim() int { return c.condDim }

type partFunc func(b Bijection, x, cond *tensor.Array) (*tensor.Array, float64, error)

func (c *Concatenate) apply(method string, in, cond *tensor.Array, fn partFunc) (*tensor.Array, float64, error) {
	if err := checkArgs(method, c, in, cond); err != nil {
		return nil, 0, err
	}
	parts := make([]*tensor.Array, len(c.bijections))
	var total float64
	off := 0
	for i, b := range c.bijections {
		part, err := in.Slice(off, off+c.sizes[i])
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", method, err)
		}
		out, ld, err := fn(b, part, cond)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: part %d: %w", method, i, err)
		}
		parts[i] = out
		total += ld
		off += c.sizes[i]
	}
	joined, err := tensor.Concat(parts...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", method, err)
	}

	return joined, total, nil
}

// Transform implements Bijection.
func (c *Concatenate) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(c.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (c *Concatenate) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	return c.apply("Concatenate.TransformAndLogDet", x, cond, Bijection.TransformAndLogDet)
}

// Inverse implements Bijection.
func (c *Concatenate) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(c.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (c *Concatenate) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	return c.apply("Concatenate.InverseAndLogDet", y, cond, Bijection.InverseAndLogDet)
}

// Stack applies bijection j to slice j of a new leading axis.
type Stack struct {
	bijections []Bijection
	inner      []int
	condDim    int
}

// NewStack requires every bijection to share one declared shape.
func NewStack(bs ...Bijection) (*Stack, error) {
	if len(bs) == 0 {
		return nil, fmt.Errorf("NewStack: %w", ErrEmptyChain)
	}
	for i, b := range bs {
		if b == nil {
			return nil, fmt.Errorf("NewStack: index %d is nil: %w", i, ErrNotBijection)
		}
		if b.Shape() == nil {
			return nil, fmt.Errorf("NewStack: index %d has no fixed shape: %w", i, ErrShapeMismatch)
		}
	}
	inner, err := mergeShapes("NewStack", bs)
	if err != nil {
		return nil, err
	}
	cond, err := mergeCondDims("NewStack", bs)
	if err != nil {
		return nil, err
	}

	return &Stack{bijections: slices.Clone(bs), inner: inner, condDim: cond}, nil
}

// Kind implements tree.Node.
func (s *Stack) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (s *Stack) Children() []tree.Node { return asNodes(s.bijections) }

// WithChildren implements tree.Node.
func (s *Stack) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Stack.WithChildren", children, len(s.bijections)); err != nil {
		return nil, err
	}
	bs, err := asBijections("Stack.WithChildren", children)
	if err != nil {
		return nil, err
	}

	return &Stack{bijections: bs, inner: s.inner, condDim: s.condDim}, nil
}

// Shape implements Bijection.
func (s *Stack) Shape() []int { return append([]int{len(s.bijections)}, s.inner...) }

// CondDim implements Bijection.
func (s *Stack) CondDim() int { return s.condDim }

func (s *Stack) apply(method string, in, cond *tensor.Array, fn partFunc) (*tensor.Array, float64, error) {
	if err := checkArgs(method, s, in, cond); err != nil {
		return nil, 0, err
	}
	parts := make([]*tensor.Array, len(s.bijections))
	var total float64
	for i, b := range s.bijections {
		part, err := in.Index(i)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", method, err)
		}
		out, ld, err := fn(b, part, cond)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: slice %d: %w", method, i, err)
		}
		parts[i] = out
		total += ld
	}
	stacked, err := tensor.Stack(parts)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", method, err)
	}

	return stacked, total, nil
}

// Transform implements Bijection.
func (s *Stack) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(s.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (s *Stack) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	return s.apply("Stack.TransformAndLogDet", x, cond, Bijection.TransformAndLogDet)
}

// Inverse implements Bijection.
func (s *Stack) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(s.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (s *Stack) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	return s.apply("Stack.InverseAndLogDet", y, cond, Bijection.InverseAndLogDet)
}
