// SPDX-License-Identifier: MIT

package bijections

import (
	"fmt"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Invert swaps the roles of a bijection's forward and inverse maps.
type Invert struct {
	inner Bijection
}

// NewInvert wraps b.
func NewInvert(b Bijection) (*Invert, error) {
	if b == nil {
		return nil, fmt.Errorf("NewInvert: %w", ErrNotBijection)
	}

	return &Invert{inner: b}, nil
}

// Kind implements tree.Node.
func (v *Invert) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (v *Invert) Children() []tree.Node { return []tree.Node{v.inner} }

// WithChildren implements tree.Node.
func (v *Invert) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Invert.WithChildren", children, 1); err != nil {
		return nil, err
	}
	bs, err := asBijections("Invert.WithChildren", children)
	if err != nil {
		return nil, err
	}

	return &Invert{inner: bs[0]}, nil
}

// Inner returns the wrapped bijection.
func (v *Invert) Inner() Bijection { return v.inner }

// Shape implements Bijection.
func (v *Invert) Shape() []int { return v.inner.Shape() }

// CondDim implements Bijection.
func (v *Invert) CondDim() int { return v.inner.CondDim() }

// Transform implements Bijection.
func (v *Invert) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return v.inner.Inverse(x, cond)
}

// TransformAndLogDet implements Bijection.
func (v *Invert) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	return v.inner.InverseAndLogDet(x, cond)
}

// Inverse implements Bijection.
func (v *Invert) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return v.inner.Transform(y, cond)
}

// InverseAndLogDet implements Bijection.
func (v *Invert) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	return v.inner.TransformAndLogDet(y, cond)
}
