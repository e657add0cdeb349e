// SPDX-License-Identifier: MIT

package wrappers

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Parameterization is an invertible map used to constrain a value. Every
// unconditional bijection satisfies it.
type Parameterization interface {
	tree.Node
	Transform(x, cond *tensor.Array) (*tensor.Array, error)
	Inverse(y, cond *tensor.Array) (*tensor.Array, error)
}

// Reparam exposes p.Transform(raw). Children: [raw, parameterization].
type Reparam struct {
	raw   tree.Node
	p     tree.Node
	batch []int
}

// BijectionReparam stores value as its pre-image under p.
// Stage 1 (Validate): non-nil value and map.
// Stage 2 (Execute): raw = p.Inverse(value); a failure or NaN result is a
// domain error (ErrDomain joined with the map's error). Infinite values are
// kept: Exp stores +Inf as +Inf.
func BijectionReparam(value *tensor.Array, p Parameterization) (*Reparam, error) {
	if value == nil || p == nil {
		return nil, fmt.Errorf("BijectionReparam: %w", ErrNilArgument)
	}
	raw, err := p.Inverse(value, nil)
	if err != nil {
		return nil, fmt.Errorf("BijectionReparam: %w: %w", ErrDomain, err)
	}
	if tensor.HasNaN(raw) {
		return nil, fmt.Errorf("BijectionReparam: pre-image is NaN: %w", ErrDomain)
	}

	return &Reparam{raw: tree.Array(raw), p: p}, nil
}

// Kind implements tree.Node.
func (r *Reparam) Kind() tree.Kind { return tree.KindWrapper }

// Children implements tree.Node.
func (r *Reparam) Children() []tree.Node { return []tree.Node{r.raw, r.p} }

// WithChildren implements tree.Node.
func (r *Reparam) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Reparam.WithChildren", children, 2); err != nil {
		return nil, err
	}

	return &Reparam{raw: children[0], p: children[1], batch: r.batch}, nil
}

// Variant implements tree.Wrapper.
func (r *Reparam) Variant() tree.Variant { return tree.VariantReparam }

// BatchShape implements tree.Wrapper.
func (r *Reparam) BatchShape() []int { return slices.Clone(r.batch) }

// WithBatchShape implements tree.Wrapper.
func (r *Reparam) WithBatchShape(shape []int) tree.Wrapper {
	return &Reparam{raw: r.raw, p: r.p, batch: slices.Clone(shape)}
}

// Recover implements tree.Wrapper.
func (r *Reparam) Recover(children []tree.Node) (tree.Node, error) {
	raw, err := tree.UnwrapArray(children[0])
	if err != nil {
		return nil, err
	}
	p, ok := children[1].(Parameterization)
	if !ok {
		return nil, fmt.Errorf("Reparam.Recover: %T is not a parameterization: %w", children[1], ErrNilArgument)
	}
	out, err := p.Transform(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("Reparam.Recover: %w", err)
	}

	return tree.Array(out), nil
}

// Raw returns the stored pre-image node.
func (r *Reparam) Raw() tree.Node { return r.raw }
