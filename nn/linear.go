// SPDX-License-Identifier: MIT

package nn

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Linear computes W·x + b. Children: [weight, bias]; either may be a wrapper
// resolving to an array of shape [out, in] and [out].
type Linear struct {
	weight  tree.Node
	bias    tree.Node
	in, out int
}

// NewLinear initialises W and b uniformly on ±1/√in.
func NewLinear(key prng.Key, in, out int) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("NewLinear: in=%d out=%d: %w", in, out, ErrInvalidSize)
	}
	wKey, bKey := key.Split2()
	lim := 1 / math.Sqrt(float64(in))

	return &Linear{
		weight: tree.Array(prng.Uniform(wKey, -lim, lim, out, in)),
		bias:   tree.Array(prng.Uniform(bKey, -lim, lim, out)),
		in:     in,
		out:    out,
	}, nil
}

// NewLinearFrom builds a layer from explicit weight and bias nodes.
func NewLinearFrom(weight, bias tree.Node, in, out int) (*Linear, error) {
	if weight == nil || bias == nil {
		return nil, fmt.Errorf("NewLinearFrom: nil weight or bias: %w", ErrInput)
	}
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("NewLinearFrom: in=%d out=%d: %w", in, out, ErrInvalidSize)
	}

	return &Linear{weight: weight, bias: bias, in: in, out: out}, nil
}

// Kind implements tree.Node.
func (l *Linear) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (l *Linear) Children() []tree.Node { return []tree.Node{l.weight, l.bias} }

// WithChildren implements tree.Node.
func (l *Linear) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Linear.WithChildren", children, 2); err != nil {
		return nil, err
	}

	return &Linear{weight: children[0], bias: children[1], in: l.in, out: l.out}, nil
}

// In is the input size.
func (l *Linear) In() int { return l.in }

// Out is the output size.
func (l *Linear) Out() int { return l.out }

// Weight returns the (possibly wrapped) weight node.
func (l *Linear) Weight() tree.Node { return l.weight }

// Apply returns W·x + b for x of shape [in].
func (l *Linear) Apply(x *tensor.Array) (*tensor.Array, error) {
	if x == nil || x.Rank() != 1 || x.Dim(0) != l.in {
		return nil, fmt.Errorf("Linear.Apply: want [%d]: %w", l.in, ErrInput)
	}
	w, err := tree.UnwrapArray(l.weight)
	if err != nil {
		return nil, fmt.Errorf("Linear.Apply: %w", err)
	}
	b, err := tree.UnwrapArray(l.bias)
	if err != nil {
		return nil, fmt.Errorf("Linear.Apply: %w", err)
	}
	wx, err := tensor.MatVec(w, x)
	if err != nil {
		return nil, fmt.Errorf("Linear.Apply: %w", err)
	}

	return tensor.Add(wx, b)
}
