// SPDX-License-Identifier: MIT

package wrappers

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// NodeFunc is a pure function over resolved nodes.
type NodeFunc func(args []tree.Node) (tree.Node, error)

// ArrayFunc is a pure function over resolved arrays.
type ArrayFunc func(args []*tensor.Array) (*tensor.Array, error)

// Func exposes fn(args...). The arguments are its children; fn is static.
type Func struct {
	fn    NodeFunc
	args  []tree.Node
	batch []int
}

// LambdaNode wraps a pure function of arbitrary nodes.
func LambdaNode(fn NodeFunc, args ...tree.Node) (*Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("LambdaNode: %w", ErrNilArgument)
	}
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("LambdaNode: arg %d: %w", i, ErrNilArgument)
		}
	}

	return &Func{fn: fn, args: args}, nil
}

// Lambda wraps a pure function whose arguments all resolve to arrays.
func Lambda(fn ArrayFunc, args ...tree.Node) (*Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("Lambda: %w", ErrNilArgument)
	}

	return LambdaNode(func(nodes []tree.Node) (tree.Node, error) {
		arrs := make([]*tensor.Array, len(nodes))
		for i, n := range nodes {
			a, err := tree.UnwrapArray(n)
			if err != nil {
				return nil, fmt.Errorf("Lambda: arg %d: %w", i, err)
			}
			arrs[i] = a
		}
		out, err := fn(arrs)
		if err != nil {
			return nil, err
		}

		return tree.Array(out), nil
	}, args...)
}

// Kind implements tree.Node.
func (f *Func) Kind() tree.Kind { return tree.KindWrapper }

// Children implements tree.Node.
func (f *Func) Children() []tree.Node { return f.args }

// WithChildren implements tree.Node.
func (f *Func) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Func.WithChildren", children, len(f.args)); err != nil {
		return nil, err
	}

	return &Func{fn: f.fn, args: children, batch: f.batch}, nil
}

// Variant implements tree.Wrapper.
func (f *Func) Variant() tree.Variant { return tree.VariantLambda }

// BatchShape implements tree.Wrapper.
func (f *Func) BatchShape() []int { return slices.Clone(f.batch) }

// WithBatchShape implements tree.Wrapper.
func (f *Func) WithBatchShape(shape []int) tree.Wrapper {
	return &Func{fn: f.fn, args: f.args, batch: slices.Clone(shape)}
}

// Recover implements tree.Wrapper.
func (f *Func) Recover(children []tree.Node) (tree.Node, error) {
	return f.fn(children)
}
