// SPDX-License-Identifier: MIT

package wrappers

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tree"
)

// Frozen marks its content as non-trainable. It resolves to the content
// unchanged, and tree.Split never descends into it.
type Frozen struct {
	content tree.Node
	batch   []int
}

// NonTrainable freezes node. Any subtree may be frozen: an array, a layer or a
// whole bijection.
func NonTrainable(node tree.Node) (*Frozen, error) {
	if node == nil {
		return nil, fmt.Errorf("NonTrainable: %w", ErrNilArgument)
	}

	return &Frozen{content: node}, nil
}

// Kind implements tree.Node.
func (f *Frozen) Kind() tree.Kind { return tree.KindWrapper }

// Children implements tree.Node.
func (f *Frozen) Children() []tree.Node { return []tree.Node{f.content} }

// WithChildren implements tree.Node.
func (f *Frozen) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Frozen.WithChildren", children, 1); err != nil {
		return nil, err
	}

	return &Frozen{content: children[0], batch: f.batch}, nil
}

// Variant implements tree.Wrapper.
func (f *Frozen) Variant() tree.Variant { return tree.VariantFrozen }

// BatchShape implements tree.Wrapper.
func (f *Frozen) BatchShape() []int { return slices.Clone(f.batch) }

// WithBatchShape implements tree.Wrapper.
func (f *Frozen) WithBatchShape(shape []int) tree.Wrapper {
	return &Frozen{content: f.content, batch: slices.Clone(shape)}
}

// Recover implements tree.Wrapper.
func (f *Frozen) Recover(children []tree.Node) (tree.Node, error) {
	return children[0], nil
}
