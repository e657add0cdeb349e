// SPDX-License-Identifier: MIT

package tree

import (
	"fmt"

	"github.com/katalvlaran/lvflow/tensor"
)

// Kind tags the closed set of node shapes every traversal understands.
type Kind uint8

const (
	// KindLeaf is an array leaf (*Leaf).
	KindLeaf Kind = iota + 1
	// KindComposite is a structural node (bijection, distribution, layer) whose
	// content is exactly its declared children plus immutable static metadata.
	KindComposite
	// KindWrapper is a lazy value resolved by Unwrap (must implement Wrapper).
	KindWrapper
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindComposite:
		return "composite"
	case KindWrapper:
		return "wrapper"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Variant tags the closed set of wrapper reparameterizations.
type Variant uint8

const (
	// VariantReparam resolves through an invertible map's forward transform.
	VariantReparam Variant = iota + 1
	// VariantLambda resolves by calling a pure function on its arguments.
	VariantLambda
	// VariantFrozen resolves to its content unchanged and is never trainable.
	VariantFrozen
	// VariantWeightNorm resolves to row-normalized weights times a learned scale.
	VariantWeightNorm
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case VariantReparam:
		return "reparam"
	case VariantLambda:
		return "lambda"
	case VariantFrozen:
		return "frozen"
	case VariantWeightNorm:
		return "weightnorm"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// knownVariant reports whether v belongs to the closed variant set.
func knownVariant(v Variant) bool {
	switch v {
	case VariantReparam, VariantLambda, VariantFrozen, VariantWeightNorm:
		return true
	default:
		return false
	}
}

// Node is implemented by everything that lives in an lvflow tree.
//
// Children must list every piece of numeric content the node owns, in a fixed
// order; WithChildren must return a new node of the same concrete type and
// static metadata holding the given children. Nodes are never mutated.
type Node interface {
	Kind() Kind
	Children() []Node
	WithChildren(children []Node) (Node, error)
}

// Wrapper is a lazy value node. Its children are the raw representation, and
// Recover maps the already-resolved children to the exposed value.
//
// BatchShape lists the extents of the leading vectorized axes the wrapper was
// built under, outermost first; it is empty for an unbatched wrapper. Unwrap
// resolves batched wrappers slot by slot, so Recover only ever sees unbatched
// children. The extents live on the wrapper itself, so a batched wrapper
// without array leaves still resolves.
type Wrapper interface {
	Node
	Variant() Variant
	BatchShape() []int
	WithBatchShape(shape []int) Wrapper
	Recover(children []Node) (Node, error)
}

// BatchRank returns the number of leading vectorized axes of w.
func BatchRank(w Wrapper) int { return len(w.BatchShape()) }

// Leaf holds one array.
type Leaf struct {
	arr *tensor.Array
}

// Array returns a leaf holding a.
func Array(a *tensor.Array) *Leaf { return &Leaf{arr: a} }

// Kind implements Node.
func (l *Leaf) Kind() Kind { return KindLeaf }

// Children implements Node; leaves have none.
func (l *Leaf) Children() []Node { return nil }

// WithChildren implements Node.
func (l *Leaf) WithChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		return nil, fmt.Errorf("Leaf.WithChildren: got %d: %w", len(children), ErrChildCount)
	}

	return l, nil
}

// Value returns the leaf's array.
func (l *Leaf) Value() *tensor.Array { return l.arr }

// String implements fmt.Stringer.
func (l *Leaf) String() string { return l.arr.String() }

// IsFrozen reports whether n is a frozen wrapper.
func IsFrozen(n Node) bool {
	w, ok := n.(Wrapper)

	return ok && n.Kind() == KindWrapper && w.Variant() == VariantFrozen
}

// CheckChildren is a helper for WithChildren implementations.
func CheckChildren(method string, children []Node, want int) error {
	if len(children) != want {
		return fmt.Errorf("%s: got %d want %d: %w", method, len(children), want, ErrChildCount)
	}

	return nil
}
