// SPDX-License-Identifier: MIT
// Package: tree
//
// Unwrap: resolve every wrapper in a tree to its concrete value.
//
// Algorithm (depth first, single dispatch on the closed Kind tag):
//  1. KindLeaf:      returned unchanged.
//  2. KindComposite: children unwrapped; the node is rebuilt only when at least
//     one child changed, so wrapper-free subtrees keep their identity.
//  3. KindWrapper:   raw children unwrapped first (inner wrappers resolve before
//     outer ones), then Recover is applied, then the recovered value is itself
//     unwrapped (a recovery rule may return nodes that still hold wrappers).
//     Wrappers with a non-empty BatchShape are resolved slot by slot along
//     the first recorded extent and the results are stacked.
//
// Guarantees:
//   - Deterministic: depends only on the raw representation.
//   - Idempotent: a tree without wrappers is returned as-is.

package tree

import (
	"fmt"

	"github.com/katalvlaran/lvflow/tensor"
)

// Unwrap returns a structurally identical copy of n in which every wrapper has
// been replaced by its resolved value.
func Unwrap(n Node) (Node, error) {
	out, _, err := unwrap(n)

	return out, err
}

// UnwrapArray resolves n and returns its array. Elementary components read
// their parameters through this, so they accept resolved and unresolved trees.
func UnwrapArray(n Node) (*tensor.Array, error) {
	if l, ok := n.(*Leaf); ok {
		return l.arr, nil
	}
	out, err := Unwrap(n)
	if err != nil {
		return nil, err
	}
	l, ok := out.(*Leaf)
	if !ok {
		return nil, fmt.Errorf("UnwrapArray: resolved to %s: %w", out.Kind(), ErrNotArray)
	}

	return l.arr, nil
}

func unwrap(n Node) (Node, bool, error) {
	if n == nil {
		return nil, false, fmt.Errorf("Unwrap: nil node: %w", ErrUnknownKind)
	}
	switch n.Kind() {
	case KindLeaf:
		return n, false, nil

	case KindComposite:
		children, changed, err := unwrapChildren(n.Children())
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return n, false, nil
		}
		rebuilt, err := n.WithChildren(children)
		if err != nil {
			return nil, false, fmt.Errorf("Unwrap: %w", err)
		}

		return rebuilt, true, nil

	case KindWrapper:
		w, ok := n.(Wrapper)
		if !ok || !knownVariant(w.Variant()) {
			return nil, false, fmt.Errorf("Unwrap: %T: %w", n, ErrUnknownKind)
		}
		if BatchRank(w) > 0 {
			out, err := unwrapBatched(w)
			return out, true, err
		}
		children, _, err := unwrapChildren(w.Children())
		if err != nil {
			return nil, false, err
		}
		value, err := w.Recover(children)
		if err != nil {
			return nil, false, fmt.Errorf("Unwrap: %s: %w", w.Variant(), err)
		}
		resolved, _, err := unwrap(value)
		if err != nil {
			return nil, false, err
		}

		return resolved, true, nil

	default:
		return nil, false, fmt.Errorf("Unwrap: %s: %w", n.Kind(), ErrUnknownKind)
	}
}

func unwrapChildren(children []Node) ([]Node, bool, error) {
	if len(children) == 0 {
		return children, false, nil
	}
	out := make([]Node, len(children))
	changed := false
	for i, c := range children {
		u, ch, err := unwrap(c)
		if err != nil {
			return nil, false, err
		}
		out[i] = u
		changed = changed || ch
	}

	return out, changed, nil
}

// unwrapBatched resolves a wrapper with a leading vectorized axis one slot at a
// time, so recovery rules never need to know about batch axes. The slot count
// comes from the wrapper's BatchShape, not from its leaves.
func unwrapBatched(w Wrapper) (Node, error) {
	raw := w.Children()
	shape := w.BatchShape()
	n := shape[0]
	inner := w.WithBatchShape(shape[1:])
	slots := make([]Node, n)
	for i := 0; i < n; i++ {
		sliced := make([]Node, len(raw))
		for j, c := range raw {
			var err error
			if sliced[j], err = Index(c, i); err != nil {
				return nil, fmt.Errorf("Unwrap: batched %s slot %d: %w", w.Variant(), i, err)
			}
		}
		slot, err := inner.WithChildren(sliced)
		if err != nil {
			return nil, fmt.Errorf("Unwrap: batched %s: %w", w.Variant(), err)
		}
		if slots[i], _, err = unwrap(slot); err != nil {
			return nil, err
		}
	}

	return Stack(slots)
}
