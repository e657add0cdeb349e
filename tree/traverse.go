// SPDX-License-Identifier: MIT

package tree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
)

// Path addresses a node by child indices from the root.
type Path []int

// errSkip lets a Walk callback prune a subtree.
var errSkip = errors.New("tree: skip subtree")

// SkipChildren may be returned by a Walk callback to skip a node's children.
var SkipChildren = errSkip

// Walk visits n and its descendants depth first (parent before children, in
// child order), calling fn with each node's path. Wrappers are visited as
// nodes and their raw children are walked like any other children.
func Walk(n Node, fn func(path Path, n Node) error) error {
	err := walk(nil, n, fn)
	if errors.Is(err, errSkip) {
		return nil
	}

	return err
}

func walk(path Path, n Node, fn func(Path, Node) error) error {
	if err := fn(path, n); err != nil {
		if errors.Is(err, errSkip) {
			return nil
		}

		return err
	}
	for i, c := range n.Children() {
		if err := walk(append(slices.Clip(path), i), c, fn); err != nil {
			return err
		}
	}

	return nil
}

// Leaves returns every array leaf under n in depth-first order, including the
// raw leaves of wrappers.
func Leaves(n Node) []*tensor.Array {
	var out []*tensor.Array
	_ = Walk(n, func(_ Path, n Node) error {
		if l, ok := n.(*Leaf); ok {
			out = append(out, l.arr)
		}

		return nil
	})

	return out
}

// At returns the node addressed by path.
func At(root Node, path ...int) (Node, error) {
	n := root
	for depth, i := range path {
		children := n.Children()
		if i < 0 || i >= len(children) {
			return nil, fmt.Errorf("At: %v at depth %d: %w", path, depth, ErrPath)
		}
		n = children[i]
	}

	return n, nil
}

// Replace returns a new tree in which the node at path is replaced by fn(node).
// Every ancestor is rebuilt with WithChildren; the input tree is not modified.
func Replace(root Node, fn func(Node) (Node, error), path ...int) (Node, error) {
	if len(path) == 0 {
		return fn(root)
	}
	children := root.Children()
	i := path[0]
	if i < 0 || i >= len(children) {
		return nil, fmt.Errorf("Replace: index %d of %d: %w", i, len(children), ErrPath)
	}
	replaced, err := Replace(children[i], fn, path[1:]...)
	if err != nil {
		return nil, err
	}
	next := slices.Clone(children)
	next[i] = replaced

	return root.WithChildren(next)
}

// Equal reports whether a and b have the same structure and identical leaves.
func Equal(a, b Node) bool {
	return compare(a, b, tensor.Equal)
}

// AllClose reports whether a and b have the same structure and leaves within tol.
func AllClose(a, b Node, tol float64) bool {
	return compare(a, b, func(x, y *tensor.Array) bool { return tensor.AllClose(x, y, tol) })
}

func compare(a, b Node, leafEq func(x, y *tensor.Array) bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == KindLeaf {
		return leafEq(a.(*Leaf).arr, b.(*Leaf).arr)
	}
	if a.Kind() == KindWrapper {
		wa, okA := a.(Wrapper)
		wb, okB := b.(Wrapper)
		if !okA || !okB || wa.Variant() != wb.Variant() || !slices.Equal(wa.BatchShape(), wb.BatchShape()) {
			return false
		}
	}
	ca, cb := a.Children(), b.Children()
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !compare(ca[i], cb[i], leafEq) {
			return false
		}
	}

	return true
}

// HasWrappers reports whether any wrapper remains under n.
func HasWrappers(n Node) bool {
	found := false
	_ = Walk(n, func(_ Path, n Node) error {
		if n.Kind() == KindWrapper {
			found = true
			return errSkip
		}

		return nil
	})

	return found
}
