// SPDX-License-Identifier: MIT
// Package: tree
//
// Vectorized construction.
//
// Convention:
//   - A batched tree is a tree whose array leaves all carry the same extra
//     leading axis and whose wrappers carry that extent in front of the
//     BatchShape of the unbatched tree they were stacked from.
//   - Static metadata (activation names, sizes) is taken from the first slot.
//     Anything that may differ between slots, such as a random permutation,
//     must be held as a leaf so it batches with the rest.
//
// Stack and Index are inverse operations: Index(Stack(ts), i) equals ts[i].

package tree

import (
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvflow/tensor"
)

// Stack combines structurally identical trees into one batched tree.
// Stage 1 (Validate): non-empty input, equal kinds, variants, batch shapes,
// child counts.
// Stage 2 (Execute): stack array leaves, recurse into children positionally.
// Stage 3 (Finalize): rebuild the first tree's node with stacked children;
// wrappers get len(nodes) prepended to their BatchShape.
func Stack(nodes []Node) (Node, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("Stack: no trees: %w", ErrShape)
	}
	first := nodes[0]
	for i, n := range nodes {
		if n == nil || n.Kind() != first.Kind() {
			return nil, fmt.Errorf("Stack: index %d kind differs: %w", i, ErrStructure)
		}
	}

	switch first.Kind() {
	case KindLeaf:
		arrs := make([]*tensor.Array, len(nodes))
		for i, n := range nodes {
			arrs[i] = n.(*Leaf).arr
		}
		out, err := tensor.Stack(arrs)
		if err != nil {
			return nil, fmt.Errorf("Stack: %w: %w", ErrShape, err)
		}

		return Array(out), nil

	case KindComposite:
		children, err := stackChildren(nodes)
		if err != nil {
			return nil, err
		}

		return first.WithChildren(children)

	case KindWrapper:
		fw, ok := first.(Wrapper)
		if !ok {
			return nil, fmt.Errorf("Stack: %T: %w", first, ErrUnknownKind)
		}
		for i, n := range nodes {
			w := n.(Wrapper)
			if w.Variant() != fw.Variant() || !slices.Equal(w.BatchShape(), fw.BatchShape()) {
				return nil, fmt.Errorf("Stack: index %d wrapper differs: %w", i, ErrStructure)
			}
		}
		children, err := stackChildren(nodes)
		if err != nil {
			return nil, err
		}

		shape := append([]int{len(nodes)}, fw.BatchShape()...)

		return fw.WithBatchShape(shape).WithChildren(children)

	default:
		return nil, fmt.Errorf("Stack: %s: %w", first.Kind(), ErrUnknownKind)
	}
}

func stackChildren(nodes []Node) ([]Node, error) {
	width := len(nodes[0].Children())
	columns := make([][]Node, width)
	for i, n := range nodes {
		children := n.Children()
		if len(children) != width {
			return nil, fmt.Errorf("Stack: index %d has %d children, want %d: %w", i, len(children), width, ErrStructure)
		}
		for j, c := range children {
			columns[j] = append(columns[j], c)
		}
	}
	out := make([]Node, width)
	for j, col := range columns {
		s, err := Stack(col)
		if err != nil {
			return nil, err
		}
		out[j] = s
	}

	return out, nil
}

// Index returns slot i of a batched tree: every array leaf is indexed along its
// leading axis and every wrapper drops the first extent of its BatchShape.
func Index(n Node, i int) (Node, error) {
	switch n.Kind() {
	case KindLeaf:
		arr, err := n.(*Leaf).arr.Index(i)
		if err != nil {
			return nil, fmt.Errorf("Index: %w: %w", ErrShape, err)
		}

		return Array(arr), nil

	case KindComposite:
		children, err := indexChildren(n.Children(), i)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return n, nil
		}

		return n.WithChildren(children)

	case KindWrapper:
		w, ok := n.(Wrapper)
		if !ok {
			return nil, fmt.Errorf("Index: %T: %w", n, ErrUnknownKind)
		}
		shape := w.BatchShape()
		if len(shape) == 0 {
			return nil, fmt.Errorf("Index: unbatched %s wrapper: %w", w.Variant(), ErrShape)
		}
		if i < 0 || i >= shape[0] {
			return nil, fmt.Errorf("Index: slot %d of %d: %w", i, shape[0], ErrShape)
		}
		children, err := indexChildren(w.Children(), i)
		if err != nil {
			return nil, err
		}

		return w.WithBatchShape(shape[1:]).WithChildren(children)

	default:
		return nil, fmt.Errorf("Index: %s: %w", n.Kind(), ErrUnknownKind)
	}
}

func indexChildren(children []Node, i int) ([]Node, error) {
	out := make([]Node, len(children))
	for j, c := range children {
		s, err := Index(c, i)
		if err != nil {
			return nil, err
		}
		out[j] = s
	}

	return out, nil
}

// BatchSize returns the common leading extent of every array leaf under n.
// ErrShape is returned when n has no array leaves, a rank-0 leaf, or leaves
// that disagree on the leading extent.
func BatchSize(n Node) (int, error) {
	return leadingSize([]Node{n})
}

func leadingSize(nodes []Node) (int, error) {
	size := -1
	for _, root := range nodes {
		err := Walk(root, func(_ Path, n Node) error {
			l, ok := n.(*Leaf)
			if !ok {
				return nil
			}
			if l.arr.Rank() == 0 {
				return fmt.Errorf("rank-0 leaf under a batch axis: %w", ErrShape)
			}
			d := l.arr.Dim(0)
			if size >= 0 && d != size {
				return fmt.Errorf("leading extents %d and %d: %w", size, d, ErrShape)
			}
			size = d

			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	if size < 0 {
		return 0, fmt.Errorf("no array leaves to infer batch size: %w", ErrShape)
	}

	return size, nil
}

// Vmap constructs one tree per slot of the leading axis of in, independently
// and concurrently, then stacks the results in slot order. The result equals
// building every slot sequentially and calling Stack.
func Vmap(in Node, fn func(slot Node) (Node, error)) (Node, error) {
	n, err := BatchSize(in)
	if err != nil {
		return nil, fmt.Errorf("Vmap: %w", err)
	}

	return VmapN(n, func(i int) (Node, error) {
		slot, err := Index(in, i)
		if err != nil {
			return nil, err
		}

		return fn(slot)
	})
}

// VmapArray is Vmap over the leading axis of a single array.
func VmapArray(in *tensor.Array, fn func(slot *tensor.Array) (Node, error)) (Node, error) {
	return Vmap(Array(in), func(slot Node) (Node, error) {
		return fn(slot.(*Leaf).arr)
	})
}

// VmapN builds n trees with fn(0..n-1) concurrently and stacks them.
func VmapN(n int, fn func(i int) (Node, error)) (Node, error) {
	if n < 1 {
		return nil, fmt.Errorf("VmapN: n=%d: %w", n, ErrShape)
	}
	slots := make([]Node, n)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			out, err := fn(i)
			if err != nil {
				return fmt.Errorf("VmapN: slot %d: %w", i, err)
			}
			slots[i] = out

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Stack(slots)
}
