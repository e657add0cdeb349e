// SPDX-License-Identifier: MIT
// Package: tree
//
// Partition: split a tree into trainable leaves and the static skeleton.
//
// Contract:
//   - Split never descends into a frozen wrapper (VariantFrozen); its raw
//     leaves always stay in the skeleton.
//   - Every other wrapper is descended into, so its raw leaves are candidates.
//   - The Filter decides, per candidate leaf, whether it is trainable.
//   - Combine(p.Params()) rebuilds a tree equal to the original.
//
// Leaves are visited in Walk order; Params, Ravel and Combine all use it.

package tree

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
)

// Filter selects trainable leaves.
type Filter interface {
	// Include reports whether the leaf at path is trainable.
	Include(path Path, leaf *Leaf) (bool, error)
}

// predicate adapts a function over arrays to a Filter.
type predicate func(a *tensor.Array) bool

func (p predicate) Include(_ Path, l *Leaf) (bool, error) { return p(l.arr), nil }

// IsArray selects every array leaf. It is the default training filter.
var IsArray Filter = predicate(func(*tensor.Array) bool { return true })

// Predicate returns a Filter selecting the leaves for which fn returns true.
func Predicate(fn func(a *tensor.Array) bool) Filter { return predicate(fn) }

// Mask is a boolean tree matching a prefix of the structure it filters. A
// terminal mask node applies its value to the whole subtree below it.
type Mask struct {
	value    bool
	children []Mask
	terminal bool
}

// MaskAll returns a terminal mask selecting (b=true) or excluding every leaf.
func MaskAll(b bool) Mask { return Mask{value: b, terminal: true} }

// MaskLike returns a mask with the full structure of root and every leaf set to v.
func MaskLike(root Node, v bool) Mask {
	children := root.Children()
	if len(children) == 0 {
		return MaskAll(v)
	}
	m := Mask{children: make([]Mask, len(children))}
	for i, c := range children {
		m.children[i] = MaskLike(c, v)
	}

	return m
}

// With returns a copy of m whose node at path is replaced by MaskAll(value).
func (m Mask) With(value bool, path ...int) (Mask, error) {
	if len(path) == 0 {
		return MaskAll(value), nil
	}
	if m.terminal || path[0] < 0 || path[0] >= len(m.children) {
		return Mask{}, fmt.Errorf("Mask.With: %v: %w", path, ErrMask)
	}
	next := slices.Clone(m.children)
	sub, err := next[path[0]].With(value, path[1:]...)
	if err != nil {
		return Mask{}, err
	}
	next[path[0]] = sub

	return Mask{children: next}, nil
}

// Include implements Filter.
func (m Mask) Include(path Path, _ *Leaf) (bool, error) {
	cur := m
	for depth, i := range path {
		if cur.terminal {
			return cur.value, nil
		}
		if i >= len(cur.children) {
			return false, fmt.Errorf("Mask: path %v at depth %d: %w", path, depth, ErrMask)
		}
		cur = cur.children[i]
	}
	if !cur.terminal {
		return false, fmt.Errorf("Mask: path %v ends on an inner mask node: %w", path, ErrMask)
	}

	return cur.value, nil
}

// Partition holds the trainable leaves of a tree and what is needed to rebuild it.
type Partition struct {
	root   Node
	paths  []Path
	params []*tensor.Array
	size   int
}

// Split partitions root into trainable leaves (selected by filter, outside
// frozen wrappers) and the static remainder. A nil filter means IsArray.
func Split(root Node, filter Filter) (*Partition, error) {
	if filter == nil {
		filter = IsArray
	}
	p := &Partition{root: root}
	err := Walk(root, func(path Path, n Node) error {
		if IsFrozen(n) {
			return errSkip
		}
		l, ok := n.(*Leaf)
		if !ok {
			return nil
		}
		in, err := filter.Include(path, l)
		if err != nil {
			return err
		}
		if in {
			p.paths = append(p.paths, slices.Clone(path))
			p.params = append(p.params, l.arr)
			p.size += l.arr.Size()
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Split: %w", err)
	}

	return p, nil
}

// Params returns the trainable leaves in traversal order.
func (p *Partition) Params() []*tensor.Array { return slices.Clone(p.params) }

// Paths returns the path of every trainable leaf.
func (p *Partition) Paths() []Path { return slices.Clone(p.paths) }

// Len is the number of trainable leaves.
func (p *Partition) Len() int { return len(p.params) }

// Size is the total number of trainable scalars.
func (p *Partition) Size() int { return p.size }

// Root returns the tree the partition was taken from.
func (p *Partition) Root() Node { return p.root }

// Ravel concatenates every trainable leaf into one flat vector.
func (p *Partition) Ravel() []float64 {
	out := make([]float64, 0, p.size)
	for _, a := range p.params {
		out = append(out, a.Raw()...)
	}

	return out
}

// Unravel cuts flat into arrays shaped like Params.
func (p *Partition) Unravel(flat []float64) ([]*tensor.Array, error) {
	if len(flat) != p.size {
		return nil, fmt.Errorf("Unravel: got %d values want %d: %w", len(flat), p.size, ErrParams)
	}
	out := make([]*tensor.Array, len(p.params))
	off := 0
	for i, a := range p.params {
		n := a.Size()
		arr, err := tensor.New(a.Shape(), flat[off:off+n])
		if err != nil {
			return nil, fmt.Errorf("Unravel: %w", err)
		}
		out[i] = arr
		off += n
	}

	return out, nil
}

// Combine rebuilds the tree with params substituted for the trainable leaves.
// Stage 1 (Validate): count and per-leaf shapes must match Params.
// Stage 2 (Execute): rebuild every ancestor of a replaced leaf; untouched
// subtrees keep their identity.
func (p *Partition) Combine(params []*tensor.Array) (Node, error) {
	if len(params) != len(p.params) {
		return nil, fmt.Errorf("Combine: got %d arrays want %d: %w", len(params), len(p.params), ErrParams)
	}
	for i, a := range params {
		if a == nil || !tensor.SameShape(a, p.params[i]) {
			return nil, fmt.Errorf("Combine: array %d shape: %w", i, ErrParams)
		}
	}
	cursor := 0
	out, err := p.rebuild(nil, p.root, params, &cursor)
	if err != nil {
		return nil, fmt.Errorf("Combine: %w", err)
	}

	return out, nil
}

// CombineFlat is Unravel followed by Combine.
func (p *Partition) CombineFlat(flat []float64) (Node, error) {
	params, err := p.Unravel(flat)
	if err != nil {
		return nil, err
	}

	return p.Combine(params)
}

func (p *Partition) rebuild(path Path, n Node, params []*tensor.Array, cursor *int) (Node, error) {
	if *cursor >= len(p.paths) {
		return n, nil
	}
	if slices.Equal(path, p.paths[*cursor]) {
		out := Array(params[*cursor])
		*cursor++

		return out, nil
	}
	if IsFrozen(n) {
		return n, nil
	}
	children := n.Children()
	if len(children) == 0 {
		return n, nil
	}
	next := make([]Node, len(children))
	changed := false
	for i, c := range children {
		r, err := p.rebuild(append(slices.Clip(path), i), c, params, cursor)
		if err != nil {
			return nil, err
		}
		next[i] = r
		changed = changed || r != c
	}
	if !changed {
		return n, nil
	}

	return n.WithChildren(next)
}
