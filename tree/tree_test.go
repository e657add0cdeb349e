// SPDX-License-Identifier: MIT

package tree_test

import (
	"errors"
	"testing"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/stretchr/testify/require"
)

// pair is a minimal composite with two children.
type pair struct{ a, b tree.Node }

func (p *pair) Kind() tree.Kind { return tree.KindComposite }
func (p *pair) Children() []tree.Node { return []tree.Node{p.a, p.b} }
func (p *pair) WithChildren(c []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("pair", c, 2); err != nil {
		return nil, err
	}

	return &pair{a: c[0], b: c[1]}, nil
}

// doubled is a test wrapper resolving to twice its single array child.
// frozen switches its variant to VariantFrozen.
type doubled struct {
	raw    tree.Node
	batch  []int
	frozen bool
}

func (d *doubled) Kind() tree.Kind { return tree.KindWrapper }
func (d *doubled) Children() []tree.Node { return []tree.Node{d.raw} }
func (d *doubled) WithChildren(c []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("doubled", c, 1); err != nil {
		return nil, err
	}

	return &doubled{raw: c[0], batch: d.batch, frozen: d.frozen}, nil
}
func (d *doubled) Variant() tree.Variant {
	if d.frozen {
		return tree.VariantFrozen
	}

	return tree.VariantLambda
}
func (d *doubled) BatchShape() []int { return d.batch }
func (d *doubled) WithBatchShape(s []int) tree.Wrapper {
	return &doubled{raw: d.raw, batch: s, frozen: d.frozen}
}
func (d *doubled) Recover(c []tree.Node) (tree.Node, error) {
	arr, err := tree.UnwrapArray(c[0])
	if err != nil {
		return nil, err
	}
	if arr.Rank() != 1 {
		return nil, errors.New("doubled: batch axis leaked into recovery")
	}

	return tree.Array(tensor.Scale(2, arr)), nil
}

// constant is a test wrapper without children resolving to a fixed vector.
type constant struct {
	value []float64
	batch []int
}

func (c *constant) Kind() tree.Kind { return tree.KindWrapper }
func (c *constant) Children() []tree.Node { return nil }
func (c *constant) Variant() tree.Variant { return tree.VariantLambda }
func (c *constant) BatchShape() []int { return c.batch }
func (c *constant) WithChildren(ch []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("constant", ch, 0); err != nil {
		return nil, err
	}

	return &constant{value: c.value, batch: c.batch}, nil
}
func (c *constant) WithBatchShape(s []int) tree.Wrapper {
	return &constant{value: c.value, batch: s}
}
func (c *constant) Recover([]tree.Node) (tree.Node, error) {
	return vec(c.value...), nil
}

// badKind reports a Kind outside the closed set.
type badKind struct{}

func (badKind) Kind() tree.Kind { return tree.Kind(42) }
func (badKind) Children() []tree.Node { return nil }
func (badKind) WithChildren([]tree.Node) (tree.Node, error) { return badKind{}, nil }

func vec(v ...float64) tree.Node { return tree.Array(tensor.Vector(v...)) }

// TestUnwrapResolvesNested checks inner-first resolution of nested wrappers.
func TestUnwrapResolvesNested(t *testing.T) {
	root := &pair{
		a: &doubled{raw: &doubled{raw: vec(1, 2)}}, // 4x
		b: vec(3),
	}
	out, err := tree.Unwrap(root)
	require.NoError(t, err)

	require.True(t, tree.Equal(&pair{a: vec(4, 8), b: vec(3)}, out))
	require.False(t, tree.HasWrappers(out)) // fully resolved
}

// TestUnwrapIdempotent verifies Unwrap(Unwrap(t)) returns the same tree.
func TestUnwrapIdempotent(t *testing.T) {
	root := &pair{a: &doubled{raw: vec(1)}, b: &pair{a: vec(2), b: vec(3)}}
	once, err := tree.Unwrap(root)
	require.NoError(t, err)
	twice, err := tree.Unwrap(once)
	require.NoError(t, err)

	require.Same(t, once, twice) // wrapper-free trees keep identity
	require.True(t, tree.Equal(once, twice))
}

// TestUnwrapUnknownKind ensures unknown kinds are rejected, not ignored.
func TestUnwrapUnknownKind(t *testing.T) {
	_, err := tree.Unwrap(&pair{a: badKind{}, b: vec(1)})
	require.ErrorIs(t, err, tree.ErrUnknownKind)
}

// TestStackIndexRoundTrip checks Index(Stack(ts), i) == ts[i].
func TestStackIndexRoundTrip(t *testing.T) {
	ts := []tree.Node{
		&pair{a: &doubled{raw: vec(1, 2)}, b: vec(0)},
		&pair{a: &doubled{raw: vec(3, 4)}, b: vec(1)},
		&pair{a: &doubled{raw: vec(5, 6)}, b: vec(2)},
	}
	stacked, err := tree.Stack(ts)
	require.NoError(t, err)

	w := stacked.Children()[0].(tree.Wrapper)
	require.Equal(t, []int{3}, w.BatchShape())
	require.Equal(t, 1, tree.BatchRank(w))

	n, err := tree.BatchSize(stacked)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	for i, want := range ts {
		got, err := tree.Index(stacked, i)
		require.NoError(t, err)
		require.True(t, tree.Equal(want, got), "slot %d", i)
	}
}

// TestBatchedUnwrapMatchesPerSlot verifies that a batched wrapper unwraps to
// the stack of its per-slot resolutions.
func TestBatchedUnwrapMatchesPerSlot(t *testing.T) {
	for n := 1; n <= 4; n++ {
		batched, err := tree.VmapN(n, func(i int) (tree.Node, error) {
			return &doubled{raw: vec(float64(i), float64(-i))}, nil
		})
		require.NoError(t, err)

		got, err := tree.Unwrap(batched)
		require.NoError(t, err)

		slots := make([]tree.Node, n)
		for i := range slots {
			slots[i], err = tree.Unwrap(&doubled{raw: vec(float64(i), float64(-i))})
			require.NoError(t, err)
		}
		want, err := tree.Stack(slots)
		require.NoError(t, err)
		require.True(t, tree.Equal(want, got), "n=%d", n)
	}
}

// TestNestedVmap checks two levels of vectorized construction.
func TestNestedVmap(t *testing.T) {
	outer, err := tree.VmapN(2, func(i int) (tree.Node, error) {
		return tree.VmapN(3, func(j int) (tree.Node, error) {
			return &doubled{raw: vec(float64(10*i + j))}, nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, outer.(tree.Wrapper).BatchShape())

	got, err := tree.UnwrapArray(outer)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 1}, got.Shape())
	require.Equal(t, []float64{0, 2, 4, 20, 22, 24}, got.Data())
}

// TestBatchedWrapperWithoutLeaves resolves a batched wrapper whose slot count
// cannot be read off any array leaf.
func TestBatchedWrapperWithoutLeaves(t *testing.T) {
	batched, err := tree.VmapN(3, func(int) (tree.Node, error) {
		return &constant{value: []float64{1, 2}}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{3}, batched.(tree.Wrapper).BatchShape())

	got, err := tree.UnwrapArray(batched)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, got.Shape())
	require.Equal(t, []float64{1, 2, 1, 2, 1, 2}, got.Data())

	slot, err := tree.Index(batched, 2)
	require.NoError(t, err)
	require.Empty(t, slot.(tree.Wrapper).BatchShape())

	_, err = tree.Index(batched, 3)
	require.ErrorIs(t, err, tree.ErrShape)
}

// TestStackBatchShapeMismatch rejects wrappers stacked from different extents.
func TestStackBatchShapeMismatch(t *testing.T) {
	a := &constant{value: []float64{1}, batch: []int{2}}
	b := &constant{value: []float64{1}, batch: []int{3}}
	_, err := tree.Stack([]tree.Node{a, b})
	require.ErrorIs(t, err, tree.ErrStructure)
	require.False(t, tree.Equal(a, b))
}

// TestVmapArray builds one tree per row of an array.
func TestVmapArray(t *testing.T) {
	in, err := tensor.New([]int{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	out, err := tree.VmapArray(in, func(row *tensor.Array) (tree.Node, error) {
		return &doubled{raw: tree.Array(row)}, nil
	})
	require.NoError(t, err)

	got, err := tree.UnwrapArray(out)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 4, 6, 8}, got.Data())
}

// TestStackStructureMismatch ensures mismatched trees are rejected.
func TestStackStructureMismatch(t *testing.T) {
	_, err := tree.Stack([]tree.Node{vec(1), &pair{a: vec(1), b: vec(2)}})
	require.ErrorIs(t, err, tree.ErrStructure)

	_, err = tree.Stack([]tree.Node{vec(1), vec(1, 2)})
	require.ErrorIs(t, err, tree.ErrShape)

	_, err = tree.Index(tree.Array(tensor.Scalar(1)), 0)
	require.ErrorIs(t, err, tree.ErrShape) // rank-0 leaf has no batch axis
}

// TestSplitCombine checks Combine(Params()) reproduces the tree and that frozen
// wrappers are never descended into.
func TestSplitCombine(t *testing.T) {
	root := &pair{
		a: &doubled{raw: vec(1, 2), frozen: true},
		b: &pair{a: vec(3), b: &doubled{raw: vec(4, 5)}},
	}
	p, err := tree.Split(root, nil)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())  // frozen leaf excluded
	require.Equal(t, 3, p.Size()) // 1 + 2 scalars
	require.Equal(t, []float64{3, 4, 5}, p.Ravel())

	back, err := p.Combine(p.Params())
	require.NoError(t, err)
	require.True(t, tree.Equal(root, back))

	moved, err := p.CombineFlat([]float64{30, 40, 50})
	require.NoError(t, err)
	got, err := tree.Unwrap(moved)
	require.NoError(t, err)
	require.True(t, tree.Equal(&pair{a: vec(2, 4), b: &pair{a: vec(30), b: vec(80, 100)}}, got))

	_, err = p.CombineFlat([]float64{1})
	require.ErrorIs(t, err, tree.ErrParams)
}

// TestMaskFilter selects leaves by structure prefix.
func TestMaskFilter(t *testing.T) {
	root := &pair{a: vec(1), b: &pair{a: vec(2), b: vec(3)}}

	m, err := tree.MaskLike(root, true).With(false, 1, 0)
	require.NoError(t, err)
	p, err := tree.Split(root, m)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 3}, p.Ravel())

	prefix, err := tree.MaskLike(root, false).With(true, 1)
	require.NoError(t, err)
	p, err = tree.Split(root, prefix)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3}, p.Ravel()) // terminal mask covers subtree

	_, err = tree.MaskAll(true).With(true, 0)
	require.ErrorIs(t, err, tree.ErrMask)
}

// TestPredicateFilter selects leaves by value.
func TestPredicateFilter(t *testing.T) {
	root := &pair{a: vec(1, 2), b: vec(3)}
	p, err := tree.Split(root, tree.Predicate(func(a *tensor.Array) bool { return a.Size() > 1 }))
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, p.Ravel())
}

// TestReplaceAndAt exercises functional path updates.
func TestReplaceAndAt(t *testing.T) {
	root := &pair{a: vec(1), b: &pair{a: vec(2), b: vec(3)}}
	next, err := tree.Replace(root, func(tree.Node) (tree.Node, error) { return vec(9), nil }, 1, 1)
	require.NoError(t, err)

	got, err := tree.At(next, 1, 1)
	require.NoError(t, err)
	require.True(t, tree.Equal(vec(9), got))

	orig, err := tree.At(root, 1, 1)
	require.NoError(t, err)
	require.True(t, tree.Equal(vec(3), orig)) // input untouched

	_, err = tree.At(root, 5)
	require.ErrorIs(t, err, tree.ErrPath)
	require.Len(t, tree.Leaves(root), 3)
}
