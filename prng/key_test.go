package prng_test

import (
	"slices"
	"testing"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/stretchr/testify/require"
)

// TestSplitDeterministic verifies that splitting is reproducible and prefix-stable.
func TestSplitDeterministic(t *testing.T) {
	key := prng.NewKey(0)

	a := key.Split(4)
	b := key.Split(4)
	require.Equal(t, a, b) // same key, same children

	c := key.Split(6)
	require.Equal(t, a, c[:4]) // longer split shares the prefix
}

// TestSplitDistinct ensures no child key repeats its parent or a sibling.
func TestSplitDistinct(t *testing.T) {
	key := prng.NewKey(42)
	keys := key.Split(16)

	seen := map[prng.Key]bool{key: true}
	for _, k := range keys {
		require.False(t, seen[k], "duplicate key %v", k)
		seen[k] = true
	}
}

// TestDrawsReproducible checks Normal and Permutation depend only on the key.
func TestDrawsReproducible(t *testing.T) {
	k1, k2 := prng.NewKey(7).Split2()

	require.True(t, tensor.Equal(prng.Normal(k1, 3, 2), prng.Normal(k1, 3, 2)))
	require.False(t, tensor.Equal(prng.Normal(k1, 3, 2), prng.Normal(k2, 3, 2)))

	perm := prng.Permutation(k1, 10)
	require.Equal(t, perm, prng.Permutation(k1, 10))
	sorted := slices.Clone(perm)
	slices.Sort(sorted)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, sorted)
}

// TestUniformBounds ensures Uniform stays inside [lo, hi).
func TestUniformBounds(t *testing.T) {
	u := prng.Uniform(prng.NewKey(1), -2, 3, 100)
	for _, v := range u.Data() {
		require.GreaterOrEqual(t, v, -2.0)
		require.Less(t, v, 3.0)
	}
}
