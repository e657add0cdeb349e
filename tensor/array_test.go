// SPDX-License-Identifier: MIT

package tensor_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/stretchr/testify/require"
)

// TestNewBadShape ensures New rejects negative extents and length mismatches.
func TestNewBadShape(t *testing.T) {
	_, err := tensor.New([]int{-1}, nil)         // negative extent
	require.ErrorIs(t, err, tensor.ErrBadShape) // expect ErrBadShape

	_, err = tensor.New([]int{2, 2}, []float64{1, 2, 3}) // 3 values for 4 slots
	require.ErrorIs(t, err, tensor.ErrBadShape)          // expect ErrBadShape
}

// TestNewCopiesData verifies that New does not alias the caller's slice.
func TestNewCopiesData(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	a, err := tensor.New([]int{2, 2}, data)
	require.NoError(t, err)

	data[0] = 99 // mutate caller slice
	v, err := a.At(0, 0)
	require.NoError(t, err)
	require.Equal(t, 1.0, v) // array unaffected
}

// TestAtOutOfRange ensures At reports bad indices instead of panicking.
func TestAtOutOfRange(t *testing.T) {
	a := tensor.Zeros(2, 3)

	_, err := a.At(2, 0)
	require.ErrorIs(t, err, tensor.ErrOutOfRange)

	_, err = a.At(0)
	require.ErrorIs(t, err, tensor.ErrRank)
}

// TestIndexAndStackRoundTrip checks that Stack inverts slot-wise Index.
func TestIndexAndStackRoundTrip(t *testing.T) {
	a, err := tensor.New([]int{3, 2}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	slots := make([]*tensor.Array, 3)
	for i := range slots {
		slots[i], err = a.Index(i)
		require.NoError(t, err)
		require.Equal(t, []int{2}, slots[i].Shape())
	}
	require.Equal(t, []float64{3, 4}, slots[1].Data())

	back, err := tensor.Stack(slots)
	require.NoError(t, err)
	require.True(t, tensor.Equal(a, back))
}

// TestStackMismatch ensures Stack rejects ragged input and empty input.
func TestStackMismatch(t *testing.T) {
	_, err := tensor.Stack(nil)
	require.ErrorIs(t, err, tensor.ErrEmptyStack)

	_, err = tensor.Stack([]*tensor.Array{tensor.Zeros(2), tensor.Zeros(3)})
	require.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

// TestScalarIndexRank ensures Index refuses rank-0 arrays.
func TestScalarIndexRank(t *testing.T) {
	_, err := tensor.Scalar(1).Index(0)
	require.ErrorIs(t, err, tensor.ErrRank)
}

// TestRowNormsBatched verifies RowNorms works over any number of leading axes.
func TestRowNormsBatched(t *testing.T) {
	a, err := tensor.New([]int{2, 1, 2}, []float64{3, 4, 6, 8})
	require.NoError(t, err)

	norms, err := tensor.RowNorms(a)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1, 1}, norms.Shape()) // last axis kept with extent 1
	require.InDeltaSlice(t, []float64{5, 10}, norms.Data(), 1e-12)

	unit, err := tensor.DivRows(a, norms)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.6, 0.8, 0.6, 0.8}, unit.Data(), 1e-12)
}

// TestSoftplusInverse checks InvSoftplus(Softplus(x)) == x over a range of values.
func TestSoftplusInverse(t *testing.T) {
	for _, x := range []float64{-10, -1, 0, 0.5, 3, 20} {
		require.InDelta(t, x, tensor.InvSoftplus(tensor.Softplus(x)), 1e-9)
	}
	require.InDelta(t, math.Log(2), tensor.Softplus(0), 1e-15)
}

// TestSolveLower checks forward substitution against a hand-computed system.
func TestSolveLower(t *testing.T) {
	l, err := tensor.New([]int{2, 2}, []float64{2, 0, 1, 4})
	require.NoError(t, err)

	x, err := tensor.SolveLower(l, tensor.Vector(2, 9))
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{1, 2}, x.Data(), 1e-12)

	back, err := tensor.MatVec(l, x)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{2, 9}, back.Data(), 1e-12)
}

// TestSolveLowerSingular ensures a zero pivot is reported.
func TestSolveLowerSingular(t *testing.T) {
	l := tensor.Zeros(2, 2)
	_, err := tensor.SolveLower(l, tensor.Vector(1, 1))
	require.ErrorIs(t, err, tensor.ErrSingular)
}

// TestAllClose covers shape mismatch, tolerance and infinities.
func TestAllClose(t *testing.T) {
	a := tensor.Vector(1, math.Inf(1))
	require.True(t, tensor.AllClose(a, tensor.Vector(1+1e-9, math.Inf(1)), 1e-6))
	require.False(t, tensor.AllClose(a, tensor.Vector(1.1, math.Inf(1)), 1e-6))
	require.False(t, tensor.AllClose(a, tensor.Vector(1), 1e-6))
}
