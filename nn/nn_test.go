// SPDX-License-Identifier: MIT

package nn_test

import (
	"testing"

	"github.com/katalvlaran/lvflow/nn"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/stretchr/testify/require"
)

func TestParseActivation(t *testing.T) {
	for _, a := range []nn.Activation{nn.ReLU, nn.Tanh, nn.Sigmoid, nn.SoftPlus, nn.LeakyTanh} {
		got, err := nn.ParseActivation(a.String())
		require.NoError(t, err)
		require.Equal(t, a, got)
	}
	got, err := nn.ParseActivation(" LeakyTanh ")
	require.NoError(t, err)
	require.Equal(t, nn.LeakyTanh, got)

	_, err = nn.ParseActivation("gelu")
	require.ErrorIs(t, err, nn.ErrUnknownActivation)
	require.False(t, nn.Activation(0).Valid())
}

// TestActivationDeriv compares Deriv with central differences away from kinks.
func TestActivationDeriv(t *testing.T) {
	const h = 1e-6
	for _, a := range []nn.Activation{nn.ReLU, nn.Tanh, nn.Sigmoid, nn.SoftPlus, nn.LeakyTanh} {
		for _, x := range []float64{-2.5, -0.3, 0.7, 3} {
			num := (a.Eval(x+h) - a.Eval(x-h)) / (2 * h)
			require.InDelta(t, num, a.Deriv(x), 1e-6, "%s at %v", a, x)
		}
	}
	require.InDelta(t, 1.01, nn.LeakyTanh.Deriv(0), 1e-12) // slope at the origin
}

func TestLinear(t *testing.T) {
	l, err := nn.NewLinear(prng.NewKey(1), 3, 2)
	require.NoError(t, err)
	y, err := l.Apply(tensor.Vector(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, []int{2}, y.Shape())

	_, err = l.Apply(tensor.Vector(1, 2))
	require.ErrorIs(t, err, nn.ErrInput)
	_, err = nn.NewLinear(prng.NewKey(1), 0, 2)
	require.ErrorIs(t, err, nn.ErrInvalidSize)

	w, err := tensor.New([]int{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	fixed, err := nn.NewLinearFrom(tree.Array(w), tree.Array(tensor.Vector(1, -1)), 2, 2)
	require.NoError(t, err)
	y, err = fixed.Apply(tensor.Vector(1, 1))
	require.NoError(t, err)
	require.Equal(t, []float64{4, 6}, y.Data())
}

func TestMLP(t *testing.T) {
	m, err := nn.NewMLP(prng.NewKey(2), 3, 4, nn.DefaultMLPConfig())
	require.NoError(t, err)
	require.Len(t, m.Children(), nn.DefaultDepth+1)
	y, err := m.Apply(tensor.Vector(0.1, 0.2, 0.3))
	require.NoError(t, err)
	require.Equal(t, []int{4}, y.Shape())

	single, err := nn.NewMLP(prng.NewKey(2), 3, 4, nn.MLPConfig{Width: 1, Depth: 0, Activation: nn.Tanh})
	require.NoError(t, err)
	require.Len(t, single.Children(), 1) // one affine map

	_, err = nn.NewMLP(prng.NewKey(2), 3, 4, nn.MLPConfig{Width: 0, Depth: 1, Activation: nn.Tanh})
	require.ErrorIs(t, err, nn.ErrInvalidSize)
	_, err = nn.NewMLP(prng.NewKey(2), 3, 4, nn.MLPConfig{Width: 4, Depth: -1, Activation: nn.Tanh})
	require.ErrorIs(t, err, nn.ErrInvalidDepth)
	_, err = nn.NewMLP(prng.NewKey(2), 3, 4, nn.MLPConfig{Width: 4, Depth: 1})
	require.ErrorIs(t, err, nn.ErrUnknownActivation)
}

func TestRankMask(t *testing.T) {
	loose := nn.RankMask([]int{0, 1}, []int{0, 1}, false)
	require.Equal(t, []float64{1, 0, 1, 1}, loose.Data())
	strict := nn.RankMask([]int{0, 1}, []int{0, 1}, true)
	require.Equal(t, []float64{0, 0, 1, 0}, strict.Data())
	cond := nn.RankMask([]int{-1}, []int{0}, true)
	require.Equal(t, []float64{1}, cond.Data()) // conditioning is always visible
}

// TestAutoregressiveMLP checks output o ignores inputs with rank ≥ o and that
// the frozen masks stay out of the trainable partition.
func TestAutoregressiveMLP(t *testing.T) {
	in := []int{0, 1, 2}
	hidden := []int{0, 1, 2, 0, 1, 2}
	m, err := nn.NewAutoregressiveMLP(prng.NewKey(5), in, hidden, in, 2, nn.Tanh)
	require.NoError(t, err)

	base, err := m.Apply(tensor.Vector(0.1, 0.2, 0.3))
	require.NoError(t, err)
	for j := 0; j < 3; j++ {
		x := []float64{0.1, 0.2, 0.3}
		x[j] += 5
		moved, err := m.Apply(tensor.Vector(x...))
		require.NoError(t, err)
		for o := 0; o <= j; o++ {
			require.InDelta(t, base.Raw()[o], moved.Raw()[o], 1e-12, "output %d saw input %d", o, j)
		}
	}

	part, err := tree.Split(m, nil)
	require.NoError(t, err)
	require.Equal(t, 6, part.Len()) // raw weight and bias per layer

	_, err = nn.NewAutoregressiveMLP(prng.NewKey(5), nil, hidden, in, 2, nn.Tanh)
	require.ErrorIs(t, err, nn.ErrRanks)
}

// TestBlockAutoregressiveLinear checks positive diagonal blocks, zero upper
// blocks and block-triangular dependence.
func TestBlockAutoregressiveLinear(t *testing.T) {
	l, err := nn.NewBlockAutoregressiveLinear(prng.NewKey(11), 3, 2, 4, 0)
	require.NoError(t, err)
	x := tensor.Vector(0.1, -0.2, 0.3, 0.4, -0.5, 0.6)
	y, w, err := l.Apply(x, nil)
	require.NoError(t, err)
	require.Equal(t, []int{12}, y.Shape())
	require.Equal(t, []int{12, 6}, w.Shape())

	for i := 0; i < 3; i++ {
		for _, v := range l.DiagBlock(w, i) {
			require.Greater(t, v, 0.0)
		}
	}
	for r := 0; r < 12; r++ {
		for c := 0; c < 6; c++ {
			if c/2 > r/4 {
				v, err := w.At(r, c)
				require.NoError(t, err)
				require.Zero(t, v)
			}
		}
	}

	cond, err := nn.NewBlockAutoregressiveLinear(prng.NewKey(11), 3, 2, 4, 2)
	require.NoError(t, err)
	require.Len(t, cond.Children(), 3)
	_, _, err = cond.Apply(x, nil)
	require.ErrorIs(t, err, nn.ErrInput)
}
