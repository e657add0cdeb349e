// SPDX-License-Identifier: MIT

package train_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/internal/logutil"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/train"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/katalvlaran/lvflow/wrappers"
)

func normal(t *testing.T, loc, scale float64) *distributions.Transformed {
	t.Helper()
	d, err := distributions.NewNormal(tensor.Vector(loc), tensor.Vector(scale))
	require.NoError(t, err)

	return d
}

func locOf(t *testing.T, d distributions.Distribution) float64 {
	t.Helper()
	affine := d.(*distributions.Transformed).Bijection().(*bijections.Affine)
	loc, _, err := affine.Params()
	require.NoError(t, err)

	return loc.Raw()[0]
}

func TestOptimizers(t *testing.T) {
	adam := train.NewAdam(0.1)
	s := adam.Init(1)
	p, s, err := adam.Update([]float64{1}, []float64{2}, s)
	require.NoError(t, err)
	require.InDelta(t, 0.9, p[0], 1e-7) // first step moves by lr
	require.Equal(t, 1, s.Step)

	sgd := train.NewSGD(0.5)
	p, _, err = sgd.Update([]float64{1, 2}, []float64{2, -2}, sgd.Init(2))
	require.NoError(t, err)
	require.Equal(t, []float64{0, 3}, p)

	_, _, err = adam.Update([]float64{1, 2}, []float64{1}, adam.Init(2))
	require.ErrorIs(t, err, train.ErrGradient)
}

func TestGrad(t *testing.T) {
	g, err := train.Grad(func(p []float64) (float64, error) {
		return (p[0]-1)*(p[0]-1) + 3*p[1], nil
	}, []float64{2, 5})
	require.NoError(t, err)
	require.InDelta(t, 2, g[0], 1e-6)
	require.InDelta(t, 3, g[1], 1e-6)

	_, err = train.Grad(func([]float64) (float64, error) { return 0, tree.ErrShape }, []float64{1})
	require.ErrorIs(t, err, train.ErrGradient)
	require.ErrorIs(t, err, tree.ErrShape)
}

// TestFrozenLeafHasZeroGradient freezes the location of a Normal and checks
// its gradient is exactly zero while the scale still receives one.
func TestFrozenLeafHasZeroGradient(t *testing.T) {
	d := normal(t, 1, 2)
	frozen, err := tree.Replace(d, func(n tree.Node) (tree.Node, error) {
		return wrappers.NonTrainable(n)
	}, 1, 0) // Transformed → Affine → loc
	require.NoError(t, err)

	x := tensor.Vector(0.3)
	grads, err := train.GradTree(frozen, nil, func(n tree.Node) (float64, error) {
		return n.(distributions.Distribution).LogProb(x, nil)
	})
	require.NoError(t, err)

	locGrad, err := tree.At(grads, 1, 0, 0) // inside the Frozen wrapper
	require.NoError(t, err)
	require.Equal(t, []float64{0}, locGrad.(*tree.Leaf).Value().Data())

	scaleGrad, err := tree.At(grads, 1, 1, 0) // raw leaf of the scale reparam
	require.NoError(t, err)
	require.NotZero(t, scaleGrad.(*tree.Leaf).Value().Raw()[0])

	part, err := tree.Split(frozen, nil)
	require.NoError(t, err)
	require.Equal(t, 1, part.Len())
}

func TestFitToVariationalTarget(t *testing.T) {
	target := func(x *tensor.Array) (float64, error) {
		v := x.Raw()[0] - 2
		return -0.5 * v * v, nil
	}
	loss, err := train.ElboLoss(target, 16)
	require.NoError(t, err)

	var buf bytes.Buffer
	fitted, losses, err := train.FitToVariationalTarget(prng.NewKey(1), normal(t, 0, 1), loss,
		train.WithSteps(100), train.WithLearningRate(0.05), train.WithLogger(logutil.NewLogger(&buf, logutil.LevelTrace)))
	require.NoError(t, err)
	require.Len(t, losses, 100)
	require.Less(t, losses[len(losses)-1], losses[0])
	require.InDelta(t, 2, locOf(t, fitted), 1)
	require.Contains(t, buf.String(), "fit progress")
	require.Contains(t, buf.String(), "level=TRACE")

	// Masking the location out keeps it fixed.
	d := normal(t, 0, 1)
	mask, err := tree.MaskLike(d, true).With(false, 1, 0)
	require.NoError(t, err)
	fixed, _, err := train.FitToVariationalTarget(prng.NewKey(1), d, loss,
		train.WithSteps(5), train.WithFilter(mask), train.WithLearningRate(0.05))
	require.NoError(t, err)
	require.Equal(t, 0.0, locOf(t, fixed))
}

// TestFitReturnsPostUpdateBest fits with a loss that falls every step, so the
// best step is the last and its post-update parameters are the final ones.
func TestFitReturnsPostUpdateBest(t *testing.T) {
	loss := func(d distributions.Distribution, _ prng.Key) (float64, error) {
		loc, _, err := d.(*distributions.Transformed).Bijection().(*bijections.Affine).Params()
		if err != nil {
			return 0, err
		}
		v := loc.Raw()[0] - 3

		return v * v, nil
	}
	fit := func(best bool) (distributions.Distribution, []float64) {
		d, losses, err := train.FitToVariationalTarget(prng.NewKey(2), normal(t, 0, 1), loss,
			train.WithSteps(4), train.WithOptimizer(train.NewSGD(0.1)), train.WithReturnBest(best))
		require.NoError(t, err)

		return d, losses
	}

	best, losses := fit(true)
	for i := 1; i < len(losses); i++ {
		require.Less(t, losses[i], losses[i-1])
	}
	final, _ := fit(false)
	require.Equal(t, locOf(t, final), locOf(t, best))
	require.Greater(t, locOf(t, best), 0.0)
}

func TestFitToVariationalTargetErrors(t *testing.T) {
	nan := func(distributions.Distribution, prng.Key) (float64, error) { return math.NaN(), nil }
	_, _, err := train.FitToVariationalTarget(prng.NewKey(0), normal(t, 0, 1), nan, train.WithSteps(3))
	require.ErrorIs(t, err, train.ErrNonFiniteLoss)

	_, _, err = train.FitToVariationalTarget(prng.NewKey(0), normal(t, 0, 1), nan, train.WithSteps(0))
	require.ErrorIs(t, err, train.ErrInvalidOption)

	_, err = train.ElboLoss(nil, 4)
	require.ErrorIs(t, err, train.ErrInvalidOption)
}

func TestFitToData(t *testing.T) {
	z := prng.Normal(prng.NewKey(3), 200, 1)
	x, err := tensor.New([]int{200, 1}, tensor.Map(z, func(v float64) float64 { return 3 + 0.5*v }).Data())
	require.NoError(t, err)

	fitted, hist, err := train.FitToData(prng.NewKey(4), normal(t, 0, 1), x, nil,
		train.WithOptimizer(train.NewAdam(0.1)), train.WithMaxEpochs(30), train.WithBatchSize(50))
	require.NoError(t, err)
	require.Equal(t, len(hist.Train), len(hist.Val))
	require.LessOrEqual(t, len(hist.Val), 30)
	require.Less(t, hist.Val[len(hist.Val)-1], hist.Val[0])
	require.InDelta(t, 3, locOf(t, fitted), 0.5)

	_, _, err = train.FitToData(prng.NewKey(4), normal(t, 0, 1), tensor.Zeros(1, 1), nil)
	require.ErrorIs(t, err, train.ErrData)
	_, _, err = train.FitToData(prng.NewKey(4), normal(t, 0, 1), tensor.Zeros(10, 2), nil)
	require.ErrorIs(t, err, train.ErrData)
}
