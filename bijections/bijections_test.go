// SPDX-License-Identifier: MIT

package bijections_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/nn"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func vec(v ...float64) *tensor.Array { return tensor.Vector(v...) }

// requireRoundTrip checks both inversion identities and that the forward and
// inverse log-dets cancel.
func requireRoundTrip(t *testing.T, b bijections.Bijection, x, cond *tensor.Array) {
	t.Helper()
	y, ldF, err := b.TransformAndLogDet(x, cond)
	require.NoError(t, err)
	back, ldI, err := b.InverseAndLogDet(y, cond)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(x, back, 1e-5), "x=%v back=%v", x, back)
	require.InDelta(t, 0, ldF+ldI, 1e-5) // log-dets cancel

	y2, err := b.Transform(x, cond)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(y, y2, tol)) // plain path agrees
}

// numericLogDet returns log|det J| of b at x by central differences.
func numericLogDet(t *testing.T, b bijections.Bijection, x, cond *tensor.Array) float64 {
	t.Helper()
	const h = 1e-6
	n := x.Size()
	jac := make([]float64, n*n)
	for j := 0; j < n; j++ {
		xp, err := x.With(x.Raw()[j]+h, j)
		require.NoError(t, err)
		xm, err := x.With(x.Raw()[j]-h, j)
		require.NoError(t, err)
		yp, err := b.Transform(xp, cond)
		require.NoError(t, err)
		ym, err := b.Transform(xm, cond)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			jac[i*n+j] = (yp.Raw()[i] - ym.Raw()[i]) / (2 * h)
		}
	}
	switch n {
	case 1:
		return math.Log(math.Abs(jac[0]))
	case 2:
		return math.Log(math.Abs(jac[0]*jac[3] - jac[1]*jac[2]))
	default:
		t.Fatalf("numericLogDet: unsupported size %d", n)
		return 0
	}
}

// TestChainOrder verifies forward order and reverse-order inverse.
func TestChainOrder(t *testing.T) {
	scale, err := bijections.NewScale(tree.Array(vec(2, 2)))
	require.NoError(t, err)
	shift, err := bijections.NewAffine(vec(1, 1), vec(1, 1))
	require.NoError(t, err)

	chain, err := bijections.NewChain(scale, shift)
	require.NoError(t, err)
	require.Equal(t, 2, chain.Len())

	y, ld, err := chain.TransformAndLogDet(vec(1, 3), nil)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(vec(3, 7), y, tol)) // 2x then +1
	require.InDelta(t, 2*math.Log(2), ld, tol)

	x, err := chain.Inverse(vec(3, 7), nil)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(vec(1, 3), x, tol)) // -1 then /2

	requireRoundTrip(t, chain, vec(0.3, -0.4), nil)
}

// TestChainErrors covers every configuration error of NewChain.
func TestChainErrors(t *testing.T) {
	_, err := bijections.NewChain()
	require.ErrorIs(t, err, bijections.ErrEmptyChain)
	require.ErrorIs(t, err, bijections.ErrConfig) // class membership

	f2, err := bijections.NewFlip(2)
	require.NoError(t, err)
	f3, err := bijections.NewFlip(3)
	require.NoError(t, err)
	_, err = bijections.NewChain(f2, f3)
	require.ErrorIs(t, err, bijections.ErrShapeMismatch)

	c2, err := bijections.NewCoupling(prng.NewKey(0), bijections.NewAffineTransformer(), 1, 2, 2, nn.DefaultMLPConfig())
	require.NoError(t, err)
	c3, err := bijections.NewCoupling(prng.NewKey(1), bijections.NewAffineTransformer(), 1, 2, 3, nn.DefaultMLPConfig())
	require.NoError(t, err)
	_, err = bijections.NewChain(c2, c3)
	require.ErrorIs(t, err, bijections.ErrCondShapeMismatch)

	mixed, err := bijections.NewChain(c2, f2, bijections.NewExp()) // elementwise fits any shape
	require.NoError(t, err)
	require.Equal(t, 2, mixed.CondDim())
	require.Equal(t, []int{2}, mixed.Shape())
}

// TestInvertSwapsRoles checks Transform == inner Inverse and vice versa.
func TestInvertSwapsRoles(t *testing.T) {
	inner, err := bijections.NewAffine(vec(1, -1), vec(2, 0.5))
	require.NoError(t, err)
	inv, err := bijections.NewInvert(inner)
	require.NoError(t, err)

	x := vec(0.2, 0.7)
	want, wantLD, err := inner.InverseAndLogDet(x, nil)
	require.NoError(t, err)
	got, gotLD, err := inv.TransformAndLogDet(x, nil)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(want, got, tol))
	require.InDelta(t, wantLD, gotLD, tol)

	requireRoundTrip(t, inv, x, nil)
}

// TestIntertwinePermute covers strategy resolution and layout.
func TestIntertwinePermute(t *testing.T) {
	key := prng.NewKey(3)
	layers := make([]bijections.Bijection, 3)
	for i := range layers {
		a, err := bijections.NewAffine(vec(0, 0, 0), vec(1, 1, 1))
		require.NoError(t, err)
		layers[i] = a
	}

	out, err := bijections.IntertwinePermute(key, layers, 3, bijections.PermuteFlip)
	require.NoError(t, err)
	require.Len(t, out, 5) // L P L P L
	require.Equal(t, []int{2, 1, 0}, out[1].(*bijections.Permute).Perm())

	r1, err := bijections.IntertwinePermute(key, layers, 3, bijections.PermuteAuto) // dim 3 → random
	require.NoError(t, err)
	r2, err := bijections.IntertwinePermute(key, layers, 3, bijections.PermuteRandom)
	require.NoError(t, err)
	for _, i := range []int{1, 3} {
		require.Equal(t, r1[i].(*bijections.Permute).Perm(), r2[i].(*bijections.Permute).Perm()) // same key, same perms
	}

	s, err := bijections.PermuteAuto.Resolve(2)
	require.NoError(t, err)
	require.Equal(t, bijections.PermuteFlip, s)

	_, err = bijections.IntertwinePermute(key, layers, 3, "shuffle")
	require.ErrorIs(t, err, bijections.ErrUnknownStrategy)
	require.ErrorIs(t, err, bijections.ErrConfig)

	_, err = bijections.IntertwinePermute(key, nil, 3, bijections.PermuteFlip)
	require.ErrorIs(t, err, bijections.ErrEmptyChain)

	single, err := bijections.IntertwinePermute(key, layers[:1], 3, bijections.PermuteRandom)
	require.NoError(t, err)
	require.Len(t, single, 1) // no gaps, no permutations
}

// TestPermute checks reordering and validation.
func TestPermute(t *testing.T) {
	p, err := bijections.NewPermute([]int{2, 0, 1})
	require.NoError(t, err)
	y, ld, err := p.TransformAndLogDet(vec(10, 20, 30), nil)
	require.NoError(t, err)
	require.Equal(t, []float64{30, 10, 20}, y.Data())
	require.Zero(t, ld)
	requireRoundTrip(t, p, vec(1, 2, 3), nil)
	part, err := tree.Split(p, nil)
	require.NoError(t, err)
	require.Zero(t, part.Len()) // never trainable

	_, err = bijections.NewPermute([]int{0, 0, 1})
	require.ErrorIs(t, err, bijections.ErrInvalidPermutation)
}

// TestPermuteUnderVmap keeps a distinct permutation per slot.
func TestPermuteUnderVmap(t *testing.T) {
	perms := [][]int{{0, 2, 1}, {1, 2, 0}, {2, 1, 0}}
	batched, err := tree.VmapN(len(perms), func(i int) (tree.Node, error) {
		return bijections.NewPermute(perms[i])
	})
	require.NoError(t, err)
	require.Nil(t, batched.(*bijections.Permute).Perm())

	for i, want := range perms {
		slot, err := tree.Index(batched, i)
		require.NoError(t, err)
		p := slot.(*bijections.Permute)
		require.Equal(t, want, p.Perm())
		requireRoundTrip(t, p, vec(1, 2, 3), nil)
	}

	a, err := bijections.NewPermute(perms[0])
	require.NoError(t, err)
	b, err := bijections.NewPermute(perms[1])
	require.NoError(t, err)
	require.False(t, tree.Equal(a, b))
}

// TestElementwiseDomain verifies the positive-image maps reject bad inputs.
func TestElementwiseDomain(t *testing.T) {
	_, err := bijections.NewExp().Inverse(vec(1, -1), nil)
	require.ErrorIs(t, err, bijections.ErrDomain)

	_, err = bijections.NewSoftPlus().Inverse(vec(0), nil)
	require.ErrorIs(t, err, bijections.ErrDomain)

	matrix, err := tensor.New([]int{2, 2}, []float64{0.5, 1, 2, 3})
	require.NoError(t, err)
	requireRoundTrip(t, bijections.NewExp(), matrix, nil) // any shape
	requireRoundTrip(t, bijections.NewSoftPlus(), vec(-2, 0, 3), nil)

	_, err = bijections.NewAffine(vec(0), vec(-1))
	require.Error(t, err) // non-positive scale
}

// TestTriangularAffine checks the round trip, positivity of the diagonal and
// the analytic log-det, with and without weight normalization.
func TestTriangularAffine(t *testing.T) {
	lower, err := tensor.New([]int{2, 2}, []float64{2, 99, 0.5, 3}) // 99 is ignored
	require.NoError(t, err)

	for _, wn := range []bool{false, true} {
		b, err := bijections.NewTriangularAffine(vec(1, -1), lower, bijections.WithWeightNormalization(wn))
		require.NoError(t, err)

		l, err := b.Matrix()
		require.NoError(t, err)
		v, err := l.At(0, 1)
		require.NoError(t, err)
		require.Zero(t, v) // upper triangle dropped

		x := vec(0.3, -0.8)
		requireRoundTrip(t, b, x, nil)
		_, ld, err := b.TransformAndLogDet(x, nil)
		require.NoError(t, err)
		require.InDelta(t, numericLogDet(t, b, x, nil), ld, 1e-5)
	}

	bad, err := tensor.New([]int{2, 2}, []float64{-1, 0, 0, 1})
	require.NoError(t, err)
	_, err = bijections.NewTriangularAffine(vec(0, 0), bad)
	require.Error(t, err) // non-positive diagonal
}

// TestConditionedLayers round-trips every conditioner-driven layer with and
// without conditioning and checks log-dets against finite differences.
func TestConditionedLayers(t *testing.T) {
	cfg := nn.MLPConfig{Width: 8, Depth: 2, Activation: nn.Tanh}
	tr := bijections.NewAffineTransformer()
	x := vec(0.5, -1.2)

	for _, condDim := range []int{0, 2} {
		var cond *tensor.Array
		if condDim > 0 {
			cond = vec(0.1, -0.3)
		}
		coupling, err := bijections.NewCoupling(prng.NewKey(1), tr, 1, 2, condDim, cfg)
		require.NoError(t, err)
		maf, err := bijections.NewMaskedAutoregressive(prng.NewKey(2), tr, 2, condDim, cfg)
		require.NoError(t, err)
		bnaf, err := bijections.NewBlockAutoregressiveNetwork(prng.NewKey(3), 2, condDim, 1, 4)
		require.NoError(t, err)

		for _, b := range []bijections.Bijection{coupling, maf, bnaf} {
			requireRoundTrip(t, b, x, cond)
			_, ld, err := b.TransformAndLogDet(x, cond)
			require.NoError(t, err)
			require.InDelta(t, numericLogDet(t, b, x, cond), ld, 1e-4, "%T cond=%d", b, condDim)
		}

		if condDim > 0 {
			_, err = coupling.Transform(x, nil)
			require.ErrorIs(t, err, bijections.ErrCondition) // condition required
		}
	}
}

// TestMaskedAutoregressiveIsTriangular checks y₀ ignores x₁.
func TestMaskedAutoregressiveIsTriangular(t *testing.T) {
	maf, err := bijections.NewMaskedAutoregressive(prng.NewKey(9), bijections.NewAffineTransformer(), 2, 0, nn.DefaultMLPConfig())
	require.NoError(t, err)

	a, err := maf.Transform(vec(0.4, -3), nil)
	require.NoError(t, err)
	b, err := maf.Transform(vec(0.4, 5), nil)
	require.NoError(t, err)
	require.InDelta(t, a.Raw()[0], b.Raw()[0], tol)
}

// TestConcatenateAndStack exercises both part-wise combinators.
func TestConcatenateAndStack(t *testing.T) {
	a, err := bijections.NewAffine(vec(1), vec(2))
	require.NoError(t, err)
	f, err := bijections.NewFlip(2)
	require.NoError(t, err)

	cat, err := bijections.NewConcatenate(a, f)
	require.NoError(t, err)
	require.Equal(t, []int{3}, cat.Shape())
	y, err := cat.Transform(vec(1, 2, 3), nil)
	require.NoError(t, err)
	require.True(t, tensor.AllClose(vec(3, 3, 2), y, tol))
	requireRoundTrip(t, cat, vec(0.1, 0.2, 0.3), nil)

	st, err := bijections.NewStack(f, f, f)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, st.Shape())
	in, err := tensor.New([]int{3, 2}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	out, err := st.Transform(in, nil)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 1, 4, 3, 6, 5}, out.Data())
	requireRoundTrip(t, st, in, nil)

	_, err = bijections.NewStack(f, a)
	require.ErrorIs(t, err, bijections.ErrShapeMismatch)
}

// TestVectorizedConstruction builds N affine layers under Vmap and checks that
// every slot of the resolved batch equals the independently built layer.
func TestVectorizedConstruction(t *testing.T) {
	for n := 1; n <= 4; n++ {
		build := func(i int) (tree.Node, error) {
			return bijections.NewAffine(vec(float64(i), -1), vec(1+float64(i), 0.5))
		}
		batched, err := tree.VmapN(n, build)
		require.NoError(t, err)
		resolved, err := tree.Unwrap(batched)
		require.NoError(t, err)

		for i := 0; i < n; i++ {
			single, err := build(i)
			require.NoError(t, err)
			want, err := tree.Unwrap(single)
			require.NoError(t, err)
			got, err := tree.Index(resolved, i)
			require.NoError(t, err)
			require.True(t, tree.AllClose(want, got, tol), "n=%d slot=%d", n, i)

			slot, err := tree.Index(batched, i)
			require.NoError(t, err)
			requireRoundTrip(t, slot.(bijections.Bijection), vec(0.3, 0.9), nil)
		}
	}
}
