// SPDX-License-Identifier: MIT
// Package: bijections
//
// BlockAutoregressiveNetwork: a monotone block neural autoregressive map.
//
// Layers (blocks per variable):
//
//	depth 0: 1 → 1
//	depth k: 1 → B → … → B → 1   (k-1 hidden B → B layers)
//
// with LeakyTanh between layers. Every diagonal block is positive and LeakyTanh
// is strictly increasing, so yᵢ is strictly increasing in xᵢ and depends only
// on x₍≤ᵢ₎.
//
// log |det J| = Σᵢ log ∂yᵢ/∂xᵢ, where ∂yᵢ/∂xᵢ is the product of the i-th
// diagonal blocks interleaved with the activation derivatives (a 1×1 matrix).
//
// Inverse: coordinate-wise bisection on xᵢ ↦ yᵢ with x₍<ᵢ₎ fixed, bracket
// doubling from [-1, 1].

package bijections

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/nn"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Bisection limits for the numerical inverse.
const (
	BisectionTol      = 1e-10
	BisectionMaxIter  = 200
	BracketMaxDoubles = 64
)

// DefaultBlockDim is the block size B of hidden BNAF layers.
const DefaultBlockDim = 8

// BlockAutoregressiveNetwork holds its layers as children.
type BlockAutoregressiveNetwork struct {
	layers  []*nn.BlockAutoregressiveLinear
	dim     int
	condDim int
}

// NewBlockAutoregressiveNetwork builds depth+1 block-autoregressive layers (one
// when depth is 0). Only the first layer sees the conditioning variable.
func NewBlockAutoregressiveNetwork(key prng.Key, dim, condDim, depth, blockDim int) (*BlockAutoregressiveNetwork, error) {
	if dim <= 0 || condDim < 0 {
		return nil, fmt.Errorf("NewBlockAutoregressiveNetwork: dim %d cond %d: %w", dim, condDim, ErrInvalidDim)
	}
	if depth < 0 || blockDim <= 0 {
		return nil, fmt.Errorf("NewBlockAutoregressiveNetwork: depth %d block %d: %w", depth, blockDim, ErrInvalidDim)
	}

	sizes := []int{1}
	for i := 0; i < depth; i++ {
		sizes = append(sizes, blockDim)
	}
	sizes = append(sizes, 1)

	keys := key.Split(len(sizes) - 1)
	layers := make([]*nn.BlockAutoregressiveLinear, len(sizes)-1)
	for k := range layers {
		c := 0
		if k == 0 {
			c = condDim
		}
		l, err := nn.NewBlockAutoregressiveLinear(keys[k], dim, sizes[k], sizes[k+1], c)
		if err != nil {
			return nil, fmt.Errorf("NewBlockAutoregressiveNetwork: layer %d: %w", k, err)
		}
		layers[k] = l
	}

	return &BlockAutoregressiveNetwork{layers: layers, dim: dim, condDim: condDim}, nil
}

// Kind implements tree.Node.
func (b *BlockAutoregressiveNetwork) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (b *BlockAutoregressiveNetwork) Children() []tree.Node {
	out := make([]tree.Node, len(b.layers))
	for i, l := range b.layers {
		out[i] = l
	}

	return out
}

// WithChildren implements tree.Node.
func (b *BlockAutoregressiveNetwork) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("BlockAutoregressiveNetwork.WithChildren", children, len(b.layers)); err != nil {
		return nil, err
	}
	layers := make([]*nn.BlockAutoregressiveLinear, len(children))
	for i, c := range children {
		l, ok := c.(*nn.BlockAutoregressiveLinear)
		if !ok {
			return nil, fmt.Errorf("BlockAutoregressiveNetwork.WithChildren: child %d is %T: %w", i, c, ErrNotBijection)
		}
		layers[i] = l
	}

	return &BlockAutoregressiveNetwork{layers: layers, dim: b.dim, condDim: b.condDim}, nil
}

// Shape implements Bijection.
func (b *BlockAutoregressiveNetwork) Shape() []int { return []int{b.dim} }

// CondDim implements Bijection.
func (b *BlockAutoregressiveNetwork) CondDim() int { return b.condDim }

// Depth is the number of layers.
func (b *BlockAutoregressiveNetwork) Depth() int { return len(b.layers) }

// forward evaluates the network; with jacobian it also returns log ∂yᵢ/∂xᵢ summed.
func (b *BlockAutoregressiveNetwork) forward(x, cond *tensor.Array, jacobian bool) (*tensor.Array, float64, error) {
	act := nn.LeakyTanh
	h := x
	var grads [][]float64 // grads[i] = ∂h_block_i/∂x_i, one entry per block unit
	if jacobian {
		grads = make([][]float64, b.dim)
		for i := range grads {
			grads[i] = []float64{1}
		}
	}
	for k, l := range b.layers {
		y, w, err := l.Apply(h, cond)
		if err != nil {
			return nil, 0, fmt.Errorf("layer %d: %w", k, err)
		}
		_, inB, outB := l.Blocks()
		last := k == len(b.layers)-1
		if jacobian {
			pre := y.Raw()
			for i := 0; i < b.dim; i++ {
				blk := l.DiagBlock(w, i)
				next := make([]float64, outB)
				for r := 0; r < outB; r++ {
					var s float64
					for c := 0; c < inB; c++ {
						s += blk[r*inB+c] * grads[i][c]
					}
					if !last {
						s *= act.Deriv(pre[i*outB+r])
					}
					next[r] = s
				}
				grads[i] = next
			}
		}
		if !last {
			y = act.Apply(y)
		}
		h = y
	}

	var logDet float64
	for _, g := range grads {
		logDet += math.Log(g[0])
	}

	return h, logDet, nil
}

// Transform implements Bijection.
func (b *BlockAutoregressiveNetwork) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	if err := checkArgs("BlockAutoregressiveNetwork.Transform", b, x, cond); err != nil {
		return nil, err
	}
	y, _, err := b.forward(x, cond, false)
	if err != nil {
		return nil, fmt.Errorf("BlockAutoregressiveNetwork.Transform: %w", err)
	}

	return y, nil
}

// TransformAndLogDet implements Bijection.
func (b *BlockAutoregressiveNetwork) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("BlockAutoregressiveNetwork.TransformAndLogDet", b, x, cond); err != nil {
		return nil, 0, err
	}
	y, ld, err := b.forward(x, cond, true)
	if err != nil {
		return nil, 0, fmt.Errorf("BlockAutoregressiveNetwork.TransformAndLogDet: %w", err)
	}

	return y, ld, nil
}

// Inverse implements Bijection.
func (b *BlockAutoregressiveNetwork) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(b.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
// Stage 1 (Bracket): for coordinate i, double [lo, hi] until it contains yᵢ.
// Stage 2 (Bisect): halve the bracket until it is narrower than BisectionTol.
// Stage 3 (Finalize): log-det is the negated forward log-det at the solution.
func (b *BlockAutoregressiveNetwork) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	const method = "BlockAutoregressiveNetwork.InverseAndLogDet"
	if err := checkArgs(method, b, y, cond); err != nil {
		return nil, 0, err
	}
	target := y.Raw()
	x := make([]float64, b.dim)

	eval := func(i int, t float64) (float64, error) {
		x[i] = t
		out, _, err := b.forward(tensor.Vector(x...), cond, false)
		if err != nil {
			return 0, err
		}

		return out.Raw()[i], nil
	}

	for i := 0; i < b.dim; i++ {
		lo, hi := -1.0, 1.0
		for n := 0; ; n++ {
			flo, err := eval(i, lo)
			if err != nil {
				return nil, 0, fmt.Errorf("%s: %w", method, err)
			}
			fhi, err := eval(i, hi)
			if err != nil {
				return nil, 0, fmt.Errorf("%s: %w", method, err)
			}
			if flo <= target[i] && target[i] <= fhi {
				break
			}
			if n == BracketMaxDoubles {
				return nil, 0, fmt.Errorf("%s: coordinate %d: no bracket: %w", method, i, ErrNoConvergence)
			}
			if flo > target[i] {
				lo *= 2
			}
			if fhi < target[i] {
				hi *= 2
			}
		}
		for n := 0; n < BisectionMaxIter && hi-lo > BisectionTol; n++ {
			mid := lo + (hi-lo)/2
			f, err := eval(i, mid)
			if err != nil {
				return nil, 0, fmt.Errorf("%s: %w", method, err)
			}
			if f < target[i] {
				lo = mid
			} else {
				hi = mid
			}
		}
		x[i] = lo + (hi-lo)/2
	}

	sol := tensor.Vector(x...)
	_, ld, err := b.forward(sol, cond, true)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", method, err)
	}

	return sol, -ld, nil
}
