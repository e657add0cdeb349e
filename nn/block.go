// SPDX-License-Identifier: MIT
// Package: nn
//
// BlockAutoregressiveLinear: block lower-triangular linear layer.
//
// For D variables the weight is a D×D grid of blocks of shape [outBlock, inBlock]:
//   - diagonal blocks are exp(raw), so they are strictly positive;
//   - strictly lower blocks are raw;
//   - upper blocks are zero.
//
// The assembled weight is wrapped in WeightNormalization, whose scale is
// positive, so each diagonal block stays positive after normalization. An
// optional conditioning weight adds Wc·cond to every output.

package nn

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/katalvlaran/lvflow/wrappers"
)

// BlockAutoregressiveLinear holds children [weight, bias] or
// [weight, bias, condWeight] when condDim > 0.
type BlockAutoregressiveLinear struct {
	weight     tree.Node
	bias       tree.Node
	condWeight tree.Node
	nBlocks    int
	inBlock    int
	outBlock   int
	condDim    int
}

// BlockMasks returns the diagonal-block and strictly-lower-block masks of shape
// [nBlocks*outBlock, nBlocks*inBlock].
func BlockMasks(nBlocks, inBlock, outBlock int) (diag, lower *tensor.Array) {
	rows, cols := nBlocks*outBlock, nBlocks*inBlock
	d := make([]float64, rows*cols)
	l := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		br := r / outBlock
		for c := 0; c < cols; c++ {
			bc := c / inBlock
			switch {
			case br == bc:
				d[r*cols+c] = 1
			case br > bc:
				l[r*cols+c] = 1
			}
		}
	}
	diag, _ = tensor.New([]int{rows, cols}, d)
	lower, _ = tensor.New([]int{rows, cols}, l)

	return diag, lower
}

// blockWeight assembles exp(raw)⊙diag + raw⊙lower.
func blockWeight(args []*tensor.Array) (*tensor.Array, error) {
	diag, lower, raw := args[0], args[1], args[2]
	pos, err := tensor.Mul(tensor.Exp(raw), diag)
	if err != nil {
		return nil, err
	}
	tri, err := tensor.Mul(raw, lower)
	if err != nil {
		return nil, err
	}

	return tensor.Add(pos, tri)
}

// NewBlockAutoregressiveLinear builds a layer mapping nBlocks*inBlock inputs to
// nBlocks*outBlock outputs.
func NewBlockAutoregressiveLinear(key prng.Key, nBlocks, inBlock, outBlock, condDim int) (*BlockAutoregressiveLinear, error) {
	if nBlocks <= 0 || inBlock <= 0 || outBlock <= 0 {
		return nil, fmt.Errorf("NewBlockAutoregressiveLinear: blocks %d (%dx%d): %w", nBlocks, outBlock, inBlock, ErrInvalidSize)
	}
	if condDim < 0 {
		return nil, fmt.Errorf("NewBlockAutoregressiveLinear: cond dim %d: %w", condDim, ErrInvalidSize)
	}
	rows, cols := nBlocks*outBlock, nBlocks*inBlock
	keys := key.Split(3)
	lim := 1 / math.Sqrt(float64(cols))

	diag, lower := BlockMasks(nBlocks, inBlock, outBlock)
	frozenDiag, err := wrappers.NonTrainable(tree.Array(diag))
	if err != nil {
		return nil, fmt.Errorf("NewBlockAutoregressiveLinear: %w", err)
	}
	frozenLower, err := wrappers.NonTrainable(tree.Array(lower))
	if err != nil {
		return nil, fmt.Errorf("NewBlockAutoregressiveLinear: %w", err)
	}
	assembled, err := wrappers.Lambda(blockWeight, frozenDiag, frozenLower, tree.Array(prng.Uniform(keys[0], -lim, lim, rows, cols)))
	if err != nil {
		return nil, fmt.Errorf("NewBlockAutoregressiveLinear: %w", err)
	}
	weight, err := wrappers.WeightNormalization(assembled)
	if err != nil {
		return nil, fmt.Errorf("NewBlockAutoregressiveLinear: %w", err)
	}

	l := &BlockAutoregressiveLinear{
		weight:   weight,
		bias:     tree.Array(prng.Uniform(keys[1], -lim, lim, rows)),
		nBlocks:  nBlocks,
		inBlock:  inBlock,
		outBlock: outBlock,
		condDim:  condDim,
	}
	if condDim > 0 {
		cl := 1 / math.Sqrt(float64(condDim))
		l.condWeight = tree.Array(prng.Uniform(keys[2], -cl, cl, rows, condDim))
	}

	return l, nil
}

// Kind implements tree.Node.
func (l *BlockAutoregressiveLinear) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (l *BlockAutoregressiveLinear) Children() []tree.Node {
	if l.condDim > 0 {
		return []tree.Node{l.weight, l.bias, l.condWeight}
	}

	return []tree.Node{l.weight, l.bias}
}

// WithChildren implements tree.Node.
func (l *BlockAutoregressiveLinear) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("BlockAutoregressiveLinear.WithChildren", children, len(l.Children())); err != nil {
		return nil, err
	}
	next := *l
	next.weight, next.bias = children[0], children[1]
	if l.condDim > 0 {
		next.condWeight = children[2]
	}

	return &next, nil
}

// Blocks returns (nBlocks, inBlock, outBlock).
func (l *BlockAutoregressiveLinear) Blocks() (int, int, int) { return l.nBlocks, l.inBlock, l.outBlock }

// CondDim is the conditioning size (0 when unconditional).
func (l *BlockAutoregressiveLinear) CondDim() int { return l.condDim }

// Apply returns W·x + b (+ Wc·cond). It also returns the resolved weight so
// callers can read the diagonal blocks without resolving it twice.
func (l *BlockAutoregressiveLinear) Apply(x, cond *tensor.Array) (*tensor.Array, *tensor.Array, error) {
	if x == nil || x.Rank() != 1 || x.Dim(0) != l.nBlocks*l.inBlock {
		return nil, nil, fmt.Errorf("BlockAutoregressiveLinear.Apply: want [%d]: %w", l.nBlocks*l.inBlock, ErrInput)
	}
	w, err := tree.UnwrapArray(l.weight)
	if err != nil {
		return nil, nil, fmt.Errorf("BlockAutoregressiveLinear.Apply: %w", err)
	}
	b, err := tree.UnwrapArray(l.bias)
	if err != nil {
		return nil, nil, fmt.Errorf("BlockAutoregressiveLinear.Apply: %w", err)
	}
	y, err := tensor.MatVec(w, x)
	if err != nil {
		return nil, nil, fmt.Errorf("BlockAutoregressiveLinear.Apply: %w", err)
	}
	if y, err = tensor.Add(y, b); err != nil {
		return nil, nil, err
	}
	if l.condDim > 0 {
		if cond == nil || cond.Rank() != 1 || cond.Dim(0) != l.condDim {
			return nil, nil, fmt.Errorf("BlockAutoregressiveLinear.Apply: cond want [%d]: %w", l.condDim, ErrInput)
		}
		wc, err := tree.UnwrapArray(l.condWeight)
		if err != nil {
			return nil, nil, fmt.Errorf("BlockAutoregressiveLinear.Apply: %w", err)
		}
		c, err := tensor.MatVec(wc, cond)
		if err != nil {
			return nil, nil, fmt.Errorf("BlockAutoregressiveLinear.Apply: %w", err)
		}
		if y, err = tensor.Add(y, c); err != nil {
			return nil, nil, err
		}
	}

	return y, w, nil
}

// DiagBlock copies block (i, i) of a resolved weight into a row-major
// [outBlock*inBlock] slice.
func (l *BlockAutoregressiveLinear) DiagBlock(w *tensor.Array, i int) []float64 {
	cols := l.nBlocks * l.inBlock
	raw := w.Raw()
	out := make([]float64, l.outBlock*l.inBlock)
	for r := 0; r < l.outBlock; r++ {
		row := (i*l.outBlock + r) * cols
		copy(out[r*l.inBlock:(r+1)*l.inBlock], raw[row+i*l.inBlock:row+(i+1)*l.inBlock])
	}

	return out
}
