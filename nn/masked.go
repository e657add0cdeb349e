// SPDX-License-Identifier: MIT
// Package: nn
//
// Masked (MADE) layers.
//
// A masked layer stores its weight as
//
//	Lambda(mask ⊙ raw, NonTrainable(mask), raw)
//
// so the mask is resolved with the layer but never trained, and connections
// the mask removes receive no gradient through the product.
//
// Rank rule for an autoregressive network over D variables:
//   - hidden unit h may see input i iff rank(h) ≥ rank(i)
//   - output o may see hidden unit h iff rank(o) > rank(h)
//
// Conditioning inputs carry rank -1 so every unit may see them.

package nn

import (
	"fmt"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/katalvlaran/lvflow/wrappers"
)

// RankMask returns the [len(outRanks), len(inRanks)] connectivity mask.
// strict selects out > in instead of out ≥ in.
func RankMask(inRanks, outRanks []int, strict bool) *tensor.Array {
	m := tensor.Zeros(len(outRanks), len(inRanks))
	data := m.Data()
	for o, ro := range outRanks {
		for i, ri := range inRanks {
			if ro > ri || (!strict && ro == ri) {
				data[o*len(inRanks)+i] = 1
			}
		}
	}
	out, _ := tensor.New(m.Shape(), data) // shape from Zeros

	return out
}

func applyMask(args []*tensor.Array) (*tensor.Array, error) {
	return tensor.Mul(args[0], args[1])
}

// NewMaskedLinear returns a Linear whose weight is multiplied by a frozen mask
// of shape [out, in].
func NewMaskedLinear(key prng.Key, mask *tensor.Array) (*Linear, error) {
	if mask == nil || mask.Rank() != 2 {
		return nil, fmt.Errorf("NewMaskedLinear: mask must be [out, in]: %w", ErrInput)
	}
	out, in := mask.Dim(0), mask.Dim(1)
	base, err := NewLinear(key, in, out)
	if err != nil {
		return nil, fmt.Errorf("NewMaskedLinear: %w", err)
	}
	frozen, err := wrappers.NonTrainable(tree.Array(mask))
	if err != nil {
		return nil, fmt.Errorf("NewMaskedLinear: %w", err)
	}
	weight, err := wrappers.Lambda(applyMask, frozen, base.weight)
	if err != nil {
		return nil, fmt.Errorf("NewMaskedLinear: %w", err)
	}

	return NewLinearFrom(weight, base.bias, in, out)
}

// NewAutoregressiveMLP builds a masked MLP whose output o depends only on
// inputs with rank < outRanks[o].
// Stage 1 (Validate): non-empty ranks, depth ≥ 0, known activation.
// Stage 2 (Execute): depth hidden layers with the ≥ rule, one output layer with >.
func NewAutoregressiveMLP(key prng.Key, inRanks, hiddenRanks, outRanks []int, depth int, act Activation) (*MLP, error) {
	if len(inRanks) == 0 || len(outRanks) == 0 || (depth > 0 && len(hiddenRanks) == 0) {
		return nil, fmt.Errorf("NewAutoregressiveMLP: empty ranks: %w", ErrRanks)
	}
	if depth < 0 {
		return nil, fmt.Errorf("NewAutoregressiveMLP: depth %d: %w", depth, ErrInvalidDepth)
	}
	if !act.Valid() {
		return nil, fmt.Errorf("NewAutoregressiveMLP: %s: %w", act, ErrUnknownActivation)
	}

	keys := key.Split(depth + 1)
	layers := make([]tree.Node, 0, depth+1)
	prev := inRanks
	for i := 0; i < depth; i++ {
		l, err := NewMaskedLinear(keys[i], RankMask(prev, hiddenRanks, false))
		if err != nil {
			return nil, fmt.Errorf("NewAutoregressiveMLP: %w", err)
		}
		layers = append(layers, l)
		prev = hiddenRanks
	}
	last, err := NewMaskedLinear(keys[depth], RankMask(prev, outRanks, true))
	if err != nil {
		return nil, fmt.Errorf("NewAutoregressiveMLP: %w", err)
	}
	layers = append(layers, last)

	return &MLP{layers: layers, act: act, in: len(inRanks), out: len(outRanks)}, nil
}
