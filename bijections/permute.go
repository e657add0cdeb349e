// SPDX-License-Identifier: MIT
// Package: bijections
//
// Permutations and intertwining.
//
// A Permute holds its index list as a NonTrainable leaf of float64 indices.
// Being a leaf, it batches under tree.Vmap like any other content, so every
// slot keeps its own permutation; being frozen, no partition ever selects it
// for training. Its log |det J| is zero.
//
// IntertwinePermute inserts one permutation between each pair of consecutive
// layers:
//
//	[L1, L2, L3] → [L1, P1, L2, P2, L3]
//
// Strategy resolution:
//   - PermuteFlip:   every P reverses variable order.
//   - PermuteRandom: P_k = Permutation(keys[k], dim), keys = key.Split(n-1).
//   - PermuteAuto:   flip when dim == 2, random otherwise.

package bijections

import (
	"fmt"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/katalvlaran/lvflow/wrappers"
)

// PermuteStrategy selects how IntertwinePermute orders variables.
type PermuteStrategy string

const (
	// PermuteAuto resolves to PermuteFlip for two variables, else PermuteRandom.
	PermuteAuto PermuteStrategy = ""
	// PermuteFlip reverses the variable order.
	PermuteFlip PermuteStrategy = "flip"
	// PermuteRandom draws a fixed random permutation per gap.
	PermuteRandom PermuteStrategy = "random"
)

// Resolve returns the concrete strategy for dim variables.
func (s PermuteStrategy) Resolve(dim int) (PermuteStrategy, error) {
	switch s {
	case PermuteAuto:
		if dim == 2 {
			return PermuteFlip, nil
		}
		return PermuteRandom, nil
	case PermuteFlip, PermuteRandom:
		return s, nil
	default:
		return "", fmt.Errorf("PermuteStrategy.Resolve: %q: %w", string(s), ErrUnknownStrategy)
	}
}

// Permute reorders a vector: y[i] = x[perm[i]].
type Permute struct {
	dim  int
	perm tree.Node
}

// NewPermute validates that perm is a permutation of 0..len(perm)-1.
func NewPermute(perm []int) (*Permute, error) {
	if _, err := invertPermutation(perm); err != nil {
		return nil, fmt.Errorf("NewPermute: %w", err)
	}
	idx := make([]float64, len(perm))
	for i, v := range perm {
		idx[i] = float64(v)
	}
	frozen, err := wrappers.NonTrainable(tree.Array(tensor.Vector(idx...)))
	if err != nil {
		return nil, fmt.Errorf("NewPermute: %w", err)
	}

	return &Permute{dim: len(perm), perm: frozen}, nil
}

// NewFlip returns the permutation reversing dim variables.
func NewFlip(dim int) (*Permute, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("NewFlip: dim %d: %w", dim, ErrInvalidDim)
	}
	perm := make([]int, dim)
	for i := range perm {
		perm[i] = dim - 1 - i
	}

	return NewPermute(perm)
}

func invertPermutation(perm []int) ([]int, error) {
	if len(perm) == 0 {
		return nil, fmt.Errorf("empty: %w", ErrInvalidPermutation)
	}
	inv := make([]int, len(perm))
	seen := make([]bool, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("%v: %w", perm, ErrInvalidPermutation)
		}
		seen[p] = true
		inv[p] = i
	}

	return inv, nil
}

// Kind implements tree.Node.
func (p *Permute) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node. The single child is the frozen index list.
func (p *Permute) Children() []tree.Node { return []tree.Node{p.perm} }

// WithChildren implements tree.Node.
func (p *Permute) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Permute.WithChildren", children, 1); err != nil {
		return nil, err
	}

	return &Permute{dim: p.dim, perm: children[0]}, nil
}

// indices resolves the index list and its inverse. A batched Permute has no
// single index list and fails with ErrInvalidPermutation.
func (p *Permute) indices() (perm, inverse []int, err error) {
	arr, err := tree.UnwrapArray(p.perm)
	if err != nil {
		return nil, nil, err
	}
	if arr.Rank() != 1 || arr.Dim(0) != p.dim {
		return nil, nil, fmt.Errorf("index shape %v, want [%d]: %w", arr.Shape(), p.dim, ErrInvalidPermutation)
	}
	raw := arr.Raw()
	perm = make([]int, len(raw))
	for i, v := range raw {
		perm[i] = int(v)
		if float64(perm[i]) != v {
			return nil, nil, fmt.Errorf("index %v: %w", v, ErrInvalidPermutation)
		}
	}
	if inverse, err = invertPermutation(perm); err != nil {
		return nil, nil, err
	}

	return perm, inverse, nil
}

// Perm returns a copy of the index list, or nil for a batched Permute.
func (p *Permute) Perm() []int {
	perm, _, err := p.indices()
	if err != nil {
		return nil
	}

	return perm
}

// Shape implements Bijection.
func (p *Permute) Shape() []int { return []int{p.dim} }

// CondDim implements Bijection.
func (p *Permute) CondDim() int { return 0 }

func (p *Permute) apply(method string, x *tensor.Array, inverse bool) (*tensor.Array, error) {
	if err := checkArgs(method, p, x, nil); err != nil {
		return nil, err
	}
	perm, inv, err := p.indices()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	idx := perm
	if inverse {
		idx = inv
	}
	src := x.Raw()
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}

	return tensor.Vector(out...), nil
}

// Transform implements Bijection.
func (p *Permute) Transform(x, _ *tensor.Array) (*tensor.Array, error) {
	return p.apply("Permute.Transform", x, false)
}

// TransformAndLogDet implements Bijection.
func (p *Permute) TransformAndLogDet(x, _ *tensor.Array) (*tensor.Array, float64, error) {
	y, err := p.apply("Permute.TransformAndLogDet", x, false)

	return y, 0, err
}

// Inverse implements Bijection.
func (p *Permute) Inverse(y, _ *tensor.Array) (*tensor.Array, error) {
	return p.apply("Permute.Inverse", y, true)
}

// InverseAndLogDet implements Bijection.
func (p *Permute) InverseAndLogDet(y, _ *tensor.Array) (*tensor.Array, float64, error) {
	x, err := p.apply("Permute.InverseAndLogDet", y, true)

	return x, 0, err
}

// IntertwinePermute interleaves fixed permutations between consecutive layers.
// Stage 1 (Validate): at least one layer, dim ≥ 1, known strategy.
// Stage 2 (Prepare): resolve the strategy; split the key once per gap (random).
// Stage 3 (Execute): emit layer, permutation, layer, …, layer.
// Complexity: O(len(layers)·dim).
func IntertwinePermute(key prng.Key, layers []Bijection, dim int, strategy PermuteStrategy) ([]Bijection, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("IntertwinePermute: %w", ErrEmptyChain)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("IntertwinePermute: dim %d: %w", dim, ErrInvalidDim)
	}
	resolved, err := strategy.Resolve(dim)
	if err != nil {
		return nil, fmt.Errorf("IntertwinePermute: %w", err)
	}

	gaps := len(layers) - 1
	perms := make([]Bijection, gaps)
	var keys []prng.Key
	if resolved == PermuteRandom {
		keys = key.Split(gaps)
	}
	for k := 0; k < gaps; k++ {
		var p *Permute
		if resolved == PermuteFlip {
			p, err = NewFlip(dim)
		} else {
			p, err = NewPermute(prng.Permutation(keys[k], dim))
		}
		if err != nil {
			return nil, fmt.Errorf("IntertwinePermute: %w", err)
		}
		perms[k] = p
	}

	out := make([]Bijection, 0, 2*len(layers)-1)
	for i, l := range layers {
		if i > 0 {
			out = append(out, perms[i-1])
		}
		out = append(out, l)
	}

	return out, nil
}
