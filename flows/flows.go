// SPDX-License-Identifier: MIT
// Package: flows
//
// Flow constructors. Each one follows the same recipe:
//
//	keys  := key.Split(layers + 1)      // keys[0] permutes, keys[1:] build layers
//	chain := Chain(IntertwinePermute(keys[0], layers, dim, strategy))
//	flow  := Transformed(base, Invert(chain))   // Invert unless WithInvert(false)
//
// Layers are built from independent keys, so equal seeds give equal flows.

package flows

import (
	"fmt"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/prng"
)

// layerFunc builds layer i from its own key.
type layerFunc func(key prng.Key) (bijections.Bijection, error)

// assemble runs the shared recipe.
func assemble(method string, key prng.Key, base distributions.Distribution, o Options, build layerFunc) (*distributions.Transformed, error) {
	keys := key.Split(o.layers + 1)
	layers := make([]bijections.Bijection, o.layers)
	for i := range layers {
		l, err := build(keys[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: layer %d: %w", method, i, err)
		}
		layers[i] = l
	}
	ordered, err := bijections.IntertwinePermute(keys[0], layers, base.Dim(), o.permute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	chain, err := bijections.NewChain(ordered...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	var b bijections.Bijection = chain
	if o.invert {
		if b, err = bijections.NewInvert(chain); err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
	}
	flow, err := distributions.NewTransformed(base, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	return flow, nil
}

// prepare validates the base and gathers options.
func prepare(method string, base distributions.Distribution, defaults Options, opts []Option) (Options, error) {
	if base == nil {
		return Options{}, fmt.Errorf("%s: nil base: %w", method, ErrInvalidOption)
	}
	if base.CondDim() != 0 {
		return Options{}, fmt.Errorf("%s: %w", method, distributions.ErrConditionalBase)
	}
	o, err := gatherOptions(defaults, opts)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", method, err)
	}

	return o, nil
}

// CouplingFlow builds a RealNVP-style flow: every layer leaves the first
// dim/2 variables unchanged and transforms the rest with t, parameterised by
// an MLP of the unchanged half (and the condition).
func CouplingFlow(key prng.Key, base distributions.Distribution, t bijections.Transformer, opts ...Option) (*distributions.Transformed, error) {
	const method = "CouplingFlow"
	o, err := prepare(method, base, conditionerDefaults(), opts)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%s: nil transformer: %w", method, ErrInvalidOption)
	}
	dim := base.Dim()

	return assemble(method, key, base, o, func(k prng.Key) (bijections.Bijection, error) {
		return bijections.NewCoupling(k, t, dim/2, dim, o.condDim, o.mlp())
	})
}

// MaskedAutoregressiveFlow builds a MAF: every layer transforms each variable
// with t, parameterised by a masked MLP of the preceding variables.
func MaskedAutoregressiveFlow(key prng.Key, base distributions.Distribution, t bijections.Transformer, opts ...Option) (*distributions.Transformed, error) {
	const method = "MaskedAutoregressiveFlow"
	o, err := prepare(method, base, conditionerDefaults(), opts)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%s: nil transformer: %w", method, ErrInvalidOption)
	}
	dim := base.Dim()

	return assemble(method, key, base, o, func(k prng.Key) (bijections.Bijection, error) {
		return bijections.NewMaskedAutoregressive(k, t, dim, o.condDim, o.mlp())
	})
}

// BlockNeuralAutoregressiveFlow builds a BNAF. Defaults differ from the other
// constructors: one layer of depth one. Its inverse is numerical, so with the
// default WithInvert(true) sampling bisects while LogProb is exact and fast.
func BlockNeuralAutoregressiveFlow(key prng.Key, base distributions.Distribution, opts ...Option) (*distributions.Transformed, error) {
	const method = "BlockNeuralAutoregressiveFlow"
	o, err := prepare(method, base, bnafDefaults(), opts)
	if err != nil {
		return nil, err
	}
	dim := base.Dim()

	return assemble(method, key, base, o, func(k prng.Key) (bijections.Bijection, error) {
		return bijections.NewBlockAutoregressiveNetwork(k, dim, o.condDim, o.depth, o.blockDim)
	})
}
