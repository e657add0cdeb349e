// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/flows"
	"github.com/katalvlaran/lvflow/internal/config"
	"github.com/katalvlaran/lvflow/prng"
)

// buildFlow constructs the flow named by fc over a standard normal base.
func buildFlow(key prng.Key, fc config.FlowConfig) (*distributions.Transformed, error) {
	base, err := distributions.NewStandardNormal(fc.Dim)
	if err != nil {
		return nil, err
	}
	opts, err := fc.FlowOptions()
	if err != nil {
		return nil, err
	}

	switch fc.Kind {
	case config.KindCoupling:
		return flows.CouplingFlow(key, base, bijections.NewAffineTransformer(), opts...)
	case config.KindMAF:
		return flows.MaskedAutoregressiveFlow(key, base, bijections.NewAffineTransformer(), opts...)
	case config.KindBNAF:
		return flows.BlockNeuralAutoregressiveFlow(key, base, opts...)
	default:
		return nil, fmt.Errorf("flow kind %q: %w", fc.Kind, config.ErrInvalid)
	}
}
