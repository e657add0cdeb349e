// SPDX-License-Identifier: MIT

package train

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
)

// Target is an unnormalized log density.
type Target func(x *tensor.Array) (float64, error)

// VariationalLoss scores a distribution with the randomness of one step.
type VariationalLoss func(d distributions.Distribution, key prng.Key) (float64, error)

// ElboLoss returns the negative evidence lower bound estimated with
// numSamples draws from the distribution:
//
//	loss = mean_i [ log q(xᵢ) − log p̃(xᵢ) ],  xᵢ ~ q
//
// The same key gives the same draws, so the loss is deterministic per step.
func ElboLoss(target Target, numSamples int) (VariationalLoss, error) {
	if target == nil || numSamples <= 0 {
		return nil, fmt.Errorf("ElboLoss: samples %d: %w", numSamples, ErrInvalidOption)
	}

	return func(d distributions.Distribution, key prng.Key) (float64, error) {
		r, err := distributions.Resolve(d)
		if err != nil {
			return 0, fmt.Errorf("ElboLoss: %w", err)
		}
		var total float64
		for i, k := range key.Split(numSamples) {
			x, lq, err := r.SampleAndLogProb(k, nil)
			if err != nil {
				return 0, fmt.Errorf("ElboLoss: sample %d: %w", i, err)
			}
			lp, err := target(x)
			if err != nil {
				return 0, fmt.Errorf("ElboLoss: target: %w", err)
			}
			total += lq - lp
		}

		return total / float64(numSamples), nil
	}, nil
}

// MaximumLikelihoodLoss is the mean negative log density of the rows of x
// ([n, dim]) under d, conditioned row-wise on cond when given.
func MaximumLikelihoodLoss(d distributions.Distribution, x, cond *tensor.Array) (float64, error) {
	lps, err := distributions.LogProbBatch(d, x, cond)
	if err != nil {
		return 0, fmt.Errorf("MaximumLikelihoodLoss: %w", err)
	}
	var total float64
	for _, lp := range lps {
		total -= lp
	}

	return total / float64(len(lps)), nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
