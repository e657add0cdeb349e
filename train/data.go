// SPDX-License-Identifier: MIT
// Package: train
//
// Maximum-likelihood fitting on samples.
//
//	rows  → shuffled once, split into train / validation (WithValProp)
//	epoch → reshuffle train, minibatch steps, then one validation loss
//	stop  → after WithMaxPatience epochs without validation improvement
//
// The returned distribution uses the parameters with the lowest validation
// loss (or the final ones with WithReturnBest(false)).

package train

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/internal/logutil"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Losses is the per-epoch loss history of FitToData.
type Losses struct {
	Train []float64
	Val   []float64
}

// rows gathers the rows idx of a ([n, …]) into a new array; nil stays nil,
// and a rank-1 cond is shared by every row.
func rows(a *tensor.Array, idx []int) (*tensor.Array, error) {
	if a == nil || a.Rank() == 1 {
		return a, nil
	}
	out := make([]*tensor.Array, len(idx))
	for i, j := range idx {
		r, err := a.Index(j)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}

	return tensor.Stack(out)
}

// FitToData fits dist to the rows of x ([n, dim]) by maximum likelihood.
// cond is nil, a shared [condDim] vector or an [n, condDim] matrix.
// Stage 1 (Validate): options and data shapes; at least one row in each split.
// Stage 2 (Prepare): partition, split rows, init optimizer.
// Stage 3 (Execute): epoch loop with early stopping.
// Stage 4 (Finalize): rebuild from the best or final parameters.
func FitToData(key prng.Key, dist distributions.Distribution, x, cond *tensor.Array, opts ...Option) (distributions.Distribution, Losses, error) {
	const method = "FitToData"
	var hist Losses
	o, err := gatherOptions(opts)
	if err != nil {
		return nil, hist, fmt.Errorf("%s: %w", method, err)
	}
	if dist == nil {
		return nil, hist, fmt.Errorf("%s: nil distribution: %w", method, ErrInvalidOption)
	}
	if x == nil || x.Rank() != 2 || x.Dim(1) != dist.Dim() {
		return nil, hist, fmt.Errorf("%s: data must be [n, %d]: %w", method, dist.Dim(), ErrData)
	}
	n := x.Dim(0)
	if cond != nil && cond.Rank() == 2 && cond.Dim(0) != n {
		return nil, hist, fmt.Errorf("%s: %d conditions for %d rows: %w", method, cond.Dim(0), n, ErrData)
	}
	nVal := int(math.Round(o.valProp * float64(n)))
	if nVal < 1 || n-nVal < 1 {
		return nil, hist, fmt.Errorf("%s: %d rows cannot be split with val prop %v: %w", method, n, o.valProp, ErrData)
	}

	keys := key.Split(o.maxEpochs + 1)
	order := prng.Permutation(keys[0], n)
	trainIdx, valIdx := order[nVal:], order[:nVal]
	xVal, err := rows(x, valIdx)
	if err != nil {
		return nil, hist, fmt.Errorf("%s: %w", method, err)
	}
	cVal, err := rows(cond, valIdx)
	if err != nil {
		return nil, hist, fmt.Errorf("%s: %w", method, err)
	}

	part, err := tree.Split(dist, o.filter)
	if err != nil {
		return nil, hist, fmt.Errorf("%s: %w", method, err)
	}
	rebuild := newRebuilder(part)
	objective := func(xb, cb *tensor.Array) Objective {
		return func(p []float64) (float64, error) {
			d, err := rebuild(p)
			if err != nil {
				return 0, err
			}
			return MaximumLikelihoodLoss(d, xb, cb)
		}
	}
	params := part.Ravel()
	state := o.optimizer.Init(len(params))
	best, bestVal := params, math.Inf(1)
	patience := 0

	for epoch := 0; epoch < o.maxEpochs; epoch++ {
		perm := prng.Permutation(keys[epoch+1], len(trainIdx))
		var sum float64
		for lo := 0; lo < len(perm); lo += o.batchSize {
			hi := min(lo+o.batchSize, len(perm))
			idx := make([]int, hi-lo)
			for i, p := range perm[lo:hi] {
				idx[i] = trainIdx[p]
			}
			xb, err := rows(x, idx)
			if err != nil {
				return nil, hist, fmt.Errorf("%s: %w", method, err)
			}
			cb, err := rows(cond, idx)
			if err != nil {
				return nil, hist, fmt.Errorf("%s: %w", method, err)
			}
			l, next, ns, err := step(objective(xb, cb), params, o.optimizer, state)
			if err != nil {
				return nil, hist, fmt.Errorf("%s: epoch %d: %w", method, epoch, err)
			}
			sum += l * float64(hi-lo)
			params, state = next, ns
			logutil.Trace(o.logger, "fit batch", "epoch", epoch, "loss", l)
		}
		hist.Train = append(hist.Train, sum/float64(len(perm)))

		val, err := objective(xVal, cVal)(params)
		if err != nil {
			return nil, hist, fmt.Errorf("%s: epoch %d: validation: %w", method, epoch, err)
		}
		if !finite(val) {
			return nil, hist, fmt.Errorf("%s: epoch %d: validation loss %v: %w", method, epoch, val, ErrNonFiniteLoss)
		}
		hist.Val = append(hist.Val, val)
		if val < bestVal {
			best, bestVal, patience = params, val, 0
		} else {
			patience++
		}

		if (epoch+1)%o.logEvery == 0 {
			o.logger.Info("fit epoch", slog.Int("epoch", epoch+1), slog.Float64("train", hist.Train[epoch]), slog.Float64("val", val))
		}
		if patience >= o.maxPatience {
			o.logger.Debug("early stopping", "epoch", epoch+1, "best_val", bestVal)
			break
		}
	}

	if o.returnBest {
		params = best
	}
	out, err := rebuild(params)
	if err != nil {
		return nil, hist, fmt.Errorf("%s: %w", method, err)
	}

	return out, hist, nil
}
