// SPDX-License-Identifier: MIT
// Package: train
//
// Variational fitting.
//
//	params, static := Split(dist, filter)
//	for each step key:
//	    loss, grad ← f(params), ∇f(params)     f = loss ∘ Combine(·, static)
//	    params     ← optimizer.Update(params, grad)
//
// The best parameters are the post-update parameters of the step that recorded
// the minimum loss; on ties the latest such step wins.

package train

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/internal/logutil"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tree"
)

// rebuilder turns a ravelled parameter vector back into a distribution.
type rebuilder func(flat []float64) (distributions.Distribution, error)

func newRebuilder(part *tree.Partition) rebuilder {
	return func(flat []float64) (distributions.Distribution, error) {
		n, err := part.CombineFlat(flat)
		if err != nil {
			return nil, err
		}
		d, ok := n.(distributions.Distribution)
		if !ok {
			return nil, fmt.Errorf("%T: %w", n, ErrNotDistribution)
		}
		return d, nil
	}
}

// step evaluates f and its gradient at params and applies one optimizer update.
func step(f Objective, params []float64, opt Optimizer, s State) (float64, []float64, State, error) {
	loss, err := f(params)
	if err != nil {
		return 0, nil, s, err
	}
	if !finite(loss) {
		return loss, nil, s, fmt.Errorf("loss %v: %w", loss, ErrNonFiniteLoss)
	}
	grad, err := Grad(f, params)
	if err != nil {
		return loss, nil, s, err
	}
	next, ns, err := opt.Update(params, grad, s)
	if err != nil {
		return loss, nil, s, err
	}

	return loss, next, ns, nil
}

// FitToVariationalTarget trains dist by minimising loss with one derived key
// per step. It returns the trained distribution and the loss of every step.
// With WithReturnBest the result holds the parameters produced by the update
// of the lowest-loss step, the latest one when several steps tie.
// Stage 1 (Validate): options; non-nil dist and loss.
// Stage 2 (Prepare): partition trainable leaves, init optimizer, split keys.
// Stage 3 (Execute): step loop; a non-finite loss aborts with ErrNonFiniteLoss.
// Stage 4 (Finalize): rebuild from the best or final parameters.
func FitToVariationalTarget(key prng.Key, dist distributions.Distribution, loss VariationalLoss, opts ...Option) (distributions.Distribution, []float64, error) {
	const method = "FitToVariationalTarget"
	o, err := gatherOptions(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}
	if dist == nil || loss == nil {
		return nil, nil, fmt.Errorf("%s: nil distribution or loss: %w", method, ErrInvalidOption)
	}
	part, err := tree.Split(dist, o.filter)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}
	rebuild := newRebuilder(part)
	params := part.Ravel()
	state := o.optimizer.Init(len(params))
	o.logger.Debug("fit started", "method", method, "params", part.Size(), "steps", o.steps)

	losses := make([]float64, 0, o.steps)
	best, bestLoss := params, math.Inf(1)
	for i, k := range key.Split(o.steps) {
		f := func(p []float64) (float64, error) {
			d, err := rebuild(p)
			if err != nil {
				return 0, err
			}
			return loss(d, k)
		}
		l, next, ns, err := step(f, params, o.optimizer, state)
		if err != nil {
			return nil, losses, fmt.Errorf("%s: step %d: %w", method, i, err)
		}
		losses = append(losses, l)
		if l <= bestLoss {
			best, bestLoss = next, l
		}
		params, state = next, ns

		logutil.Trace(o.logger, "fit step", "step", i, "loss", l)
		if (i+1)%o.logEvery == 0 || i == o.steps-1 {
			o.logger.Info("fit progress", slog.Int("step", i+1), slog.Float64("loss", l), slog.Float64("best", bestLoss))
		}
	}

	if o.returnBest {
		params = best
	}
	out, err := rebuild(params)
	if err != nil {
		return nil, losses, fmt.Errorf("%s: %w", method, err)
	}

	return out, losses, nil
}
