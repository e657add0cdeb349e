// SPDX-License-Identifier: MIT

// Package distributions provides densities over vectors and the Transformed
// distribution that turns a bijection into a normalizing flow.
//
//	base, _ := distributions.NewStandardNormal(2)
//	flow, _ := distributions.NewTransformed(base, bijection)
//	lp, _   := flow.LogProb(x, nil)
//
// StandardNormal evaluates its density with gonum's distuv and draws from an
// explicit prng.Key. Normal is a StandardNormal pushed through an Affine map,
// so its location and scale are ordinary trainable leaves.
//
// LogProbBatch and SampleBatch resolve the tree once and evaluate rows
// concurrently; results are identical to a sequential loop.
package distributions
