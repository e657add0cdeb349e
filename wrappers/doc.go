// SPDX-License-Identifier: MIT

// Package wrappers implements the lazy-value reparameterizations of lvflow.
//
// Every wrapper is a tree.Wrapper: its children are the raw representation and
// its recovery rule maps resolved children to the exposed value. tree.Unwrap
// resolves nested wrappers inner first, so any raw child may itself be a
// wrapper.
//
//   - BijectionReparam    – value = p.Transform(raw), raw = p.Inverse(value).
//   - Lambda / LambdaNode – value = fn(args...).
//   - NonTrainable        – value = content; never selected by tree.Split.
//   - WeightNormalization – value = scale ⊙ w / ‖w‖ over the last axis.
//
// Wrappers built under tree.Vmap record the batch extents in their BatchShape
// and resolve to the stack of their per-slot values.
package wrappers
