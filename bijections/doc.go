// SPDX-License-Identifier: MIT

// Package bijections implements invertible maps with tractable Jacobian
// determinants and the engine that composes them.
//
// 🚀 Contract
//
//	Every Bijection is an immutable tree.Node exposing
//	  Transform / TransformAndLogDet   x → y
//	  Inverse   / InverseAndLogDet     y → x
//	with Inverse(Transform(x)) == x to numerical tolerance. Learned content
//	lives in child leaves, which may be wrappers (see package wrappers).
//
// ✨ Composition
//
//   - Chain               – forward in order, inverse in reverse, log-dets summed.
//   - Invert              – swaps forward and inverse.
//   - IntertwinePermute   – fixed permutations between consecutive layers.
//   - Concatenate / Stack – different bijections on different parts of x.
//
// 🧩 Layers
//
//   - Exp, SoftPlus, Scale, Affine, TriangularAffine – parameter-owning maps.
//   - Coupling, MaskedAutoregressive                 – conditioner + Transformer.
//   - BlockAutoregressiveNetwork                     – monotone BNAF layer.
//
// ⚠️ Errors
//
//	Malformed compositions wrap ErrConfig (ErrEmptyChain, ErrShapeMismatch,
//	ErrCondShapeMismatch, ErrUnknownStrategy, ErrInvalidPermutation,
//	ErrInvalidDim). Inputs outside a map's domain return ErrDomain; wrong
//	shapes return ErrShape; bad conditioning returns ErrCondition.
package bijections
