// SPDX-License-Identifier: MIT

// Package lvflow is an in-memory toolkit for building, evaluating and fitting
// normalizing flows, from array primitives up to complete trained models.
//
// 🚀 What is lvflow?
//
//	A pure-Go library that composes invertible maps into densities:
//		• Arrays: tensor.Array with elementwise and triangular kernels
//		• Trees: immutable nodes, partitioning, vectorized construction
//		• Wrappers: reparameterized, lazy, frozen and weight-normalized values
//		• Bijections: affine, coupling, masked and block autoregressive layers
//		• Distributions: a standard normal base and transformed densities
//		• Training: variational (ELBO) and maximum-likelihood fitting
//
// Under the hood, everything is organized under these subpackages:
//
//	tensor/        N-dimensional float64 arrays
//	prng/          splittable deterministic keys
//	tree/          node protocol: Unwrap, Split/Combine, Vmap
//	wrappers/      BijectionReparam, Lambda, NonTrainable, WeightNormalization
//	nn/            linear layers, MLPs, masked and block networks
//	bijections/    the bijection set plus Chain, Invert, Permute
//	distributions/ StandardNormal, Normal, Transformed
//	flows/         CouplingFlow, MaskedAutoregressiveFlow, BlockNeuralAutoregressiveFlow
//	train/         optimizers, losses, FitToVariationalTarget, FitToData
//	cmd/flowfit    YAML-driven command line fitting
//
// See each package's doc.go for details.
package lvflow
