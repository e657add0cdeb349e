// SPDX-License-Identifier: MIT

// Package nn provides the conditioner networks used by flow layers: Linear,
// MLP, MADE-style masked layers and block-autoregressive linear layers.
//
// Every network is a tree.Node. Weights that need a structural constraint are
// stored as wrappers (a masked weight is Lambda(mask ⊙ raw) with a frozen mask;
// a block-autoregressive weight is additionally weight-normalized), so layers
// read parameters through tree.UnwrapArray and work on resolved and unresolved
// trees alike.
package nn
