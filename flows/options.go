// SPDX-License-Identifier: MIT

// Package flows: functional configuration for flow constructors.
//
// Every constructor starts from its documented defaults, applies the given
// options in order, then validates the result once. Invalid values are
// returned as ErrInvalidOption rather than panicking, since they commonly come
// from configuration files.
package flows

import (
	"fmt"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/nn"
)

// DEFAULTS - single source of truth for zero-value behavior.
const (
	// DefaultCondDim is the conditioning size; 0 means unconditional.
	DefaultCondDim = 0

	// DefaultFlowLayers is the number of coupling / MAF layers.
	DefaultFlowLayers = 5

	// DefaultNNWidth is the hidden width of conditioner networks.
	DefaultNNWidth = nn.DefaultWidth

	// DefaultNNDepth is the number of hidden conditioner layers.
	DefaultNNDepth = nn.DefaultDepth

	// DefaultBNAFLayers is the number of BNAF layers.
	DefaultBNAFLayers = 1

	// DefaultBNAFDepth is the number of hidden layers inside one BNAF layer.
	DefaultBNAFDepth = 1

	// DefaultNNBlockDim is the BNAF block size; hidden width is dim × block.
	DefaultNNBlockDim = bijections.DefaultBlockDim

	// DefaultInvert inverts the chain so that LogProb runs every layer forward
	// (fast density evaluation, slower sampling).
	DefaultInvert = true
)

// Option mutates internal options.
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
type Options struct {
	condDim    int
	layers     int
	width      int
	depth      int
	activation nn.Activation
	blockDim   int
	permute    bijections.PermuteStrategy
	invert     bool
}

// WithCondDim sets the size of the conditioning vector.
func WithCondDim(d int) Option { return func(o *Options) { o.condDim = d } }

// WithFlowLayers sets the number of flow layers.
func WithFlowLayers(n int) Option { return func(o *Options) { o.layers = n } }

// WithNNWidth sets the conditioner hidden width.
func WithNNWidth(w int) Option { return func(o *Options) { o.width = w } }

// WithNNDepth sets the conditioner (or BNAF) hidden depth.
func WithNNDepth(d int) Option { return func(o *Options) { o.depth = d } }

// WithNNActivation sets the conditioner activation. BNAF always uses LeakyTanh.
func WithNNActivation(a nn.Activation) Option { return func(o *Options) { o.activation = a } }

// WithNNBlockDim sets the BNAF block size.
func WithNNBlockDim(b int) Option { return func(o *Options) { o.blockDim = b } }

// WithPermuteStrategy sets how layers are permuted; PermuteAuto picks flip for
// two variables and random otherwise.
func WithPermuteStrategy(s bijections.PermuteStrategy) Option {
	return func(o *Options) { o.permute = s }
}

// WithInvert chooses whether the chain is inverted (see DefaultInvert).
func WithInvert(on bool) Option { return func(o *Options) { o.invert = on } }

func conditionerDefaults() Options {
	return Options{
		condDim:    DefaultCondDim,
		layers:     DefaultFlowLayers,
		width:      DefaultNNWidth,
		depth:      DefaultNNDepth,
		activation: nn.DefaultActivation,
		blockDim:   DefaultNNBlockDim,
		permute:    bijections.PermuteAuto,
		invert:     DefaultInvert,
	}
}

func bnafDefaults() Options {
	o := conditionerDefaults()
	o.layers = DefaultBNAFLayers
	o.depth = DefaultBNAFDepth

	return o
}

// gatherOptions applies opts over base and validates the result.
func gatherOptions(base Options, opts []Option) (Options, error) {
	o := base
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	switch {
	case o.condDim < 0:
		return o, fmt.Errorf("cond dim %d: %w", o.condDim, ErrInvalidOption)
	case o.layers <= 0:
		return o, fmt.Errorf("flow layers %d: %w", o.layers, ErrInvalidOption)
	case o.width <= 0:
		return o, fmt.Errorf("nn width %d: %w", o.width, ErrInvalidOption)
	case o.depth < 0:
		return o, fmt.Errorf("nn depth %d: %w", o.depth, ErrInvalidOption)
	case o.blockDim <= 0:
		return o, fmt.Errorf("nn block dim %d: %w", o.blockDim, ErrInvalidOption)
	case !o.activation.Valid():
		return o, fmt.Errorf("activation %s: %w", o.activation, ErrInvalidOption)
	}
	if _, err := o.permute.Resolve(2); err != nil {
		return o, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	return o, nil
}

// CondDim is the effective conditioning size.
func (o Options) CondDim() int { return o.condDim }

// Layers is the effective number of flow layers.
func (o Options) Layers() int { return o.layers }

func (o Options) mlp() nn.MLPConfig {
	return nn.MLPConfig{Width: o.width, Depth: o.depth, Activation: o.activation}
}
