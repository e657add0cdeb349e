// SPDX-License-Identifier: MIT

package train

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvflow/tree"
)

// DEFAULTS - single source of truth for zero-value behavior.
const (
	DefaultSteps        = 100
	DefaultLearningRate = 5e-4
	DefaultReturnBest   = true
	DefaultLogEvery     = 10

	DefaultMaxEpochs   = 100
	DefaultMaxPatience = 5
	DefaultBatchSize   = 100
	DefaultValProp     = 0.1
)

// Option mutates internal options.
type Option func(*Options)

// Options stores the effective fitting configuration.
type Options struct {
	steps        int
	learningRate float64
	optimizer    Optimizer
	filter       tree.Filter
	returnBest   bool
	logger       *slog.Logger
	logEvery     int

	maxEpochs   int
	maxPatience int
	batchSize   int
	valProp     float64
}

// WithSteps sets the number of variational steps.
func WithSteps(n int) Option { return func(o *Options) { o.steps = n } }

// WithLearningRate sets the Adam step size; ignored when WithOptimizer is given.
func WithLearningRate(lr float64) Option { return func(o *Options) { o.learningRate = lr } }

// WithOptimizer overrides the default Adam optimizer.
func WithOptimizer(opt Optimizer) Option { return func(o *Options) { o.optimizer = opt } }

// WithFilter selects the trainable leaves (default tree.IsArray).
func WithFilter(f tree.Filter) Option { return func(o *Options) { o.filter = f } }

// WithReturnBest returns the parameters with the lowest loss instead of the
// final ones.
func WithReturnBest(on bool) Option { return func(o *Options) { o.returnBest = on } }

// WithLogger sets the progress logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.logger = l } }

// WithLogEvery logs one INFO record every n steps or epochs.
func WithLogEvery(n int) Option { return func(o *Options) { o.logEvery = n } }

// WithMaxEpochs bounds the number of FitToData epochs.
func WithMaxEpochs(n int) Option { return func(o *Options) { o.maxEpochs = n } }

// WithMaxPatience stops FitToData after n epochs without validation improvement.
func WithMaxPatience(n int) Option { return func(o *Options) { o.maxPatience = n } }

// WithBatchSize sets the FitToData minibatch size.
func WithBatchSize(n int) Option { return func(o *Options) { o.batchSize = n } }

// WithValProp sets the fraction of rows held out for validation.
func WithValProp(p float64) Option { return func(o *Options) { o.valProp = p } }

func gatherOptions(opts []Option) (Options, error) {
	o := Options{
		steps:        DefaultSteps,
		learningRate: DefaultLearningRate,
		filter:       tree.IsArray,
		returnBest:   DefaultReturnBest,
		logEvery:     DefaultLogEvery,
		maxEpochs:    DefaultMaxEpochs,
		maxPatience:  DefaultMaxPatience,
		batchSize:    DefaultBatchSize,
		valProp:      DefaultValProp,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	switch {
	case o.steps <= 0:
		return o, fmt.Errorf("steps %d: %w", o.steps, ErrInvalidOption)
	case !(o.learningRate > 0):
		return o, fmt.Errorf("learning rate %v: %w", o.learningRate, ErrInvalidOption)
	case o.logEvery <= 0:
		return o, fmt.Errorf("log every %d: %w", o.logEvery, ErrInvalidOption)
	case o.maxEpochs <= 0 || o.maxPatience <= 0 || o.batchSize <= 0:
		return o, fmt.Errorf("epochs %d patience %d batch %d: %w", o.maxEpochs, o.maxPatience, o.batchSize, ErrInvalidOption)
	case !(o.valProp > 0 && o.valProp < 1):
		return o, fmt.Errorf("val prop %v: %w", o.valProp, ErrInvalidOption)
	}
	if o.filter == nil {
		o.filter = tree.IsArray
	}
	if o.optimizer == nil {
		o.optimizer = NewAdam(o.learningRate)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o, nil
}
