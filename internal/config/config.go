// SPDX-License-Identifier: MIT

// Package config loads flowfit YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/flows"
	"github.com/katalvlaran/lvflow/nn"
)

// ErrInvalid indicates a configuration value outside its valid range.
var ErrInvalid = errors.New("config: invalid value")

// Flow kinds.
const (
	KindCoupling = "coupling"
	KindMAF      = "maf"
	KindBNAF     = "bnaf"
)

// Config is the root configuration structure.
type Config struct {
	Seed   uint64       `yaml:"seed"`
	Flow   FlowConfig   `yaml:"flow"`
	Target TargetConfig `yaml:"target"`
	Train  TrainConfig  `yaml:"train"`
	Output OutputConfig `yaml:"output"`
}

// FlowConfig selects and sizes the flow.
// Layers and NNDepth are pointers to distinguish "not set" (constructor
// default, which differs for BNAF) from an explicit value.
type FlowConfig struct {
	Kind       string `yaml:"kind"`
	Dim        int    `yaml:"dim"`
	CondDim    int    `yaml:"cond_dim"`
	Layers     *int   `yaml:"layers"`
	NNWidth    int    `yaml:"nn_width"`
	NNDepth    *int   `yaml:"nn_depth"`
	NNBlockDim int    `yaml:"nn_block_dim"`
	Activation string `yaml:"activation"`
	Permute    string `yaml:"permute"`
	Invert     *bool  `yaml:"invert"`
}

// TargetConfig names the unnormalized target density.
type TargetConfig struct {
	Name string `yaml:"name"`
}

// TrainConfig holds variational fitting settings.
type TrainConfig struct {
	Steps        int     `yaml:"steps"`
	LearningRate float64 `yaml:"learning_rate"`
	Samples      int     `yaml:"samples"`
	ReturnBest   bool    `yaml:"return_best"`
	LogEvery     int     `yaml:"log_every"`
}

// OutputConfig controls what is printed after fitting.
type OutputConfig struct {
	Samples int `yaml:"samples"`
}

// Default returns the default configuration: a small two-dimensional coupling
// flow fitted to the banana target.
func Default() *Config {
	return &Config{
		Flow: FlowConfig{
			Kind:       KindCoupling,
			Dim:        2,
			NNWidth:    flows.DefaultNNWidth,
			NNBlockDim: flows.DefaultNNBlockDim,
			Activation: nn.DefaultActivation.String(),
		},
		Target: TargetConfig{Name: "banana"},
		Train: TrainConfig{
			Steps:        100,
			LearningRate: 1e-2,
			Samples:      32,
			ReturnBest:   true,
			LogEvery:     10,
		},
		Output: OutputConfig{Samples: 5},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	return Load(path)
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks every range the flow and trainer would otherwise reject.
func (c *Config) Validate() error {
	f := c.Flow
	switch f.Kind {
	case KindCoupling, KindMAF, KindBNAF:
	default:
		return fmt.Errorf("flow.kind %q: %w", f.Kind, ErrInvalid)
	}
	minDim := 1
	if f.Kind == KindCoupling {
		minDim = 2
	}
	if f.Dim < minDim {
		return fmt.Errorf("flow.dim %d (min %d for %s): %w", f.Dim, minDim, f.Kind, ErrInvalid)
	}
	if f.CondDim < 0 {
		return fmt.Errorf("flow.cond_dim %d: %w", f.CondDim, ErrInvalid)
	}
	if f.Layers != nil && *f.Layers <= 0 {
		return fmt.Errorf("flow.layers %d: %w", *f.Layers, ErrInvalid)
	}
	if f.NNDepth != nil && *f.NNDepth < 0 {
		return fmt.Errorf("flow.nn_depth %d: %w", *f.NNDepth, ErrInvalid)
	}
	if f.NNWidth <= 0 || f.NNBlockDim <= 0 {
		return fmt.Errorf("flow.nn_width %d nn_block_dim %d: %w", f.NNWidth, f.NNBlockDim, ErrInvalid)
	}
	if _, err := nn.ParseActivation(f.Activation); err != nil {
		return fmt.Errorf("flow.activation: %w: %w", ErrInvalid, err)
	}
	if _, err := bijections.PermuteStrategy(f.Permute).Resolve(f.Dim); err != nil {
		return fmt.Errorf("flow.permute: %w: %w", ErrInvalid, err)
	}

	t := c.Train
	switch {
	case t.Steps <= 0:
		return fmt.Errorf("train.steps %d: %w", t.Steps, ErrInvalid)
	case !(t.LearningRate > 0):
		return fmt.Errorf("train.learning_rate %v: %w", t.LearningRate, ErrInvalid)
	case t.Samples <= 0:
		return fmt.Errorf("train.samples %d: %w", t.Samples, ErrInvalid)
	case t.LogEvery <= 0:
		return fmt.Errorf("train.log_every %d: %w", t.LogEvery, ErrInvalid)
	case c.Output.Samples < 0:
		return fmt.Errorf("output.samples %d: %w", c.Output.Samples, ErrInvalid)
	case c.Target.Name == "":
		return fmt.Errorf("target.name is empty: %w", ErrInvalid)
	}

	return nil
}

// FlowOptions translates the flow section into constructor options.
func (f FlowConfig) FlowOptions() ([]flows.Option, error) {
	act, err := nn.ParseActivation(f.Activation)
	if err != nil {
		return nil, fmt.Errorf("flow.activation: %w: %w", ErrInvalid, err)
	}
	opts := []flows.Option{
		flows.WithCondDim(f.CondDim),
		flows.WithNNWidth(f.NNWidth),
		flows.WithNNBlockDim(f.NNBlockDim),
		flows.WithNNActivation(act),
		flows.WithPermuteStrategy(bijections.PermuteStrategy(f.Permute)),
	}
	if f.Layers != nil {
		opts = append(opts, flows.WithFlowLayers(*f.Layers))
	}
	if f.NNDepth != nil {
		opts = append(opts, flows.WithNNDepth(*f.NNDepth))
	}
	if f.Invert != nil {
		opts = append(opts, flows.WithInvert(*f.Invert))
	}

	return opts, nil
}
