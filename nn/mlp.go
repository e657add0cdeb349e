// SPDX-License-Identifier: MIT

package nn

import (
	"fmt"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Conditioner defaults.
const (
	DefaultWidth = 40
	DefaultDepth = 2
)

// MLPConfig carries the conditioner hyperparameters shared by every layer.
type MLPConfig struct {
	Width      int        // hidden units per layer, > 0
	Depth      int        // hidden layers, ≥ 0
	Activation Activation // applied after every hidden layer
}

// DefaultMLPConfig returns width 40, depth 2, ReLU.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{Width: DefaultWidth, Depth: DefaultDepth, Activation: DefaultActivation}
}

// Validate checks ranges.
func (c MLPConfig) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("MLPConfig: width %d: %w", c.Width, ErrInvalidSize)
	}
	if c.Depth < 0 {
		return fmt.Errorf("MLPConfig: depth %d: %w", c.Depth, ErrInvalidDepth)
	}
	if !c.Activation.Valid() {
		return fmt.Errorf("MLPConfig: %s: %w", c.Activation, ErrUnknownActivation)
	}

	return nil
}

// Layer is a vector-to-vector tree node.
type Layer interface {
	tree.Node
	Apply(x *tensor.Array) (*tensor.Array, error)
}

// MLP is a stack of layers with an activation after every layer but the last.
// Children: the layers, in order.
type MLP struct {
	layers []tree.Node
	act    Activation
	in     int
	out    int
}

// NewMLP builds Depth hidden layers of Width units followed by an output layer.
// Depth 0 is a single affine map in → out.
func NewMLP(key prng.Key, in, out int, cfg MLPConfig) (*MLP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewMLP: %w", err)
	}
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("NewMLP: in=%d out=%d: %w", in, out, ErrInvalidSize)
	}
	keys := key.Split(cfg.Depth + 1)
	layers := make([]tree.Node, 0, cfg.Depth+1)
	size := in
	for i := 0; i < cfg.Depth; i++ {
		l, err := NewLinear(keys[i], size, cfg.Width)
		if err != nil {
			return nil, fmt.Errorf("NewMLP: %w", err)
		}
		layers = append(layers, l)
		size = cfg.Width
	}
	last, err := NewLinear(keys[cfg.Depth], size, out)
	if err != nil {
		return nil, fmt.Errorf("NewMLP: %w", err)
	}
	layers = append(layers, last)

	return &MLP{layers: layers, act: cfg.Activation, in: in, out: out}, nil
}

// Kind implements tree.Node.
func (m *MLP) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (m *MLP) Children() []tree.Node { return m.layers }

// WithChildren implements tree.Node.
func (m *MLP) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("MLP.WithChildren", children, len(m.layers)); err != nil {
		return nil, err
	}
	for i, c := range children {
		if _, ok := c.(Layer); !ok {
			return nil, fmt.Errorf("MLP.WithChildren: child %d is %T: %w", i, c, ErrInput)
		}
	}

	return &MLP{layers: children, act: m.act, in: m.in, out: m.out}, nil
}

// In is the input size.
func (m *MLP) In() int { return m.in }

// Out is the output size.
func (m *MLP) Out() int { return m.out }

// Apply runs the network on x of shape [in].
func (m *MLP) Apply(x *tensor.Array) (*tensor.Array, error) {
	h := x
	var err error
	for i, n := range m.layers {
		h, err = n.(Layer).Apply(h)
		if err != nil {
			return nil, fmt.Errorf("MLP.Apply: layer %d: %w", i, err)
		}
		if i < len(m.layers)-1 {
			h = m.act.Apply(h)
		}
	}

	return h, nil
}
