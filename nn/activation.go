// SPDX-License-Identifier: MIT

package nn

import (
	"fmt"
	"math"
	"strings"

	"github.com/katalvlaran/lvflow/tensor"
)

// Activation is the closed set of elementwise nonlinearities.
type Activation uint8

const (
	// ReLU is max(0, x).
	ReLU Activation = iota + 1
	// Tanh is the hyperbolic tangent.
	Tanh
	// Sigmoid is 1 / (1 + e^-x).
	Sigmoid
	// SoftPlus is log(1 + e^x).
	SoftPlus
	// LeakyTanh is tanh(x) + LeakySlope·x; strictly increasing and unbounded,
	// so block-autoregressive layers stay invertible.
	LeakyTanh
)

// LeakySlope is the linear term of LeakyTanh.
const LeakySlope = 0.01

// DefaultActivation is used by conditioner networks when none is given.
const DefaultActivation = ReLU

// ParseActivation maps a config name (relu, tanh, sigmoid, softplus,
// leaky_tanh) to an Activation.
func ParseActivation(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "relu":
		return ReLU, nil
	case "tanh":
		return Tanh, nil
	case "sigmoid":
		return Sigmoid, nil
	case "softplus":
		return SoftPlus, nil
	case "leaky_tanh", "leakytanh":
		return LeakyTanh, nil
	default:
		return 0, fmt.Errorf("ParseActivation: %q: %w", name, ErrUnknownActivation)
	}
}

// String implements fmt.Stringer.
func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	case SoftPlus:
		return "softplus"
	case LeakyTanh:
		return "leaky_tanh"
	default:
		return fmt.Sprintf("Activation(%d)", uint8(a))
	}
}

// Valid reports whether a belongs to the closed set.
func (a Activation) Valid() bool { return a >= ReLU && a <= LeakyTanh }

// Eval applies the activation to one value.
func (a Activation) Eval(x float64) float64 {
	switch a {
	case ReLU:
		return math.Max(0, x)
	case Tanh:
		return math.Tanh(x)
	case Sigmoid:
		return tensor.Sigmoid(x)
	case SoftPlus:
		return tensor.Softplus(x)
	case LeakyTanh:
		return math.Tanh(x) + LeakySlope*x
	default:
		return math.NaN()
	}
}

// Deriv returns the derivative of the activation at x.
func (a Activation) Deriv(x float64) float64 {
	switch a {
	case ReLU:
		if x > 0 {
			return 1
		}
		return 0
	case Tanh:
		t := math.Tanh(x)
		return 1 - t*t
	case Sigmoid:
		s := tensor.Sigmoid(x)
		return s * (1 - s)
	case SoftPlus:
		return tensor.Sigmoid(x)
	case LeakyTanh:
		t := math.Tanh(x)
		return 1 - t*t + LeakySlope
	default:
		return math.NaN()
	}
}

// Apply maps the activation over every element of x.
func (a Activation) Apply(x *tensor.Array) *tensor.Array {
	return tensor.Map(x, a.Eval)
}
