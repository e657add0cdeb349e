// SPDX-License-Identifier: MIT
// Package: train
//
// Optimizers over a ravelled parameter vector.
//
// Update is functional: it returns new parameters and a new State and never
// writes into its arguments, so a caller may keep any earlier parameter vector
// (e.g. the best one seen) without copying.

package train

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Adam defaults.
const (
	DefaultBeta1   = 0.9
	DefaultBeta2   = 0.999
	DefaultEpsilon = 1e-8
)

// State is the optimizer state for one parameter vector.
type State struct {
	Step int       // number of updates applied
	M    []float64 // first moment (Adam)
	V    []float64 // second moment (Adam)
}

// Optimizer turns gradients into parameter updates.
type Optimizer interface {
	Init(n int) State
	Update(params, grads []float64, s State) ([]float64, State, error)
}

// SGD is plain gradient descent: p ← p − lr·g.
type SGD struct {
	LearningRate float64
}

// NewSGD returns gradient descent with the given step size.
func NewSGD(lr float64) SGD { return SGD{LearningRate: lr} }

// Init implements Optimizer.
func (SGD) Init(int) State { return State{} }

// Update implements Optimizer.
func (o SGD) Update(params, grads []float64, s State) ([]float64, State, error) {
	if len(params) != len(grads) {
		return nil, s, fmt.Errorf("SGD.Update: %d params, %d grads: %w", len(params), len(grads), ErrGradient)
	}
	out := make([]float64, len(params))
	floats.AddScaledTo(out, params, -o.LearningRate, grads)

	return out, State{Step: s.Step + 1}, nil
}

// Adam is the adaptive moment optimizer with bias correction.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// NewAdam returns Adam with β1 0.9, β2 0.999 and ε 1e-8.
func NewAdam(lr float64) Adam {
	return Adam{LearningRate: lr, Beta1: DefaultBeta1, Beta2: DefaultBeta2, Epsilon: DefaultEpsilon}
}

// Init implements Optimizer.
func (Adam) Init(n int) State {
	return State{M: make([]float64, n), V: make([]float64, n)}
}

// Update implements Optimizer.
//
//	m ← β1·m + (1−β1)·g
//	v ← β2·v + (1−β2)·g²
//	p ← p − lr·m̂/(√v̂ + ε),  m̂ = m/(1−β1ᵗ), v̂ = v/(1−β2ᵗ)
func (o Adam) Update(params, grads []float64, s State) ([]float64, State, error) {
	n := len(params)
	if len(grads) != n || len(s.M) != n || len(s.V) != n {
		return nil, s, fmt.Errorf("Adam.Update: %d params, %d grads, state %d: %w", n, len(grads), len(s.M), ErrGradient)
	}
	t := s.Step + 1
	c1 := 1 - math.Pow(o.Beta1, float64(t))
	c2 := 1 - math.Pow(o.Beta2, float64(t))
	next := State{Step: t, M: make([]float64, n), V: make([]float64, n)}
	out := make([]float64, n)
	for i, g := range grads {
		next.M[i] = o.Beta1*s.M[i] + (1-o.Beta1)*g
		next.V[i] = o.Beta2*s.V[i] + (1-o.Beta2)*g*g
		out[i] = params[i] - o.LearningRate*(next.M[i]/c1)/(math.Sqrt(next.V[i]/c2)+o.Epsilon)
	}

	return out, next, nil
}
