// SPDX-License-Identifier: MIT
// Package: bijections
//
// Coupling: split x = (x₁, x₂) at d; x₁ passes through unchanged and
// parameterises a scalar transformer applied to every element of x₂:
//
//	θ  = MLP([x₁, cond])            shape [(D-d)·P]
//	y₂ᵢ = T(x₂ᵢ; θ[i·P : (i+1)·P])
//
// Transform and inverse are both one network evaluation, since x₁ = y₁.

package bijections

import (
	"fmt"

	"github.com/katalvlaran/lvflow/nn"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Coupling holds children [transformer, conditioner].
type Coupling struct {
	transformer   Transformer
	conditioner   *nn.MLP
	untransformed int
	dim           int
	condDim       int
}

// NewCoupling builds a coupling layer over dim variables, leaving the first
// untransformedDim unchanged.
// Stage 1 (Validate): 0 < untransformedDim < dim, condDim ≥ 0, valid network config.
// Stage 2 (Execute): conditioner MLP maps d + condDim → (dim - d)·NumParams.
func NewCoupling(key prng.Key, t Transformer, untransformedDim, dim, condDim int, net nn.MLPConfig) (*Coupling, error) {
	if t == nil {
		return nil, fmt.Errorf("NewCoupling: nil transformer: %w", ErrConfig)
	}
	if dim < 2 || untransformedDim <= 0 || untransformedDim >= dim {
		return nil, fmt.Errorf("NewCoupling: split %d of %d: %w", untransformedDim, dim, ErrInvalidDim)
	}
	if condDim < 0 {
		return nil, fmt.Errorf("NewCoupling: cond dim %d: %w", condDim, ErrInvalidDim)
	}
	mlp, err := nn.NewMLP(key, untransformedDim+condDim, (dim-untransformedDim)*t.NumParams(), net)
	if err != nil {
		return nil, fmt.Errorf("NewCoupling: %w", err)
	}

	return &Coupling{
		transformer:   t,
		conditioner:   mlp,
		untransformed: untransformedDim,
		dim:           dim,
		condDim:       condDim,
	}, nil
}

// Kind implements tree.Node.
func (c *Coupling) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (c *Coupling) Children() []tree.Node { return []tree.Node{c.transformer, c.conditioner} }

// WithChildren implements tree.Node.
func (c *Coupling) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Coupling.WithChildren", children, 2); err != nil {
		return nil, err
	}
	t, ok := children[0].(Transformer)
	if !ok {
		return nil, fmt.Errorf("Coupling.WithChildren: %T is not a transformer: %w", children[0], ErrNotBijection)
	}
	mlp, ok := children[1].(*nn.MLP)
	if !ok {
		return nil, fmt.Errorf("Coupling.WithChildren: %T is not an MLP: %w", children[1], ErrNotBijection)
	}
	next := *c
	next.transformer, next.conditioner = t, mlp

	return &next, nil
}

// Shape implements Bijection.
func (c *Coupling) Shape() []int { return []int{c.dim} }

// CondDim implements Bijection.
func (c *Coupling) CondDim() int { return c.condDim }

// UntransformedDim is the split point d.
func (c *Coupling) UntransformedDim() int { return c.untransformed }

// apply runs the shared forward/inverse pass; scalar is the transformer
// direction to use on the second block.
func (c *Coupling) apply(method string, in, cond *tensor.Array, scalar func(float64, []float64) (float64, float64, error)) (*tensor.Array, float64, error) {
	if err := checkArgs(method, c, in, cond); err != nil {
		return nil, 0, err
	}
	data := in.Raw()
	netIn := make([]float64, 0, c.untransformed+c.condDim)
	netIn = append(netIn, data[:c.untransformed]...)
	if c.condDim > 0 {
		netIn = append(netIn, cond.Raw()...)
	}
	params, err := c.conditioner.Apply(tensor.Vector(netIn...))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", method, err)
	}
	p := c.transformer.NumParams()
	theta := params.Raw()
	out := make([]float64, c.dim)
	copy(out, data[:c.untransformed])
	var logDet float64
	for i := 0; i < c.dim-c.untransformed; i++ {
		v, ld, err := scalar(data[c.untransformed+i], theta[i*p:(i+1)*p])
		if err != nil {
			return nil, 0, fmt.Errorf("%s: element %d: %w", method, c.untransformed+i, err)
		}
		out[c.untransformed+i] = v
		logDet += ld
	}

	return tensor.Vector(out...), logDet, nil
}

// Transform implements Bijection.
func (c *Coupling) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(c.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (c *Coupling) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	return c.apply("Coupling.TransformAndLogDet", x, cond, c.transformer.TransformScalar)
}

// Inverse implements Bijection.
func (c *Coupling) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(c.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (c *Coupling) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	return c.apply("Coupling.InverseAndLogDet", y, cond, c.transformer.InverseScalar)
}
