// SPDX-License-Identifier: MIT
// Package: bijections
//
// MaskedAutoregressive: yᵢ = T(xᵢ; θᵢ(x₍<ᵢ₎, cond)).
//
// The conditioner is a MADE network: input ranks 0..D-1 for x, -1 for cond;
// hidden ranks h mod D; outputs i·P … i·P+P-1 carry rank i. Output block i
// therefore depends only on x₍<ᵢ₎ and cond.
//
//	Transform: one network pass (parallel).
//	Inverse:   D passes, one per coordinate (sequential).

package bijections

import (
	"fmt"

	"github.com/katalvlaran/lvflow/nn"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// MaskedAutoregressive holds children [transformer, conditioner].
type MaskedAutoregressive struct {
	transformer Transformer
	conditioner *nn.MLP
	dim         int
	condDim     int
}

// NewMaskedAutoregressive builds a MADE-conditioned autoregressive layer.
func NewMaskedAutoregressive(key prng.Key, t Transformer, dim, condDim int, net nn.MLPConfig) (*MaskedAutoregressive, error) {
	if t == nil {
		return nil, fmt.Errorf("NewMaskedAutoregressive: nil transformer: %w", ErrConfig)
	}
	if dim <= 0 || condDim < 0 {
		return nil, fmt.Errorf("NewMaskedAutoregressive: dim %d cond %d: %w", dim, condDim, ErrInvalidDim)
	}
	if err := net.Validate(); err != nil {
		return nil, fmt.Errorf("NewMaskedAutoregressive: %w", err)
	}

	inRanks := make([]int, 0, dim+condDim)
	for i := 0; i < dim; i++ {
		inRanks = append(inRanks, i)
	}
	for i := 0; i < condDim; i++ {
		inRanks = append(inRanks, -1)
	}
	hidden := make([]int, net.Width)
	for h := range hidden {
		hidden[h] = h % dim
	}
	p := t.NumParams()
	outRanks := make([]int, dim*p)
	for i := range outRanks {
		outRanks[i] = i / p
	}
	made, err := nn.NewAutoregressiveMLP(key, inRanks, hidden, outRanks, net.Depth, net.Activation)
	if err != nil {
		return nil, fmt.Errorf("NewMaskedAutoregressive: %w", err)
	}

	return &MaskedAutoregressive{transformer: t, conditioner: made, dim: dim, condDim: condDim}, nil
}

// Kind implements tree.Node.
func (m *MaskedAutoregressive) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (m *MaskedAutoregressive) Children() []tree.Node {
	return []tree.Node{m.transformer, m.conditioner}
}

// WithChildren implements tree.Node.
func (m *MaskedAutoregressive) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("MaskedAutoregressive.WithChildren", children, 2); err != nil {
		return nil, err
	}
	t, ok := children[0].(Transformer)
	if !ok {
		return nil, fmt.Errorf("MaskedAutoregressive.WithChildren: %T is not a transformer: %w", children[0], ErrNotBijection)
	}
	made, ok := children[1].(*nn.MLP)
	if !ok {
		return nil, fmt.Errorf("MaskedAutoregressive.WithChildren: %T is not an MLP: %w", children[1], ErrNotBijection)
	}

	return &MaskedAutoregressive{transformer: t, conditioner: made, dim: m.dim, condDim: m.condDim}, nil
}

// Shape implements Bijection.
func (m *MaskedAutoregressive) Shape() []int { return []int{m.dim} }

// CondDim implements Bijection.
func (m *MaskedAutoregressive) CondDim() int { return m.condDim }

func (m *MaskedAutoregressive) params(x []float64, cond *tensor.Array) ([]float64, error) {
	in := make([]float64, 0, m.dim+m.condDim)
	in = append(in, x...)
	if m.condDim > 0 {
		in = append(in, cond.Raw()...)
	}
	out, err := m.conditioner.Apply(tensor.Vector(in...))
	if err != nil {
		return nil, err
	}

	return out.Raw(), nil
}

// Transform implements Bijection.
func (m *MaskedAutoregressive) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(m.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (m *MaskedAutoregressive) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("MaskedAutoregressive.TransformAndLogDet", m, x, cond); err != nil {
		return nil, 0, err
	}
	theta, err := m.params(x.Raw(), cond)
	if err != nil {
		return nil, 0, fmt.Errorf("MaskedAutoregressive.TransformAndLogDet: %w", err)
	}
	p := m.transformer.NumParams()
	out := make([]float64, m.dim)
	var logDet float64
	for i, v := range x.Raw() {
		y, ld, err := m.transformer.TransformScalar(v, theta[i*p:(i+1)*p])
		if err != nil {
			return nil, 0, fmt.Errorf("MaskedAutoregressive.TransformAndLogDet: element %d: %w", i, err)
		}
		out[i] = y
		logDet += ld
	}

	return tensor.Vector(out...), logDet, nil
}

// Inverse implements Bijection.
func (m *MaskedAutoregressive) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(m.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
// Coordinate i is recovered after x₍<ᵢ₎ is known; later entries are still zero
// and, by the masks, do not affect θᵢ.
func (m *MaskedAutoregressive) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("MaskedAutoregressive.InverseAndLogDet", m, y, cond); err != nil {
		return nil, 0, err
	}
	p := m.transformer.NumParams()
	ys := y.Raw()
	x := make([]float64, m.dim)
	var logDet float64
	for i := 0; i < m.dim; i++ {
		theta, err := m.params(x, cond)
		if err != nil {
			return nil, 0, fmt.Errorf("MaskedAutoregressive.InverseAndLogDet: %w", err)
		}
		xi, ld, err := m.transformer.InverseScalar(ys[i], theta[i*p:(i+1)*p])
		if err != nil {
			return nil, 0, fmt.Errorf("MaskedAutoregressive.InverseAndLogDet: element %d: %w", i, err)
		}
		x[i] = xi
		logDet += ld
	}

	return tensor.Vector(x...), logDet, nil
}
