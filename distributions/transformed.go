// SPDX-License-Identifier: MIT
// Package: distributions
//
// Transformed: a base distribution pushed through a bijection (a flow).
//
//	sample:   z ~ base,  y = f(z; cond)
//	log p(y): log p_base(f⁻¹(y; cond)) + log |det ∂f⁻¹/∂y|
//
// Every public method resolves the tree once (tree.Unwrap) and then runs on
// plain arrays, so wrapper recovery cost is paid once per call.

package distributions

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Transformed holds children [base, bijection].
type Transformed struct {
	base      Distribution
	bijection bijections.Bijection
}

// NewTransformed pairs an unconditional base with a bijection of matching shape.
// Stage 1 (Validate): non-nil arguments; base.CondDim() == 0.
// Stage 2 (Validate): the bijection's declared shape (if any) is [base.Dim()].
func NewTransformed(base Distribution, b bijections.Bijection) (*Transformed, error) {
	if base == nil || b == nil {
		return nil, fmt.Errorf("NewTransformed: nil base or bijection: %w", ErrInvalidParam)
	}
	if base.CondDim() != 0 {
		return nil, fmt.Errorf("NewTransformed: base cond dim %d: %w", base.CondDim(), ErrConditionalBase)
	}
	if s := b.Shape(); s != nil && !slices.Equal(s, []int{base.Dim()}) {
		return nil, fmt.Errorf("NewTransformed: bijection shape %v for dim %d: %w", s, base.Dim(), ErrShape)
	}

	return &Transformed{base: base, bijection: b}, nil
}

// Kind implements tree.Node.
func (t *Transformed) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (t *Transformed) Children() []tree.Node { return []tree.Node{t.base, t.bijection} }

// WithChildren implements tree.Node.
func (t *Transformed) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Transformed.WithChildren", children, 2); err != nil {
		return nil, err
	}
	base, ok := children[0].(Distribution)
	if !ok {
		return nil, fmt.Errorf("Transformed.WithChildren: %T: %w", children[0], ErrNotDistribution)
	}
	b, ok := children[1].(bijections.Bijection)
	if !ok {
		return nil, fmt.Errorf("Transformed.WithChildren: %T: %w", children[1], bijections.ErrNotBijection)
	}

	return &Transformed{base: base, bijection: b}, nil
}

// Base returns the base distribution.
func (t *Transformed) Base() Distribution { return t.base }

// Bijection returns the bijection.
func (t *Transformed) Bijection() bijections.Bijection { return t.bijection }

// Dim implements Distribution.
func (t *Transformed) Dim() int { return t.base.Dim() }

// CondDim implements Distribution.
func (t *Transformed) CondDim() int { return t.bijection.CondDim() }

// resolve returns t with every wrapper recovered.
func (t *Transformed) resolve(method string) (*Transformed, error) {
	n, err := tree.Unwrap(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	r, ok := n.(*Transformed)
	if !ok {
		return nil, fmt.Errorf("%s: unwrapped to %T: %w", method, n, ErrNotDistribution)
	}

	return r, nil
}

// LogProb implements Distribution.
func (t *Transformed) LogProb(x, cond *tensor.Array) (float64, error) {
	const method = "Transformed.LogProb"
	if x == nil {
		return 0, fmt.Errorf("%s: nil input: %w", method, ErrShape)
	}
	if err := checkInput(method, t.Dim(), t.CondDim(), x, cond); err != nil {
		return 0, err
	}
	r, err := t.resolve(method)
	if err != nil {
		return 0, err
	}

	return r.logProb(x, cond)
}

func (t *Transformed) logProb(x, cond *tensor.Array) (float64, error) {
	z, ld, err := t.bijection.InverseAndLogDet(x, cond)
	if err != nil {
		return 0, fmt.Errorf("Transformed.LogProb: %w", err)
	}
	lp, err := t.base.LogProb(z, nil)
	if err != nil {
		return 0, fmt.Errorf("Transformed.LogProb: %w", err)
	}

	return lp + ld, nil
}

// Sample implements Distribution.
func (t *Transformed) Sample(key prng.Key, cond *tensor.Array) (*tensor.Array, error) {
	const method = "Transformed.Sample"
	if err := checkInput(method, t.Dim(), t.CondDim(), nil, cond); err != nil {
		return nil, err
	}
	r, err := t.resolve(method)
	if err != nil {
		return nil, err
	}

	return r.sample(key, cond)
}

func (t *Transformed) sample(key prng.Key, cond *tensor.Array) (*tensor.Array, error) {
	z, err := t.base.Sample(key, nil)
	if err != nil {
		return nil, fmt.Errorf("Transformed.Sample: %w", err)
	}
	y, err := t.bijection.Transform(z, cond)
	if err != nil {
		return nil, fmt.Errorf("Transformed.Sample: %w", err)
	}

	return y, nil
}

// SampleAndLogProb implements Distribution. It runs the bijection forward only,
// so it is the cheap direction for flows built with WithInvert(false).
func (t *Transformed) SampleAndLogProb(key prng.Key, cond *tensor.Array) (*tensor.Array, float64, error) {
	const method = "Transformed.SampleAndLogProb"
	if err := checkInput(method, t.Dim(), t.CondDim(), nil, cond); err != nil {
		return nil, 0, err
	}
	r, err := t.resolve(method)
	if err != nil {
		return nil, 0, err
	}

	return r.sampleAndLogProb(key, cond)
}

func (t *Transformed) sampleAndLogProb(key prng.Key, cond *tensor.Array) (*tensor.Array, float64, error) {
	z, lpz, err := t.base.SampleAndLogProb(key, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("Transformed.SampleAndLogProb: %w", err)
	}
	y, ld, err := t.bijection.TransformAndLogDet(z, cond)
	if err != nil {
		return nil, 0, fmt.Errorf("Transformed.SampleAndLogProb: %w", err)
	}

	return y, lpz - ld, nil
}
