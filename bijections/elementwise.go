// SPDX-License-Identifier: MIT
// Package: bijections
//
// Elementwise maps.
//
//	Exp:      y = eˣ                 log|J| = Σ x          domain of inverse: y > 0
//	SoftPlus: y = log(1 + eˣ)        log|J| = Σ log σ(x)   domain of inverse: y > 0
//	Scale:    y = s ⊙ x              log|J| = Σ log|s|     s ≠ 0
//	Affine:   y = loc + s ⊙ x        log|J| = Σ log s      s > 0 (softplus reparam)
//
// Exp and SoftPlus declare a nil shape and accept arrays of any shape; they
// double as the parameterizations of wrappers.BijectionReparam.

package bijections

import (
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
	"github.com/katalvlaran/lvflow/wrappers"
)

// elementwise is the static part shared by Exp and SoftPlus.
type elementwise struct{}

func (elementwise) Kind() tree.Kind { return tree.KindComposite }
func (elementwise) Children() []tree.Node { return nil }
func (elementwise) Shape() []int { return nil }
func (elementwise) CondDim() int { return 0 }

func positive(method string, y *tensor.Array) error {
	for i, v := range y.Raw() {
		if !(v > 0) {
			return fmt.Errorf("%s: element %d = %g: %w", method, i, v, ErrDomain)
		}
	}

	return nil
}

// Exp is the elementwise exponential.
type Exp struct{ elementwise }

// NewExp returns the exponential map.
func NewExp() *Exp { return &Exp{} }

// WithChildren implements tree.Node.
func (e *Exp) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Exp.WithChildren", children, 0); err != nil {
		return nil, err
	}

	return e, nil
}

// Transform implements Bijection.
func (e *Exp) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(e.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (e *Exp) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Exp.TransformAndLogDet", e, x, cond); err != nil {
		return nil, 0, err
	}

	return tensor.Exp(x), tensor.Sum(x), nil
}

// Inverse implements Bijection.
func (e *Exp) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(e.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (e *Exp) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Exp.InverseAndLogDet", e, y, cond); err != nil {
		return nil, 0, err
	}
	if err := positive("Exp.InverseAndLogDet", y); err != nil {
		return nil, 0, err
	}
	x := tensor.Log(y)

	return x, -tensor.Sum(x), nil
}

// SoftPlus is the elementwise softplus.
type SoftPlus struct{ elementwise }

// NewSoftPlus returns the softplus map.
func NewSoftPlus() *SoftPlus { return &SoftPlus{} }

// WithChildren implements tree.Node.
func (s *SoftPlus) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("SoftPlus.WithChildren", children, 0); err != nil {
		return nil, err
	}

	return s, nil
}

func logSigmoidSum(x *tensor.Array) float64 {
	var sum float64
	for _, v := range x.Raw() {
		sum -= tensor.Softplus(-v) // log σ(v) = -softplus(-v)
	}

	return sum
}

// Transform implements Bijection.
func (s *SoftPlus) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(s.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (s *SoftPlus) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("SoftPlus.TransformAndLogDet", s, x, cond); err != nil {
		return nil, 0, err
	}

	return tensor.Map(x, tensor.Softplus), logSigmoidSum(x), nil
}

// Inverse implements Bijection.
func (s *SoftPlus) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(s.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (s *SoftPlus) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("SoftPlus.InverseAndLogDet", s, y, cond); err != nil {
		return nil, 0, err
	}
	if err := positive("SoftPlus.InverseAndLogDet", y); err != nil {
		return nil, 0, err
	}
	x := tensor.Map(y, tensor.InvSoftplus)

	return x, -logSigmoidSum(x), nil
}

// Scale multiplies by a fixed-shape array. Children: [scale].
type Scale struct {
	scale tree.Node
	shape []int
}

// NewScale builds y = s ⊙ x; s may be any node resolving to an array.
func NewScale(scale tree.Node) (*Scale, error) {
	s, err := tree.UnwrapArray(scale)
	if err != nil {
		return nil, fmt.Errorf("NewScale: %w", err)
	}

	return &Scale{scale: scale, shape: s.Shape()}, nil
}

// Kind implements tree.Node.
func (s *Scale) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (s *Scale) Children() []tree.Node { return []tree.Node{s.scale} }

// WithChildren implements tree.Node.
func (s *Scale) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Scale.WithChildren", children, 1); err != nil {
		return nil, err
	}

	return &Scale{scale: children[0], shape: s.shape}, nil
}

// Shape implements Bijection.
func (s *Scale) Shape() []int { return slices.Clone(s.shape) }

// CondDim implements Bijection.
func (s *Scale) CondDim() int { return 0 }

// Value resolves the scale.
func (s *Scale) Value() (*tensor.Array, error) { return tree.UnwrapArray(s.scale) }

func logAbsSum(a *tensor.Array) float64 {
	var sum float64
	for _, v := range a.Raw() {
		sum += math.Log(math.Abs(v))
	}

	return sum
}

// Transform implements Bijection.
func (s *Scale) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(s.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (s *Scale) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Scale.TransformAndLogDet", s, x, cond); err != nil {
		return nil, 0, err
	}
	sc, err := s.Value()
	if err != nil {
		return nil, 0, fmt.Errorf("Scale.TransformAndLogDet: %w", err)
	}
	y, err := tensor.Mul(x, sc)
	if err != nil {
		return nil, 0, fmt.Errorf("Scale.TransformAndLogDet: %w", err)
	}

	return y, logAbsSum(sc), nil
}

// Inverse implements Bijection.
func (s *Scale) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(s.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (s *Scale) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Scale.InverseAndLogDet", s, y, cond); err != nil {
		return nil, 0, err
	}
	sc, err := s.Value()
	if err != nil {
		return nil, 0, fmt.Errorf("Scale.InverseAndLogDet: %w", err)
	}
	for i, v := range sc.Raw() {
		if v == 0 {
			return nil, 0, fmt.Errorf("Scale.InverseAndLogDet: zero scale at %d: %w", i, ErrDomain)
		}
	}
	x, err := tensor.Div(y, sc)
	if err != nil {
		return nil, 0, fmt.Errorf("Scale.InverseAndLogDet: %w", err)
	}

	return x, -logAbsSum(sc), nil
}

// Affine is y = loc + scale ⊙ x with a positive scale.
// Children: [loc, BijectionReparam(scale, SoftPlus)].
type Affine struct {
	loc   tree.Node
	scale tree.Node
	shape []int
}

// NewAffine stores scale through a softplus reparameterization; a non-positive
// scale is a domain error.
func NewAffine(loc, scale *tensor.Array) (*Affine, error) {
	if loc == nil || scale == nil {
		return nil, fmt.Errorf("NewAffine: nil loc or scale: %w", ErrShape)
	}
	if !tensor.SameShape(loc, scale) {
		return nil, fmt.Errorf("NewAffine: loc %v scale %v: %w", loc.Shape(), scale.Shape(), ErrShape)
	}
	sc, err := wrappers.BijectionReparam(scale, NewSoftPlus())
	if err != nil {
		return nil, fmt.Errorf("NewAffine: %w", err)
	}

	return &Affine{loc: tree.Array(loc), scale: sc, shape: loc.Shape()}, nil
}

// Kind implements tree.Node.
func (a *Affine) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (a *Affine) Children() []tree.Node { return []tree.Node{a.loc, a.scale} }

// WithChildren implements tree.Node.
func (a *Affine) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("Affine.WithChildren", children, 2); err != nil {
		return nil, err
	}

	return &Affine{loc: children[0], scale: children[1], shape: a.shape}, nil
}

// Shape implements Bijection.
func (a *Affine) Shape() []int { return slices.Clone(a.shape) }

// CondDim implements Bijection.
func (a *Affine) CondDim() int { return 0 }

// Params resolves (loc, scale).
func (a *Affine) Params() (*tensor.Array, *tensor.Array, error) {
	loc, err := tree.UnwrapArray(a.loc)
	if err != nil {
		return nil, nil, err
	}
	scale, err := tree.UnwrapArray(a.scale)
	if err != nil {
		return nil, nil, err
	}

	return loc, scale, nil
}

// Transform implements Bijection.
func (a *Affine) Transform(x, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(a.TransformAndLogDet(x, cond))
}

// TransformAndLogDet implements Bijection.
func (a *Affine) TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Affine.TransformAndLogDet", a, x, cond); err != nil {
		return nil, 0, err
	}
	loc, scale, err := a.Params()
	if err != nil {
		return nil, 0, fmt.Errorf("Affine.TransformAndLogDet: %w", err)
	}
	sx, err := tensor.Mul(x, scale)
	if err != nil {
		return nil, 0, fmt.Errorf("Affine.TransformAndLogDet: %w", err)
	}
	y, err := tensor.Add(sx, loc)
	if err != nil {
		return nil, 0, fmt.Errorf("Affine.TransformAndLogDet: %w", err)
	}

	return y, tensor.Sum(tensor.Log(scale)), nil
}

// Inverse implements Bijection.
func (a *Affine) Inverse(y, cond *tensor.Array) (*tensor.Array, error) {
	return dropLogDet(a.InverseAndLogDet(y, cond))
}

// InverseAndLogDet implements Bijection.
func (a *Affine) InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error) {
	if err := checkArgs("Affine.InverseAndLogDet", a, y, cond); err != nil {
		return nil, 0, err
	}
	loc, scale, err := a.Params()
	if err != nil {
		return nil, 0, fmt.Errorf("Affine.InverseAndLogDet: %w", err)
	}
	d, err := tensor.Sub(y, loc)
	if err != nil {
		return nil, 0, fmt.Errorf("Affine.InverseAndLogDet: %w", err)
	}
	x, err := tensor.Div(d, scale)
	if err != nil {
		return nil, 0, fmt.Errorf("Affine.InverseAndLogDet: %w", err)
	}

	return x, -tensor.Sum(tensor.Log(scale)), nil
}
