// SPDX-License-Identifier: MIT

package bijections

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Bijection is an invertible map with a tractable log |det J|.
//
// Shape is the shape of x and y; nil means the map is elementwise and accepts
// any shape. CondDim > 0 means every call needs cond of shape [CondDim];
// otherwise cond is ignored. Implementations are immutable and read their
// parameters through tree.UnwrapArray, so they work before and after Unwrap.
type Bijection interface {
	tree.Node
	Shape() []int
	CondDim() int
	Transform(x, cond *tensor.Array) (*tensor.Array, error)
	TransformAndLogDet(x, cond *tensor.Array) (*tensor.Array, float64, error)
	Inverse(y, cond *tensor.Array) (*tensor.Array, error)
	InverseAndLogDet(y, cond *tensor.Array) (*tensor.Array, float64, error)
}

// Transformer is a scalar bijection parameterised per call, e.g. by the output
// of a conditioner network. Every method returns log |dy/dx| (or log |dx/dy|
// for the inverse) alongside the value.
type Transformer interface {
	tree.Node
	NumParams() int
	TransformScalar(x float64, params []float64) (float64, float64, error)
	InverseScalar(y float64, params []float64) (float64, float64, error)
}

// checkArgs validates x against b's shape and cond against b's CondDim.
func checkArgs(method string, b Bijection, x, cond *tensor.Array) error {
	if x == nil {
		return fmt.Errorf("%s: nil input: %w", method, ErrShape)
	}
	if shape := b.Shape(); shape != nil && !slices.Equal(shape, x.Shape()) {
		return fmt.Errorf("%s: input %v want %v: %w", method, x.Shape(), shape, ErrShape)
	}
	if d := b.CondDim(); d > 0 {
		if cond == nil {
			return fmt.Errorf("%s: missing condition of size %d: %w", method, d, ErrCondition)
		}
		if cond.Rank() != 1 || cond.Dim(0) != d {
			return fmt.Errorf("%s: condition %v want [%d]: %w", method, cond.Shape(), d, ErrCondition)
		}
	}

	return nil
}

// asBijections converts children to bijections.
func asBijections(method string, children []tree.Node) ([]Bijection, error) {
	out := make([]Bijection, len(children))
	for i, c := range children {
		b, ok := c.(Bijection)
		if !ok {
			return nil, fmt.Errorf("%s: child %d is %T: %w", method, i, c, ErrNotBijection)
		}
		out[i] = b
	}

	return out, nil
}

func asNodes(bs []Bijection) []tree.Node {
	out := make([]tree.Node, len(bs))
	for i, b := range bs {
		out[i] = b
	}

	return out
}

// mergeCondDims returns the common non-zero conditioning size of bs (0 if none
// is conditional) or ErrCondShapeMismatch.
func mergeCondDims(method string, bs []Bijection) (int, error) {
	d := 0
	for i, b := range bs {
		c := b.CondDim()
		if c == 0 {
			continue
		}
		if d != 0 && c != d {
			return 0, fmt.Errorf("%s: index %d has cond dim %d, want %d: %w", method, i, c, d, ErrCondShapeMismatch)
		}
		d = c
	}

	return d, nil
}

// mergeShapes returns the common shape of bs, ignoring elementwise (nil) shapes.
func mergeShapes(method string, bs []Bijection) ([]int, error) {
	var shape []int
	for i, b := range bs {
		s := b.Shape()
		if s == nil {
			continue
		}
		if shape != nil && !slices.Equal(shape, s) {
			return nil, fmt.Errorf("%s: index %d has shape %v, want %v: %w", method, i, s, shape, ErrShapeMismatch)
		}
		shape = s
	}

	return shape, nil
}

// dropLogDet adapts a (value, logdet, err) call to (value, err).
func dropLogDet(y *tensor.Array, _ float64, err error) (*tensor.Array, error) {
	return y, err
}
