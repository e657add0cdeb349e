// SPDX-License-Identifier: MIT

package train

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// DefaultFDStep is the central-difference step used by Grad.
const DefaultFDStep = 1e-6

// Objective is a scalar function of a ravelled parameter vector.
type Objective func(params []float64) (float64, error)

// Grad estimates ∇f at x by central differences. The first evaluation error
// aborts the estimate and is returned wrapped in ErrGradient.
func Grad(f Objective, x []float64) ([]float64, error) {
	var first error
	g := fd.Gradient(nil, func(p []float64) float64 {
		v, err := f(p)
		if err != nil {
			if first == nil {
				first = err
			}
			return math.NaN()
		}
		return v
	}, x, &fd.Settings{Formula: fd.Central, Step: DefaultFDStep})
	if first != nil {
		return nil, fmt.Errorf("Grad: %w: %w", ErrGradient, first)
	}

	return g, nil
}

// GradTree returns a tree shaped like root whose leaves hold ∂loss/∂leaf for
// every leaf selected by filter and zeros everywhere else (frozen content
// included). A nil filter means tree.IsArray.
func GradTree(root tree.Node, filter tree.Filter, loss func(tree.Node) (float64, error)) (tree.Node, error) {
	part, err := tree.Split(root, filter)
	if err != nil {
		return nil, fmt.Errorf("GradTree: %w", err)
	}
	flat, err := Grad(func(p []float64) (float64, error) {
		n, err := part.CombineFlat(p)
		if err != nil {
			return 0, err
		}
		return loss(n)
	}, part.Ravel())
	if err != nil {
		return nil, fmt.Errorf("GradTree: %w", err)
	}
	grads, err := part.Unravel(flat)
	if err != nil {
		return nil, fmt.Errorf("GradTree: %w", err)
	}

	out, err := zeroLeaves(root)
	if err != nil {
		return nil, fmt.Errorf("GradTree: %w", err)
	}
	for i, path := range part.Paths() {
		g := grads[i]
		out, err = tree.Replace(out, func(tree.Node) (tree.Node, error) { return tree.Array(g), nil }, path...)
		if err != nil {
			return nil, fmt.Errorf("GradTree: %w", err)
		}
	}

	return out, nil
}

// zeroLeaves rebuilds n with every array leaf replaced by zeros of its shape.
func zeroLeaves(n tree.Node) (tree.Node, error) {
	if l, ok := n.(*tree.Leaf); ok {
		return tree.Array(tensor.Zeros(l.Value().Shape()...)), nil
	}
	children := n.Children()
	if len(children) == 0 {
		return n, nil
	}
	next := make([]tree.Node, len(children))
	for i, c := range children {
		z, err := zeroLeaves(c)
		if err != nil {
			return nil, err
		}
		next[i] = z
	}

	return n.WithChildren(next)
}
