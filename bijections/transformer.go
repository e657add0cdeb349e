// SPDX-License-Identifier: MIT

package bijections

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// scaleOffset makes raw scale 0 map to scale 1.
var scaleOffset = tensor.InvSoftplus(1)

// AffineTransformer is the scalar map y = loc + scale·x with
// params = (loc, rawScale) and scale = softplus(rawScale + InvSoftplus(1)), so
// all-zero params are the identity.
type AffineTransformer struct{}

// NewAffineTransformer returns the affine transformer.
func NewAffineTransformer() *AffineTransformer { return &AffineTransformer{} }

// Kind implements tree.Node.
func (t *AffineTransformer) Kind() tree.Kind { return tree.KindComposite }

// Children implements tree.Node.
func (t *AffineTransformer) Children() []tree.Node { return nil }

// WithChildren implements tree.Node.
func (t *AffineTransformer) WithChildren(children []tree.Node) (tree.Node, error) {
	if err := tree.CheckChildren("AffineTransformer.WithChildren", children, 0); err != nil {
		return nil, err
	}

	return t, nil
}

// NumParams implements Transformer.
func (t *AffineTransformer) NumParams() int { return 2 }

func (t *AffineTransformer) unpack(method string, params []float64) (float64, float64, error) {
	if len(params) != 2 {
		return 0, 0, fmt.Errorf("%s: %d params want 2: %w", method, len(params), ErrShape)
	}

	return params[0], tensor.Softplus(params[1] + scaleOffset), nil
}

// TransformScalar implements Transformer.
func (t *AffineTransformer) TransformScalar(x float64, params []float64) (float64, float64, error) {
	loc, scale, err := t.unpack("AffineTransformer.TransformScalar", params)
	if err != nil {
		return 0, 0, err
	}

	return loc + scale*x, math.Log(scale), nil
}

// InverseScalar implements Transformer.
func (t *AffineTransformer) InverseScalar(y float64, params []float64) (float64, float64, error) {
	loc, scale, err := t.unpack("AffineTransformer.InverseScalar", params)
	if err != nil {
		return 0, 0, err
	}
	if scale == 0 {
		return 0, 0, fmt.Errorf("AffineTransformer.InverseScalar: scale underflow: %w", ErrDomain)
	}

	return (y - loc) / scale, -math.Log(scale), nil
}
