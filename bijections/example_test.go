// SPDX-License-Identifier: MIT

package bijections_test

import (
	"fmt"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// ExampleNewChain composes a scale and a shift; the inverse runs in reverse.
func ExampleNewChain() {
	scale, _ := bijections.NewScale(tree.Array(tensor.Vector(2, 2)))
	shift, _ := bijections.NewAffine(tensor.Vector(1, 1), tensor.Vector(1, 1))
	chain, err := bijections.NewChain(scale, shift)
	if err != nil {
		fmt.Println(err)
		return
	}

	y, logDet, _ := chain.TransformAndLogDet(tensor.Vector(1, 3), nil)
	x, _ := chain.Inverse(y, nil)
	fmt.Printf("y=[%.4f %.4f] logdet=%.4f\n", y.Raw()[0], y.Raw()[1], logDet)
	fmt.Printf("x=[%.4f %.4f]\n", x.Raw()[0], x.Raw()[1])
	// Output:
	// y=[3.0000 7.0000] logdet=1.3863
	// x=[1.0000 3.0000]
}
