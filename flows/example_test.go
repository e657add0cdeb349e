// SPDX-License-Identifier: MIT

package flows_test

import (
	"fmt"

	"github.com/katalvlaran/lvflow/bijections"
	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/flows"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
)

// ExampleCouplingFlow builds a two-layer coupling flow over two variables and
// runs a point forward and back.
func ExampleCouplingFlow() {
	base, _ := distributions.NewStandardNormal(2)
	flow, err := flows.CouplingFlow(prng.NewKey(0), base, bijections.NewAffineTransformer(),
		flows.WithFlowLayers(2))
	if err != nil {
		fmt.Println(err)
		return
	}

	x := tensor.Vector(0.5, -1.2)
	y, _ := flow.Bijection().Transform(x, nil)
	back, _ := flow.Bijection().Inverse(y, nil)
	fmt.Printf("%.5f %.5f\n", back.Raw()[0], back.Raw()[1])
	// Output:
	// 0.50000 -1.20000
}
