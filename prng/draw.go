// SPDX-License-Identifier: MIT

package prng

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/lvflow/tensor"
)

// Normal draws an array of standard normal variates with the given shape.
func Normal(k Key, shape ...int) *tensor.Array {
	out := tensor.Zeros(shape...)
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: k.Source()}
	buf := out.Data()
	for i := range buf {
		buf[i] = dist.Rand()
	}
	arr, _ := tensor.New(shape, buf) // shape validated by Zeros

	return arr
}

// Uniform draws an array of variates uniform on [lo, hi).
func Uniform(k Key, lo, hi float64, shape ...int) *tensor.Array {
	out := tensor.Zeros(shape...)
	dist := distuv.Uniform{Min: lo, Max: hi, Src: k.Source()}
	buf := out.Data()
	for i := range buf {
		buf[i] = dist.Rand()
	}
	arr, _ := tensor.New(shape, buf)

	return arr
}

// Permutation returns a uniformly random permutation of 0..n-1.
func Permutation(k Key, n int) []int {
	return k.Rand().Perm(n)
}
