// SPDX-License-Identifier: MIT

// Package tensor provides the array leaves used by every flow component.
// Array is a row-major N-dimensional array of float64 values, storing
// elements in a flat slice for performance and cache friendliness.
package tensor

import (
	"fmt"
	"strings"
)

// arrayErrorf wraps an underlying error with Array method context.
func arrayErrorf(method string, err error) error {
	return fmt.Errorf("Array.%s: %w", method, err)
}

// Array is an immutable-by-convention N-dimensional array.
// shape holds the extent of every axis, data holds prod(shape) elements in
// row-major order. A rank-0 array (empty shape) is a scalar with one element.
type Array struct {
	shape []int     // extent per axis
	data  []float64 // flat backing storage, len == prod(shape)
}

// New creates an array with the given shape backed by a copy of data.
// Stage 1 (Validate): every extent ≥ 0 and len(data) == prod(shape).
// Stage 2 (Prepare): copy shape and data so the caller keeps ownership.
// Complexity: O(n) time and memory.
func New(shape []int, data []float64) (*Array, error) {
	n, err := sizeOf(shape)
	if err != nil {
		return nil, arrayErrorf("New", err)
	}
	if len(data) != n {
		return nil, arrayErrorf("New", fmt.Errorf("len(data)=%d want %d: %w", len(data), n, ErrBadShape))
	}

	buf := make([]float64, n)
	copy(buf, data)

	return &Array{shape: cloneInts(shape), data: buf}, nil
}

// Zeros returns a zero-filled array of the given shape.
// Negative extents are programmer errors and panic.
func Zeros(shape ...int) *Array {
	n, err := sizeOf(shape)
	if err != nil {
		panic(err)
	}

	return &Array{shape: cloneInts(shape), data: make([]float64, n)}
}

// Full returns an array of the given shape with every element set to v.
func Full(v float64, shape ...int) *Array {
	a := Zeros(shape...)
	for i := range a.data {
		a.data[i] = v
	}

	return a
}

// Vector returns a rank-1 array holding a copy of values.
func Vector(values ...float64) *Array {
	buf := make([]float64, len(values))
	copy(buf, values)

	return &Array{shape: []int{len(values)}, data: buf}
}

// Scalar returns a rank-0 array.
func Scalar(v float64) *Array {
	return &Array{shape: []int{}, data: []float64{v}}
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() []int { return cloneInts(a.shape) }

// Rank returns the number of axes.
func (a *Array) Rank() int { return len(a.shape) }

// Size returns the number of elements.
func (a *Array) Size() int { return len(a.data) }

// Dim returns the extent of axis i; negative i counts from the end.
func (a *Array) Dim(i int) int {
	if i < 0 {
		i += len(a.shape)
	}

	return a.shape[i]
}

// Data returns a copy of the flat row-major data.
func (a *Array) Data() []float64 {
	out := make([]float64, len(a.data))
	copy(out, a.data)

	return out
}

// Raw exposes the backing slice without copying. Callers must not mutate it.
func (a *Array) Raw() []float64 { return a.data }

// Item returns the single element of a size-1 array.
func (a *Array) Item() (float64, error) {
	if len(a.data) != 1 {
		return 0, arrayErrorf("Item", fmt.Errorf("size %d: %w", len(a.data), ErrBadShape))
	}

	return a.data[0], nil
}

// offset computes the flat index of idx or returns ErrOutOfRange.
func (a *Array) offset(idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, ErrRank
	}
	off := 0
	for axis, i := range idx {
		if i < 0 || i >= a.shape[axis] {
			return 0, ErrOutOfRange
		}
		off = off*a.shape[axis] + i
	}

	return off, nil
}

// At returns the element at the given multi-index.
// Complexity: O(rank).
func (a *Array) At(idx ...int) (float64, error) {
	off, err := a.offset(idx)
	if err != nil {
		return 0, arrayErrorf("At", fmt.Errorf("%v: %w", idx, err))
	}

	return a.data[off], nil
}

// With returns a copy of a with the element at idx replaced by v.
func (a *Array) With(v float64, idx ...int) (*Array, error) {
	off, err := a.offset(idx)
	if err != nil {
		return nil, arrayErrorf("With", fmt.Errorf("%v: %w", idx, err))
	}
	out := a.Clone()
	out.data[off] = v

	return out, nil
}

// Clone returns a deep copy of the array.
// Complexity: O(n) time and memory.
func (a *Array) Clone() *Array {
	buf := make([]float64, len(a.data))
	copy(buf, a.data)

	return &Array{shape: cloneInts(a.shape), data: buf}
}

// Reshape returns a copy with a new shape holding the same number of elements.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	n, err := sizeOf(shape)
	if err != nil {
		return nil, arrayErrorf("Reshape", err)
	}
	if n != len(a.data) {
		return nil, arrayErrorf("Reshape", fmt.Errorf("%v -> %v: %w", a.shape, shape, ErrBadShape))
	}
	out := a.Clone()
	out.shape = cloneInts(shape)

	return out, nil
}

// Index returns slot i of the leading axis as a new array of rank-1 lower.
// Stage 1 (Validate): rank ≥ 1 and 0 ≤ i < shape[0].
// Stage 2 (Execute): copy the contiguous block for slot i.
// Complexity: O(n / shape[0]).
func (a *Array) Index(i int) (*Array, error) {
	if len(a.shape) == 0 {
		return nil, arrayErrorf("Index", ErrRank)
	}
	if i < 0 || i >= a.shape[0] {
		return nil, arrayErrorf("Index", fmt.Errorf("%d of %d: %w", i, a.shape[0], ErrOutOfRange))
	}
	inner := a.shape[1:]
	block := len(a.data) / max(a.shape[0], 1)
	buf := make([]float64, block)
	copy(buf, a.data[i*block:(i+1)*block])

	return &Array{shape: cloneInts(inner), data: buf}, nil
}

// Slice returns elements [lo, hi) of a rank-1 array.
func (a *Array) Slice(lo, hi int) (*Array, error) {
	if len(a.shape) != 1 {
		return nil, arrayErrorf("Slice", ErrRank)
	}
	if lo < 0 || hi > a.shape[0] || lo > hi {
		return nil, arrayErrorf("Slice", fmt.Errorf("[%d:%d] of %d: %w", lo, hi, a.shape[0], ErrOutOfRange))
	}

	return Vector(a.data[lo:hi]...), nil
}

// Stack joins arrays of identical shape along a new leading axis.
// Stage 1 (Validate): non-empty input, no nils, equal shapes.
// Stage 2 (Execute): concatenate flat buffers in order.
// Complexity: O(total elements).
func Stack(arrays []*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("Stack: %w", ErrEmptyStack)
	}
	first := arrays[0]
	if first == nil {
		return nil, fmt.Errorf("Stack: index 0: %w", ErrNilArray)
	}
	buf := make([]float64, 0, len(arrays)*len(first.data))
	for i, arr := range arrays {
		if arr == nil {
			return nil, fmt.Errorf("Stack: index %d: %w", i, ErrNilArray)
		}
		if !SameShape(first, arr) {
			return nil, fmt.Errorf("Stack: index 0 had shape %v, index %d had shape %v: %w",
				first.shape, i, arr.shape, ErrDimensionMismatch)
		}
		buf = append(buf, arr.data...)
	}
	shape := append([]int{len(arrays)}, first.shape...)

	return &Array{shape: shape, data: buf}, nil
}

// Concat joins rank-1 arrays end to end.
func Concat(arrays ...*Array) (*Array, error) {
	var buf []float64
	for i, arr := range arrays {
		if arr == nil {
			return nil, fmt.Errorf("Concat: index %d: %w", i, ErrNilArray)
		}
		if arr.Rank() != 1 {
			return nil, fmt.Errorf("Concat: index %d has rank %d: %w", i, arr.Rank(), ErrRank)
		}
		buf = append(buf, arr.data...)
	}

	return Vector(buf...), nil
}

// String implements fmt.Stringer for easy debugging.
func (a *Array) String() string {
	var b strings.Builder
	b.WriteString("Array")
	b.WriteString(fmt.Sprint(a.shape))
	b.WriteString("[")
	for i, v := range a.data {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%g", v))
	}
	b.WriteString("]")

	return b.String()
}

// sizeOf validates a shape and returns the product of its extents.
func sizeOf(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("shape %v: %w", shape, ErrBadShape)
		}
		n *= d
	}

	return n, nil
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)

	return out
}
