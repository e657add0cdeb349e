// SPDX-License-Identifier: MIT
// Package: distributions
//
// Row-parallel helpers. The distribution is resolved once, then rows are
// evaluated concurrently (bounded by GOMAXPROCS) and written by index, so the
// result equals a sequential loop.

package distributions

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/tree"
)

// Resolve returns d with every wrapper recovered.
func Resolve(d Distribution) (Distribution, error) {
	n, err := tree.Unwrap(d)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}
	r, ok := n.(Distribution)
	if !ok {
		return nil, fmt.Errorf("Resolve: %T: %w", n, ErrNotDistribution)
	}

	return r, nil
}

// condRow returns the conditioning vector for row i: nil, a shared [condDim]
// vector, or row i of an [n, condDim] matrix.
func condRow(cond *tensor.Array, i int) (*tensor.Array, error) {
	if cond == nil || cond.Rank() == 1 {
		return cond, nil
	}

	return cond.Index(i)
}

// LogProbBatch evaluates log p(x_i | cond_i) for every row of xs ([n, dim]).
// cond may be nil, a shared [condDim] vector or an [n, condDim] matrix.
func LogProbBatch(d Distribution, xs, cond *tensor.Array) ([]float64, error) {
	if d == nil {
		return nil, fmt.Errorf("LogProbBatch: nil distribution: %w", ErrInvalidParam)
	}
	if xs == nil || xs.Rank() != 2 || xs.Dim(1) != d.Dim() {
		return nil, fmt.Errorf("LogProbBatch: want [n, %d]: %w", d.Dim(), ErrShape)
	}
	if cond != nil && cond.Rank() == 2 && cond.Dim(0) != xs.Dim(0) {
		return nil, fmt.Errorf("LogProbBatch: %d conditions for %d rows: %w", cond.Dim(0), xs.Dim(0), ErrCondition)
	}
	r, err := Resolve(d)
	if err != nil {
		return nil, fmt.Errorf("LogProbBatch: %w", err)
	}

	out := make([]float64, xs.Dim(0))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range out {
		g.Go(func() error {
			x, err := xs.Index(i)
			if err != nil {
				return err
			}
			c, err := condRow(cond, i)
			if err != nil {
				return err
			}
			lp, err := r.LogProb(x, c)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			out[i] = lp

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("LogProbBatch: %w", err)
	}

	return out, nil
}

// SampleBatch draws n samples, one key per row from key.Split(n), and returns
// them stacked as [n, dim].
func SampleBatch(key prng.Key, d Distribution, n int, cond *tensor.Array) (*tensor.Array, error) {
	if d == nil || n <= 0 {
		return nil, fmt.Errorf("SampleBatch: n=%d: %w", n, ErrInvalidParam)
	}
	if cond != nil && cond.Rank() == 2 && cond.Dim(0) != n {
		return nil, fmt.Errorf("SampleBatch: %d conditions for %d rows: %w", cond.Dim(0), n, ErrCondition)
	}
	r, err := Resolve(d)
	if err != nil {
		return nil, fmt.Errorf("SampleBatch: %w", err)
	}

	keys := key.Split(n)
	rows := make([]*tensor.Array, n)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range rows {
		g.Go(func() error {
			c, err := condRow(cond, i)
			if err != nil {
				return err
			}
			s, err := r.Sample(keys[i], c)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			rows[i] = s

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("SampleBatch: %w", err)
	}

	return tensor.Stack(rows)
}
