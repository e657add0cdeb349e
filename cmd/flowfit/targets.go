// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvflow/tensor"
	"github.com/katalvlaran/lvflow/train"
)

var errUnknownTarget = errors.New("unknown target")

// bananaScale is the conditional spread of the second banana coordinate.
const bananaScale = 0.5

type targetInfo struct {
	minDim int
	about  string
	build  func(dim int) train.Target
}

// targets are unnormalized log densities over x ∈ ℝ^dim.
var targets = map[string]targetInfo{
	"standard_normal": {1, "isotropic N(0, I)", func(int) train.Target {
		return func(x *tensor.Array) (float64, error) {
			return -0.5 * sumSquares(x.Raw()), nil
		}
	}},
	"shifted_gaussian": {1, "N(2, I)", func(int) train.Target {
		return func(x *tensor.Array) (float64, error) {
			var s float64
			for _, v := range x.Raw() {
				s += (v - 2) * (v - 2)
			}
			return -0.5 * s, nil
		}
	}},
	"banana": {2, "x0 ~ N(0,1), x1 | x0 ~ N(x0², 0.5²), rest N(0,1)", func(int) train.Target {
		return func(x *tensor.Array) (float64, error) {
			v := x.Raw()
			r := (v[1] - v[0]*v[0]) / bananaScale
			return -0.5*(v[0]*v[0]+r*r) - 0.5*sumSquares(v[2:]), nil
		}
	}},
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}

	return s
}

// lookupTarget returns the named target for dim-dimensional inputs.
func lookupTarget(name string, dim int) (train.Target, error) {
	t, ok := targets[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, errUnknownTarget)
	}
	if dim < t.minDim {
		return nil, fmt.Errorf("target %q needs dim >= %d, got %d", name, t.minDim, dim)
	}

	return t.build(dim), nil
}

func NewTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List target densities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, 0, len(targets))
			for name := range targets {
				names = append(names, name)
			}
			slices.Sort(names)

			var data [][]string
			for _, name := range names {
				t := targets[name]
				data = append(data, []string{name, fmt.Sprint(t.minDim), t.about})
			}
			table := newTable(cmd, []string{"NAME", "MIN DIM", "DENSITY"})
			table.AppendBulk(data)
			table.Render()

			return nil
		},
	}
}

// newTable returns a borderless left-aligned table on the command's stdout.
func newTable(cmd *cobra.Command, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoFormatHeaders(false)

	return table
}
