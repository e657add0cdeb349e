// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/tree"
)

func NewDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the tree of the configured flow",
		Args:  cobra.NoArgs,
		RunE:  describeHandler,
	}
}

func describeHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flow, err := buildFlow(prng.NewKey(cfg.Seed), cfg.Flow)
	if err != nil {
		return err
	}
	part, err := tree.Split(flow, nil)
	if err != nil {
		return err
	}
	trainable := make(map[string]bool, part.Len())
	for _, p := range part.Paths() {
		trainable[pathString(p)] = true
	}

	var data [][]string
	err = tree.Walk(flow, func(path tree.Path, n tree.Node) error {
		kind := n.Kind().String()
		if w, ok := n.(tree.Wrapper); ok {
			kind += "/" + w.Variant().String()
		}
		shape, train := "", ""
		if l, ok := n.(*tree.Leaf); ok {
			shape = fmt.Sprint(l.Value().Shape())
			train = fmt.Sprint(trainable[pathString(path)])
		}
		name := strings.Repeat("  ", len(path)) + strings.TrimPrefix(fmt.Sprintf("%T", n), "*")
		data = append(data, []string{pathString(path), name, kind, shape, train})

		return nil
	})
	if err != nil {
		return err
	}

	table := newTable(cmd, []string{"PATH", "NODE", "KIND", "SHAPE", "TRAINABLE"})
	table.AppendBulk(data)
	table.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d trainable arrays, %d parameters\n", part.Len(), part.Size())

	return nil
}

func pathString(p tree.Path) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprint(v)
	}

	return "(" + strings.Join(parts, ",") + ")"
}
