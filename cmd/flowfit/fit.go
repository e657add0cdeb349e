// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvflow/distributions"
	"github.com/katalvlaran/lvflow/prng"
	"github.com/katalvlaran/lvflow/train"
)

func NewFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the configured flow to its target by minimising the negative ELBO",
		Args:  cobra.NoArgs,
		RunE:  fitHandler,
	}
	cmd.Flags().Int("steps", 0, "Override train.steps")
	cmd.Flags().Uint64("seed", 0, "Override seed")

	return cmd
}

func fitHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("steps") {
		cfg.Train.Steps, _ = cmd.Flags().GetInt("steps")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Flow.CondDim != 0 {
		return fmt.Errorf("fit: targets are unconditional, got cond_dim %d", cfg.Flow.CondDim)
	}
	logger := newLogger(cmd)

	target, err := lookupTarget(cfg.Target.Name, cfg.Flow.Dim)
	if err != nil {
		return err
	}
	keys := prng.NewKey(cfg.Seed).Split(3)
	flow, err := buildFlow(keys[0], cfg.Flow)
	if err != nil {
		return err
	}
	loss, err := train.ElboLoss(target, cfg.Train.Samples)
	if err != nil {
		return err
	}
	logger.Info("fitting", "flow", cfg.Flow.Kind, "dim", cfg.Flow.Dim, "target", cfg.Target.Name)

	fitted, losses, err := train.FitToVariationalTarget(keys[1], flow, loss,
		train.WithSteps(cfg.Train.Steps),
		train.WithLearningRate(cfg.Train.LearningRate),
		train.WithReturnBest(cfg.Train.ReturnBest),
		train.WithLogEvery(cfg.Train.LogEvery),
		train.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var data [][]string
	for i, l := range losses {
		if (i+1)%cfg.Train.LogEvery == 0 || i == len(losses)-1 {
			data = append(data, []string{strconv.Itoa(i + 1), strconv.FormatFloat(l, 'f', 4, 64)})
		}
	}
	table := newTable(cmd, []string{"STEP", "LOSS"})
	table.AppendBulk(data)
	table.Render()

	if cfg.Output.Samples == 0 {
		return nil
	}
	samples, err := distributions.SampleBatch(keys[2], fitted, cfg.Output.Samples, nil)
	if err != nil {
		return err
	}
	header := make([]string, cfg.Flow.Dim)
	for j := range header {
		header[j] = "X" + strconv.Itoa(j)
	}
	data = data[:0]
	for i := range cfg.Output.Samples {
		row, err := samples.Index(i)
		if err != nil {
			return err
		}
		cells := make([]string, 0, cfg.Flow.Dim)
		for _, v := range row.Raw() {
			cells = append(cells, strconv.FormatFloat(v, 'f', 4, 64))
		}
		data = append(data, cells)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	table = newTable(cmd, header)
	table.AppendBulk(data)
	table.Render()

	return nil
}
