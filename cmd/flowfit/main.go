// SPDX-License-Identifier: MIT

// Command flowfit builds a normalizing flow from a YAML config, fits it to a
// named target density and prints the losses and a few samples.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvflow/internal/config"
	"github.com/katalvlaran/lvflow/internal/logutil"
)

const debugEnv = "FLOWFIT_DEBUG"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd wires the flowfit command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowfit",
		Short: "Fit normalizing flows to target densities",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewFitCmd(), NewDescribeCmd(), NewTargetsCmd())

	return rootCmd
}

// loadConfig reads the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}

	return cfg, nil
}

// newLogger writes to stderr at the level selected by --verbose and FLOWFIT_DEBUG.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")

	return logutil.NewLogger(cmd.ErrOrStderr(), logutil.LevelFromEnv(debugEnv, verbose))
}
