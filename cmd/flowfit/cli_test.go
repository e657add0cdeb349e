// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowfit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestTargetsCommand(t *testing.T) {
	out, err := run(t, "targets")
	require.NoError(t, err)
	for _, name := range []string{"banana", "shifted_gaussian", "standard_normal"} {
		require.Contains(t, out, name)
	}
}

func TestDescribeCommand(t *testing.T) {
	path := writeConfig(t, `
flow:
  kind: maf
  dim: 2
  layers: 1
  nn_width: 4
  nn_depth: 1
`)
	out, err := run(t, "describe", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "TRAINABLE")
	require.Contains(t, out, "distributions.Transformed")
	require.Contains(t, out, "trainable arrays")
}

func TestFitCommand(t *testing.T) {
	path := writeConfig(t, `
seed: 3
flow:
  kind: coupling
  dim: 2
  layers: 1
  nn_width: 4
  nn_depth: 1
target:
  name: shifted_gaussian
train:
  steps: 4
  samples: 4
  log_every: 2
output:
  samples: 3
`)
	out, err := run(t, "fit", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "STEP")
	require.Contains(t, out, "X1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2+1+1+3) // loss header + rows, blank, sample header + rows
}

func TestFitRejects(t *testing.T) {
	path := writeConfig(t, `
target:
  name: nowhere
`)
	_, err := run(t, "fit", "--config", path, "--steps", "1")
	require.ErrorIs(t, err, errUnknownTarget)

	conditional := writeConfig(t, `
flow:
  cond_dim: 2
`)
	_, err = run(t, "fit", "--config", conditional)
	require.Error(t, err)

	_, err = run(t, "fit", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
