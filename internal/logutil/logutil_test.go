// SPDX-License-Identifier: MIT

package logutil_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/internal/logutil"
)

func TestNewLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := logutil.NewLogger(&buf, logutil.LevelTrace)
	logutil.Trace(logger, "step", "loss", 1.5)
	require.Contains(t, buf.String(), "level=TRACE")
	require.Contains(t, buf.String(), "loss=1.5")
	require.Contains(t, buf.String(), "source=logutil_test.go") // shortened path

	buf.Reset()
	quiet := logutil.NewLogger(&buf, slog.LevelInfo)
	logutil.Trace(quiet, "hidden")
	require.Empty(t, buf.String())
}

func TestLevelFromEnv(t *testing.T) {
	const key = "LVFLOW_TEST_DEBUG"
	cases := []struct {
		value   string
		verbose bool
		want    slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"false", false, slog.LevelInfo},
		{"1", false, slog.LevelDebug},
		{"yes", false, slog.LevelDebug},
		{"trace", false, logutil.LevelTrace},
		{"'2'", true, logutil.LevelTrace},
	}
	for _, tc := range cases {
		t.Setenv(key, tc.value)
		require.Equal(t, tc.want, logutil.LevelFromEnv(key, tc.verbose), "value=%q verbose=%v", tc.value, tc.verbose)
	}
}
