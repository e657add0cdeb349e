// SPDX-License-Identifier: MIT

// Package logutil builds the slog loggers used by lvflow commands and adds a
// TRACE level below DEBUG for per-step training records.
package logutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// LevelTrace is one step below slog.LevelDebug.
const LevelTrace slog.Level = -8

// NewLogger returns a text logger writing to w at level, with TRACE rendered by
// name and source paths shortened to the file name.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if attr.Value.Any().(slog.Level) == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}

// Trace logs msg at LevelTrace on logger (slog.Default() when nil), reporting
// the caller of Trace as the source.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.TODO()
	if !logger.Enabled(ctx, LevelTrace) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	record := slog.NewRecord(time.Now(), LevelTrace, msg, pcs[0])
	record.Add(args...)
	_ = logger.Handler().Handle(ctx, record)
}

// LevelFromEnv maps a debug environment variable to a level:
// unset or false → INFO, "trace" or "2" → TRACE, any other value → DEBUG.
// verbose forces at least DEBUG.
func LevelFromEnv(key string, verbose bool) slog.Level {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	v := strings.Trim(os.Getenv(key), "\"' ")
	if v == "" {
		return level
	}
	switch strings.ToLower(v) {
	case "trace", "2":
		return LevelTrace
	}
	if on, err := strconv.ParseBool(v); err == nil && !on {
		return level
	}

	return slog.LevelDebug
}
