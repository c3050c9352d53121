package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextLogger checks that names and fields attached to a context reach the output.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), New(zapcore.DebugLevel, &buf))
	ctx = WithName(ctx, "backup")
	ctx = WithKV(ctx, "instance", "vm1")

	InfoKV(ctx, "Snapshot created", "name", "vm1-auto-backup-20240101-020000")

	out := buf.String()
	require.Contains(t, out, "backup")
	require.Contains(t, out, "Snapshot created")
	require.Contains(t, out, "vm1")
	require.Contains(t, out, "vm1-auto-backup-20240101-020000")
}

// TestFromContextFallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, global, FromContext(context.Background()))
}

// TestSetLevel filters messages below the configured level on shared-level loggers.
//
//nolint:paralleltest // Changes the process-wide level.
func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer

	ctx := ToContext(context.Background(), New(nil, &buf))

	SetLevel(zapcore.WarnLevel)
	t.Cleanup(func() { SetLevel(zapcore.InfoLevel) })

	InfoKV(ctx, "Snapshot created")
	WarnKV(ctx, "Snapshot already gone")

	require.NotContains(t, buf.String(), "Snapshot created")
	require.Contains(t, buf.String(), "Snapshot already gone")
}
