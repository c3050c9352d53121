package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/vm-maintenance/internal/logger"
)

// maxErrorOutput caps how much command output is copied into an error.
const maxErrorOutput = 2048

// Executor runs a command to completion.
type Executor interface {
	Run(ctx context.Context, path string, args []string, options ...CmdOption) error
}

// CmdOption adjusts a command before it starts.
type CmdOption func(cmd *exec.Cmd)

// WithEnv appends one KEY=VALUE pair to the command environment.
func WithEnv(env string) CmdOption {
	return func(cmd *exec.Cmd) {
		cmd.Env = append(cmd.Env, env)
	}
}

// SimpleExecutor runs commands with os/exec.
type SimpleExecutor struct{}

// DefaultExecutor is the executor used by production code.
//
//nolint:gochecknoglobals // Replaced in tests only.
var DefaultExecutor Executor = new(SimpleExecutor)

// Run executes path with args, logging the command line and its output.
// A non-zero exit becomes an error carrying the tail of the output.
func (e *SimpleExecutor) Run(ctx context.Context, path string, args []string, options ...CmdOption) error {
	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.Env = cmd.Environ()

	for _, opt := range options {
		opt(cmd)
	}

	logger.InfoKV(ctx, "Execute system command", "command", path, "args", args)

	err := cmd.Run()

	logger.DebugKV(ctx, "Command output", "command", path, "output", output.String())

	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", path, strings.Join(args, " "), err, tail(output.String()))
	}

	return nil
}

// AptGet runs apt-get non-interactively. When the first attempt fails it
// repairs an interrupted dpkg state once and retries.
func AptGet(ctx context.Context, executor Executor, args ...string) error {
	env := WithEnv("DEBIAN_FRONTEND=noninteractive")

	if err := executor.Run(ctx, "apt-get", args, env); err == nil {
		return nil
	}

	logger.Warn(ctx, "apt-get failed, running dpkg --configure -a before retrying")

	if err := executor.Run(ctx, "dpkg", []string{"--configure", "-a"}, env); err != nil {
		logger.WarnKV(ctx, "dpkg repair failed", "error", err)
	}

	return executor.Run(ctx, "apt-get", args, env)
}

// tail returns the last maxErrorOutput bytes of s, trimmed.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorOutput {
		s = "..." + s[len(s)-maxErrorOutput:]
	}

	return s
}
