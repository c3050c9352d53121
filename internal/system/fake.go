package system

import (
	"context"
	"os/exec"
	"strings"
	"sync"
)

// Call records one command run by a RecordingExecutor.
type Call struct {
	Path string
	Args []string
	Env  []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// RecordingExecutor records commands instead of running them.
// Fail maps a command line (see Call.String) to the errors returned for its
// successive invocations; the last error repeats.
type RecordingExecutor struct {
	// Fail configures failures per command line.
	Fail map[string][]error

	// mu protects calls.
	mu sync.Mutex
	// calls holds recorded invocations in order.
	calls []Call
}

// Run records the command and returns the configured error, if any.
func (r *RecordingExecutor) Run(_ context.Context, path string, args []string, options ...CmdOption) error {
	cmd := exec.Command(path, args...)
	for _, opt := range options {
		opt(cmd)
	}

	call := Call{Path: path, Args: args, Env: cmd.Env}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := 0

	for _, c := range r.calls {
		if c.String() == call.String() {
			seen++
		}
	}

	r.calls = append(r.calls, call)

	errs := r.Fail[call.String()]
	if len(errs) == 0 {
		return nil
	}

	return errs[min(seen, len(errs)-1)]
}

// Calls returns the recorded command lines in order.
func (r *RecordingExecutor) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.String())
	}

	return out
}
