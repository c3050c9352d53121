// Package power restarts the machine through the OS shutdown command.
package power

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/oshokin/vm-maintenance/internal/system"
)

// windowsRebootTimeout is the delay in seconds for the Windows shutdown command.
const windowsRebootTimeout = "0"

// ErrUnsupportedOS indicates the current OS is not supported for reboot.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Rebooter restarts the machine.
type Rebooter interface {
	Reboot(ctx context.Context) error
}

// SystemRebooter reboots using the built-in shutdown tool:
//   - Linux/macOS: `shutdown -r now`
//   - Windows:     `shutdown.exe -r -f -t 0`
type SystemRebooter struct {
	// Executor runs the shutdown command; nil means system.DefaultExecutor.
	Executor system.Executor
	// GOOS overrides runtime.GOOS when set.
	GOOS string
}

// Reboot issues the reboot command. The OS takes over from there.
func (r *SystemRebooter) Reboot(ctx context.Context) error {
	executor := r.Executor
	if executor == nil {
		executor = system.DefaultExecutor
	}

	goos := r.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	switch goos {
	case "linux", "darwin":
		return executor.Run(ctx, "shutdown", []string{"-r", "now"})
	case "windows":
		return executor.Run(ctx, "shutdown.exe", []string{"-r", "-f", "-t", windowsRebootTimeout})
	default:
		return fmt.Errorf("reboot on %s: %w", goos, ErrUnsupportedOS)
	}
}
