package rebootcheck

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/vm-maintenance/internal/config"
	"github.com/oshokin/vm-maintenance/internal/logger"
	"github.com/oshokin/vm-maintenance/internal/service/power"
)

// packagesSuffix names the companion file listing the packages that asked for a reboot.
const packagesSuffix = ".pkgs"

// Outcome is the terminal state of a reboot check.
type Outcome int

const (
	// NotRequired means no marker was found and nothing was done.
	NotRequired Outcome = iota
	// Rebooting means the reboot command was issued.
	Rebooting
	// Skipped means a reboot was required but debug mode prevented it.
	Skipped
)

// String returns a lower-case name for logs.
func (o Outcome) String() string {
	switch o {
	case NotRequired:
		return "not-required"
	case Rebooting:
		return "rebooting"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options controls a reboot check.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// EnvFile specifies an optional dotenv file with VMM_* overrides.
	EnvFile string
	// Debug detects a pending reboot without performing it.
	Debug bool
	// Rebooter replaces the system rebooter when set.
	Rebooter power.Rebooter
}

// Run loads settings and checks the configured sentinel once.
func Run(ctx context.Context, opts *Options) (Outcome, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "reboot-check")

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return NotRequired, fmt.Errorf("load configuration: %w", err)
	}

	rebooter := opts.Rebooter
	if rebooter == nil {
		rebooter = new(power.SystemRebooter)
	}

	return Check(ctx, cfg.Paths.RebootSentinel, rebooter, opts.Debug)
}

// Check reboots through rebooter when sentinel exists and does nothing otherwise.
func Check(ctx context.Context, sentinel string, rebooter power.Rebooter, debug bool) (Outcome, error) {
	sentinel = filepath.Clean(sentinel)

	_, err := os.Stat(sentinel)

	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.InfoKV(ctx, "No reboot required", "sentinel", sentinel)

		return NotRequired, nil
	case err != nil:
		return NotRequired, fmt.Errorf("stat %s: %w", sentinel, err)
	}

	packages := requiringPackages(sentinel + packagesSuffix)

	if debug {
		logger.InfoKV(ctx, "Reboot required but debug mode prevents it", "sentinel", sentinel, "packages", packages)

		return Skipped, nil
	}

	logger.InfoKV(ctx, "Reboot required, rebooting now", "sentinel", sentinel, "packages", packages)

	if err = rebooter.Reboot(ctx); err != nil {
		logger.ErrorKV(ctx, "Reboot command failed", "error", err)

		return NotRequired, fmt.Errorf("reboot: %w", err)
	}

	return Rebooting, nil
}

// requiringPackages reads the package list next to the sentinel.
// The file is optional; a missing or unreadable file yields nil.
func requiringPackages(path string) []string {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil
	}

	defer func() {
		_ = f.Close()
	}()

	var packages []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			packages = append(packages, line)
		}
	}

	return packages
}
