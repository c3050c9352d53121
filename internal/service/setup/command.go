package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/vm-maintenance/internal/config"
	"github.com/oshokin/vm-maintenance/internal/logger"
	"github.com/oshokin/vm-maintenance/internal/system"
)

// DefaultRoot is the filesystem root files are written under.
const DefaultRoot = "/"

// Options controls the bootstrap.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// EnvFile specifies an optional dotenv file with VMM_* overrides.
	EnvFile string
	// Root prefixes every written path.
	Root string
	// SkipPackages skips apt-get update and install.
	SkipPackages bool
	// Executor replaces the system command executor when set.
	Executor system.Executor
}

// Run installs packages and writes the maintenance files. The first failing
// step aborts the run.
func Run(ctx context.Context, opts *Options) ([]string, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "setup")

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	root := opts.Root
	if root == "" {
		root = DefaultRoot
	}

	executor := opts.Executor
	if executor == nil {
		executor = system.DefaultExecutor
	}

	files, err := Render(cfg, opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, err
	}

	if !opts.SkipPackages {
		if err = installPackages(ctx, executor); err != nil {
			return nil, err
		}
	}

	written := make([]string, 0, len(files)+1)

	for _, f := range files {
		target, err := writeFile(root, f)
		if err != nil {
			return written, err
		}

		logger.InfoKV(ctx, "Configuration file written", "path", target)

		written = append(written, target)
	}

	target, err := ensureConfig(root, opts.ConfigPath, cfg)
	if err != nil {
		return written, err
	}

	if target != "" {
		logger.InfoKV(ctx, "Default settings written", "path", target)

		written = append(written, target)
	}

	logger.Info(ctx, "Setup completed")

	return written, nil
}

// installPackages refreshes package lists and installs unattended-upgrades.
func installPackages(ctx context.Context, executor system.Executor) error {
	if err := system.AptGet(ctx, executor, "update"); err != nil {
		return fmt.Errorf("update package lists: %w", err)
	}

	if err := system.AptGet(ctx, executor, "install", "-y", "unattended-upgrades"); err != nil {
		return fmt.Errorf("install unattended-upgrades: %w", err)
	}

	return nil
}

// ensureConfig saves the effective settings when no settings file exists yet,
// so later cron runs see the same values. It returns the written path or "".
func ensureConfig(root, path string, cfg *config.Config) (string, error) {
	if path == "" {
		return "", nil
	}

	target := filepath.Join(root, path)

	_, err := os.Stat(target)

	switch {
	case err == nil:
		return "", nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("stat %s: %w", target, err)
	}

	if err = config.Save(target, cfg); err != nil {
		return "", fmt.Errorf("save default settings: %w", err)
	}

	return target, nil
}
