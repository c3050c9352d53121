package scheduler

import (
	"context"
	"fmt"

	"github.com/oshokin/vm-maintenance/internal/config"
	"github.com/oshokin/vm-maintenance/internal/logger"
	"github.com/oshokin/vm-maintenance/internal/service/backup"
	"github.com/oshokin/vm-maintenance/internal/service/rebootcheck"
)

// Job names.
const (
	BackupJob      = "backup"
	RebootCheckJob = "reboot-check"
)

// Options controls the daemon.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// EnvFile specifies an optional dotenv file with VMM_* overrides.
	EnvFile string
	// Debug makes reboot checks detect without rebooting.
	Debug bool
}

// Jobs returns the backup and reboot-check jobs on their configured schedules.
// Each activation reloads settings so edits apply without a restart.
func Jobs(cfg *config.Config, opts *Options) []*Job {
	return []*Job{
		{
			Name:     BackupJob,
			Schedule: cfg.Schedule.Backup,
			Run: func(ctx context.Context) error {
				_, err := backup.Run(ctx, &backup.Options{
					ConfigPath: opts.ConfigPath,
					EnvFile:    opts.EnvFile,
				})

				return err
			},
		},
		{
			Name:     RebootCheckJob,
			Schedule: cfg.Schedule.RebootCheck,
			Run: func(ctx context.Context) error {
				_, err := rebootcheck.Run(ctx, &rebootcheck.Options{
					ConfigPath: opts.ConfigPath,
					EnvFile:    opts.EnvFile,
					Debug:      opts.Debug,
				})

				return err
			},
		},
	}
}

// Run schedules both procedures and blocks until ctx is done.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "daemon")

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	s, err := New(ctx, Jobs(cfg, opts)...)
	if err != nil {
		return err
	}

	return s.Run(ctx)
}
