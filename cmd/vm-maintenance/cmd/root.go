package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/vm-maintenance/internal/config"
	"github.com/oshokin/vm-maintenance/internal/logger"
	"github.com/oshokin/vm-maintenance/internal/version"
)

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// envFile stores the path to the optional dotenv file.
	envFile string
	// logLevel overrides the level from the settings file when set.
	logLevel string

	// rootCmd represents the base command grouping the maintenance procedures.
	rootCmd = &cobra.Command{
		Use:   "vm-maintenance",
		Short: "Snapshot, patch and reboot a Compute Engine VM on a schedule.",
		Long: `Periodic maintenance for a single Compute Engine virtual machine.

Run "setup" once to install unattended-upgrades and register the cron entries.
Cron then runs "backup" every Sunday at 02:00, which snapshots the boot disk and
keeps the newest four automatic snapshots, and "reboot-check" every Sunday at
03:00, which restarts the VM only when a package update asked for it.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
)

// Execute runs the vm-maintenance CLI and exits with non-zero status on error.
func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// setupLogging applies --log-level, falling back to the configured level.
func setupLogging(_ *cobra.Command, _ []string) error {
	level := logLevel

	if level == "" {
		// Settings errors are reported by the subcommand itself.
		if cfg, err := config.Load(configPath, envFile); err == nil {
			level = cfg.LogLevel
		}
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	logger.SetLevel(parsed)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup persistent flags shared by every procedure.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to settings file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "path to dotenv file with VMM_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		backupCmd,
		rebootCheckCmd,
		setupCmd,
		snapshotsCmd,
		daemonCmd,
		version.NewCommand(),
	)
}
