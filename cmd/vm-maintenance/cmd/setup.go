package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/vm-maintenance/internal/service/setup"
)

var (
	// root prefixes every file setup writes.
	root string
	// skipPackages controls whether apt-get runs.
	skipPackages bool

	// setupCmd installs packages and writes the maintenance configuration.
	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Install unattended-upgrades and register the maintenance schedule.",
		Long: `One-time bootstrap, run as root. Stops at the first failing step:

  1. apt-get update and apt-get install -y unattended-upgrades
  2. /etc/apt/apt.conf.d/50unattended-upgrades and 20auto-upgrades
  3. /etc/cron.d/vm-maintenance with the backup and reboot-check entries
  4. /etc/logrotate.d/vm-maintenance for both log files

The settings file is written with defaults when it does not exist yet.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			_, err := setup.Run(ctx, &setup.Options{
				ConfigPath:   configPath,
				EnvFile:      envFile,
				Root:         root,
				SkipPackages: skipPackages,
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	setupCmd.Flags().StringVar(&root, "root", setup.DefaultRoot, "directory the files are written under")
	setupCmd.Flags().BoolVar(&skipPackages, "skip-packages", false, "do not run apt-get")
}
