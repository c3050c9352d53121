package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/vm-maintenance/internal/service/backup"
)

var (
	// dryRun controls whether the backup only logs what it would do.
	dryRun bool

	// backupCmd snapshots the disk and prunes old snapshots.
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the VM disk and prune old automatic snapshots.",
		Long: `Creates a snapshot named <vm>-auto-backup-<YYYYMMDD-HHMMSS> of the VM disk,
stored in the region of the VM zone, then deletes automatic snapshots of this VM
beyond the newest retention.keep (4 by default).

A failed snapshot exits non-zero and deletes nothing. Failed deletions are
logged and do not change the exit status.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			_, err := backup.Run(ctx, &backup.Options{
				ConfigPath: configPath,
				EnvFile:    envFile,
				DryRun:     dryRun,
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	backupCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the planned snapshot and deletions without changing anything")
}
