package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/vm-maintenance/internal/scheduler"
)

// daemonCmd runs both procedures in-process on their schedules.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run backup and reboot-check on their schedules without system cron.",
	Long: `Keeps running and triggers backup and reboot-check on schedule.backup and
schedule.reboot_check. A job still running at its next activation is skipped.
Stops on SIGINT or SIGTERM after the running job finishes.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signalContext()
		defer stop()

		return scheduler.Run(ctx, &scheduler.Options{
			ConfigPath: configPath,
			EnvFile:    envFile,
			Debug:      debug,
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	daemonCmd.Flags().BoolVarP(&debug, "debug", "d", false, "skip reboots for debugging")

	err := daemonCmd.Flags().MarkHidden("debug")
	if err != nil {
		panic(err)
	}
}
