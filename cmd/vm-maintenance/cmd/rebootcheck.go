package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/vm-maintenance/internal/service/rebootcheck"
)

var (
	// debug controls whether to skip the reboot when one is required.
	debug bool

	// rebootCheckCmd reboots the VM when the package manager asked for it.
	rebootCheckCmd = &cobra.Command{
		Use:   "reboot-check",
		Short: "Reboot the VM if an update requires it.",
		Long: `Checks for the reboot-required marker (/var/run/reboot-required by default).
If it exists the VM is rebooted immediately, otherwise nothing happens.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			_, err := rebootcheck.Run(ctx, &rebootcheck.Options{
				ConfigPath: configPath,
				EnvFile:    envFile,
				Debug:      debug,
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Hidden debug flag to skip the reboot for debugging.
	rebootCheckCmd.Flags().BoolVarP(&debug, "debug", "d", false, "skip reboot for debugging")

	err := rebootCheckCmd.Flags().MarkHidden("debug")
	if err != nil {
		panic(err)
	}
}
