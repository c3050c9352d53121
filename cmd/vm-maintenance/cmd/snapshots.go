package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	domain "github.com/oshokin/vm-maintenance/internal/domain/snapshot"
	"github.com/oshokin/vm-maintenance/internal/service/backup"
)

// snapshotsCmd prints the retention set and what the next backup would prune.
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List automatic snapshots of this VM and their retention status.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signalContext()
		defer stop()

		inspection, err := backup.Inspect(ctx, &backup.Options{
			ConfigPath: configPath,
			EnvFile:    envFile,
		})
		if err != nil {
			return err
		}

		printPlan(cmd.OutOrStdout(), inspection)

		return nil
	},
}

// printPlan writes one line per snapshot, newest first.
func printPlan(w io.Writer, inspection *backup.Inspection) {
	keep := color.New(color.FgGreen, color.Bold).SprintFunc()
	drop := color.New(color.FgRed, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	plan := inspection.Plan
	if len(plan.Keep)+len(plan.Delete) == 0 {
		_, _ = fmt.Fprintf(w, "No automatic snapshots of %s\n", inspection.Instance)

		return
	}

	line := func(status string, s *domain.Snapshot) {
		_, _ = fmt.Fprintf(w, "%s  %s  %s\n", status, s.Name, faint(s.CreatedAt.Local().Format(time.DateTime)))
	}

	for _, s := range plan.Keep {
		line(keep("KEEP  "), s)
	}

	for _, s := range plan.Delete {
		line(drop("DELETE"), s)
	}

	_, _ = fmt.Fprintf(w, "%d kept, %d to delete\n", len(plan.Keep), len(plan.Delete))
}
