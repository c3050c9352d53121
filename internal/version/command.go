package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the `version` subcommand printing Full build information.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	}
}
