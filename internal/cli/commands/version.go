package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command. Commit and build date are
// printed when the build stamped them.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapcheck version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "leapcheck v%s\n", version)
			if commit != "" && commit != "unknown" {
				_, _ = fmt.Fprintf(out, "commit %s, built %s\n", commit, date)
			}
			_, _ = fmt.Fprintln(out, "Rule-dictionary validation for collection tables")
		},
	}
}
