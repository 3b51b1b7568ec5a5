package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for minrow
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minrow",
		Short: "Find the minimum row of every delimited file under a directory",
		Long: `minrow scans a directory tree for header-less delimited files,
loads them in parallel and reports, for each file, the row holding the
minimum value of a numeric column.

Results are written to stdout as CSV lines of the form
  <file-stem>,<1-based row index>,<row values...>
in sorted path order. Progress and errors are logged to stderr.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the error once
		SilenceErrors: true,
	}

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
