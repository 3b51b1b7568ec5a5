package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/minrow/internal/config"
	"github.com/harrison/minrow/internal/history"
	"github.com/harrison/minrow/internal/output"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'minrow history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with scan --history-db, most recent first.

With --run, print the records of one run exactly as scan wrote them,
followed by the files that were dropped.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("db", "", "History database (default: ~/.minrow/history.db)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().String("run", "", "Show the records of a single run")

	return cmd
}

// runHistory executes the history command
func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		var err error
		dbPath, err = config.GetHistoryDBPath()
		if err != nil {
			return fmt.Errorf("failed to get history database path: %w", err)
		}
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No run history found at %s\n", dbPath)
		return nil
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		return showRun(ctx, out, store, runID)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", limit)
	}
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	printRuns(out, runs)
	return nil
}

// printRuns formats the run listing
func printRuns(w io.Writer, runs []*history.Run) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "=== Recorded runs (%d) ===\n\n", len(runs))

	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  ", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		green.Fprintf(w, "%d ok", run.Succeeded)
		fmt.Fprint(w, " / ")
		if run.Failed > 0 {
			red.Fprintf(w, "%d failed", run.Failed)
		} else {
			fmt.Fprintf(w, "%d failed", run.Failed)
		}
		fmt.Fprintf(w, "  %s  ", run.Duration.Round(time.Millisecond))
		gray.Fprintf(w, "%s\n", run.Root)
	}
}

// showRun prints one run's records in scan's output format and its failures
func showRun(ctx context.Context, w io.Writer, store *history.Store, runID string) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	records, err := store.GetRunResults(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run results: %w", err)
	}
	failures, err := store.GetRunFailures(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run failures: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "=== Run %s ===\n", run.ID)
	fmt.Fprintf(w, "Root: %s\n", run.Root)
	fmt.Fprintf(w, "Started: %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Discovered: %d  Processed: %d  Succeeded: %d  Failed: %d\n\n", run.Discovered, run.Processed, run.Succeeded, run.Failed)

	if err := output.Write(w, output.FormatCSV, records); err != nil {
		return err
	}

	if len(failures) > 0 {
		fmt.Fprintln(w)
		cyan.Fprintln(w, "Failures:")
		for _, f := range failures {
			fmt.Fprintf(w, "  %s (%s): ", f.Path, f.Stage)
			red.Fprintf(w, "%s\n", f.Message)
		}
	}
	return nil
}
