package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/harrison/minrow/internal/config"
	"github.com/harrison/minrow/internal/filelock"
	"github.com/harrison/minrow/internal/history"
	"github.com/harrison/minrow/internal/logger"
	"github.com/harrison/minrow/internal/pipeline"
	"github.com/harrison/minrow/internal/report"
	"github.com/spf13/cobra"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Reduce every matching file under root to its minimum row",
		Long: `Scan a directory for delimited files and print the minimum row of each.

Files are matched by extension and, optionally, by a name prefix on the
entries directly below root. Each file is parsed without a header, its
column kinds are inferred, and the row with the smallest value in the
target column (column 3 by default) is selected. Ties go to the first row.

Files that fail to parse or reduce are logged and skipped. With --strict
the first such failure aborts the run and nothing is written.

Configuration is loaded from .minrow/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  minrow scan ./data
  minrow scan ./data --prefix fit --threads 8
  minrow scan ./data --ext tsv --delimiter $'\t' --column 2
  minrow scan ./data --max-files 10 -dd
  minrow scan ./data --output results.csv --report report.html
  minrow scan ./data --history-db ~/.minrow/history.db`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .minrow/config.yaml)")
	cmd.Flags().IntP("threads", "t", 2, "Number of worker threads")
	cmd.Flags().IntP("max-files", "m", 0, "Maximum number of discovered files to process (0 = all)")
	cmd.Flags().StringP("prefix", "p", "", "Only search entries below root whose names start with this prefix")
	cmd.Flags().Int("prefix-depth", 1, "How many levels below root are searched for prefixed entries")
	cmd.Flags().String("ext", "csv", "File extension to match")
	cmd.Flags().Int("column", 3, "1-based column to minimize")
	cmd.Flags().String("delimiter", ",", "Field delimiter of input files")
	cmd.Flags().Int("infer-rows", 100, "Rows used to infer column types (0 = all)")
	cmd.Flags().String("format", "csv", "Output layout: csv or joined")
	cmd.Flags().Bool("strict", false, "Abort on the first file that fails")
	cmd.Flags().CountP("debug", "d", "Increase log verbosity (-d debug, -dd trace)")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().StringP("output", "o", "", "Write results to this file instead of stdout")
	cmd.Flags().String("history-db", "", "Record the run in this SQLite database")
	cmd.Flags().String("report", "", "Write a run report (.md or .html)")

	return cmd
}

// runScan implements the scan command logic
func runScan(cmd *cobra.Command, args []string) error {
	root := args[0]

	cfg, err := loadScanConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeLog, err := buildLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := []pipeline.Option{pipeline.WithSignalHandling()}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer store.Close()
		opts = append(opts, pipeline.WithRecorder(store))
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		opts = append(opts, pipeline.WithReporter(report.NewFileReporter(reportPath)))
	}

	var sink io.Writer = cmd.OutOrStdout()
	outputPath, _ := cmd.Flags().GetString("output")
	var pending *filelock.PendingFile
	if outputPath != "" {
		pending = filelock.NewPendingFile(outputPath)
		sink = pending
	}

	ctx := context.Background()
	summary, err := pipeline.New(cfg, log, opts...).Run(ctx, root, sink)
	if err != nil {
		return err
	}

	if pending != nil {
		if err := pending.Commit(ctx); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		log.LogInfo(fmt.Sprintf("Wrote %d record(s) to %s", summary.Succeeded(), outputPath))
	}

	return nil
}

// loadScanConfig loads the config file and applies the flags that were set.
func loadScanConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	var overrides config.FlagOverrides

	intFlag := func(name string) *int {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return &v
	}
	stringFlag := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}

	overrides.Threads = intFlag("threads")
	overrides.MaxFiles = intFlag("max-files")
	overrides.Prefix = stringFlag("prefix")
	overrides.PrefixDepth = intFlag("prefix-depth")
	overrides.Extension = stringFlag("ext")
	overrides.Column = intFlag("column")
	overrides.Delimiter = stringFlag("delimiter")
	overrides.InferRows = intFlag("infer-rows")
	overrides.OutputFormat = stringFlag("format")
	overrides.LogDir = stringFlag("log-dir")
	overrides.HistoryDB = stringFlag("history-db")

	if flags.Changed("strict") {
		strict, _ := flags.GetBool("strict")
		policy := config.PolicySkip
		if strict {
			policy = config.PolicyAbort
		}
		overrides.FailurePolicy = &policy
	}

	if flags.Changed("debug") {
		count, _ := flags.GetCount("debug")
		level := config.LogLevelForVerbosity(count)
		overrides.LogLevel = &level
	}

	cfg.MergeWithFlags(overrides)
	return cfg, nil
}

// buildLogger creates the console logger and, when a log directory is
// configured, a file logger alongside it.
func buildLogger(stderr io.Writer, cfg *config.Config) (logger.Logger, func(), error) {
	console := logger.NewConsoleLogger(stderr, cfg.LogLevel)
	if cfg.LogDir == "" {
		return console, func() {}, nil
	}

	fileLogger, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	console.LogDebug(fmt.Sprintf("Logging run to %s", fileLogger.RunFile()))

	return logger.NewMultiLogger(console, fileLogger), func() { fileLogger.Close() }, nil
}
