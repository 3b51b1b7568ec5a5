// Package pipeline runs a scan end to end: discovery, parallel loading,
// parallel arg-min reduction and a single sequential write of the records.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/minrow/internal/config"
	"github.com/harrison/minrow/internal/discovery"
	"github.com/harrison/minrow/internal/logger"
	"github.com/harrison/minrow/internal/models"
	"github.com/harrison/minrow/internal/output"
	"github.com/harrison/minrow/internal/pool"
	"github.com/harrison/minrow/internal/reduce"
	"github.com/harrison/minrow/internal/table"
)

// Logger defines the interface for logging orchestrator progress and results.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
	LogStageStart(stage string, total int)
	LogStageProgress(stage string, done, total int)
	LogStageComplete(stage string, succeeded, failed int, duration time.Duration)
	LogFileFailure(failure models.FileFailure)
	LogSummary(summary *models.RunSummary)
}

// Recorder persists a finished run.
type Recorder interface {
	RecordRun(ctx context.Context, summary *models.RunSummary) error
}

// Reporter renders a finished run somewhere outside the result sink.
type Reporter interface {
	WriteReport(summary *models.RunSummary) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder records every completed run.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithReporter writes a report for every completed run.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithSignalHandling cancels the run on SIGINT/SIGTERM.
func WithSignalHandling() Option {
	return func(o *Orchestrator) {
		o.handleSignals = true
	}
}

// Orchestrator coordinates the stages of a scan and aggregates the results.
type Orchestrator struct {
	cfg           *config.Config
	logger        Logger
	recorder      Recorder
	reporter      Reporter
	handleSignals bool
}

// New creates an Orchestrator for cfg.
// The logger parameter is optional and can be nil.
func New(cfg *config.Config, log Logger, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	o := &Orchestrator{
		cfg:    cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// loaded is a table that survived the load stage, tagged with its input position.
type loaded struct {
	index int
	table *models.Table
}

// Run discovers files under root, reduces each one to its arg-min row and
// writes the records to sink in discovery order.
//
// With the skip policy a failing file is logged and left out; with the abort
// policy the first failure is returned as a *models.FileFailure and nothing
// is written. Setup and sink errors are always returned.
func (o *Orchestrator) Run(ctx context.Context, root string, sink io.Writer) (*models.RunSummary, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	format, err := output.ParseFormat(o.cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.handleSignals {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case <-sigChan:
				o.logger.LogWarn("Received interrupt signal, shutting down...")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	startTime := time.Now()
	summary := &models.RunSummary{
		RunID:     uuid.New().String(),
		Root:      root,
		StartedAt: startTime,
	}

	scan, err := discovery.Discover(root, models.DiscoveryFilter{
		Extension:   o.cfg.Extension,
		Prefix:      o.cfg.Prefix,
		PrefixDepth: o.cfg.PrefixDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	for _, skipped := range scan.Skipped {
		o.logger.LogDebug(fmt.Sprintf("Skipped during discovery: %v", skipped))
	}

	files := scan.Files
	summary.Discovered = len(files)
	if o.cfg.MaxFiles > 0 && len(files) > o.cfg.MaxFiles {
		files = files[:o.cfg.MaxFiles]
	}
	summary.Processed = len(files)
	o.logger.LogDebug(fmt.Sprintf("Discovered %d file(s) under %s, processing %d", summary.Discovered, root, summary.Processed))

	failures := make([]*models.FileFailure, len(files))

	tables, err := o.loadStage(ctx, files, failures)
	if err != nil {
		return o.finish(summary, startTime, failures), err
	}

	records, err := o.reduceStage(ctx, files, tables, failures)
	if err != nil {
		return o.finish(summary, startTime, failures), err
	}

	summary.Records = records
	if err := output.NewWriter(sink, format).Write(records); err != nil {
		return o.finish(summary, startTime, failures), fmt.Errorf("failed to write results: %w", err)
	}

	o.finish(summary, startTime, failures)
	o.runHooks(ctx, summary)
	o.logger.LogSummary(summary)

	return summary, nil
}

// loadStage parses every file with the worker pool. Tables come back in
// input order; failed slots are recorded in failures.
func (o *Orchestrator) loadStage(ctx context.Context, files []string, failures []*models.FileFailure) ([]loaded, error) {
	opts := table.Options{
		Delimiter: o.cfg.DelimiterRune(),
		InferRows: o.cfg.InferRows,
		TrimSpace: true,
	}

	stageStart := time.Now()
	o.logger.LogStageStart(models.StageLoad, len(files))

	outcomes := pool.Map(ctx, files, o.poolOptions(models.StageLoad), func(ctx context.Context, _ int, path string) (*models.Table, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return table.Load(path, opts)
	})

	if err := checkStage(ctx, o.logger, o.cfg.Strict(), models.StageLoad, outcomes, files, failures); err != nil {
		return nil, err
	}

	tables := make([]loaded, 0, len(files))
	for i, outcome := range outcomes {
		if outcome.Err == nil {
			tables = append(tables, loaded{index: i, table: outcome.Value})
		}
	}

	o.logger.LogStageComplete(models.StageLoad, len(tables), len(files)-len(tables), time.Since(stageStart))
	return tables, nil
}

// reduceStage selects the arg-min row of every loaded table and returns the
// records in input order.
func (o *Orchestrator) reduceStage(ctx context.Context, files []string, tables []loaded, failures []*models.FileFailure) ([]models.ResultRecord, error) {
	column := o.cfg.ColumnIndex()

	stageStart := time.Now()
	o.logger.LogStageStart(models.StageReduce, len(tables))

	outcomes := pool.Map(ctx, tables, o.poolOptions(models.StageReduce), func(ctx context.Context, _ int, item loaded) (models.ResultRecord, error) {
		if err := ctx.Err(); err != nil {
			return models.ResultRecord{}, err
		}
		idx, row, err := reduce.FindMinRow(item.table, column)
		if err != nil {
			return models.ResultRecord{}, err
		}
		path := files[item.index]
		record := reduce.Record(Identifier(path), idx, row)
		record.Path = path
		return record, nil
	})

	paths := make([]string, len(tables))
	slots := make([]*models.FileFailure, len(tables))
	for i, item := range tables {
		paths[i] = files[item.index]
	}
	err := checkStage(ctx, o.logger, o.cfg.Strict(), models.StageReduce, outcomes, paths, slots)
	for i, failure := range slots {
		if failure != nil {
			failures[tables[i].index] = failure
		}
	}
	if err != nil {
		return nil, err
	}

	records := make([]models.ResultRecord, 0, len(tables))
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			records = append(records, outcome.Value)
		}
	}

	o.logger.LogStageComplete(models.StageReduce, len(records), len(tables)-len(records), time.Since(stageStart))
	return records, nil
}

// checkStage applies the failure policy to a finished stage. Under the skip
// policy every failure is logged and recorded and nil is returned; under the
// abort policy the first failure in input order is returned.
func checkStage[R any](ctx context.Context, log Logger, strict bool, stage string, outcomes []pool.Outcome[R], paths []string, failures []*models.FileFailure) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s stage interrupted: %w", stage, err)
	}

	if strict {
		i, err := pool.FirstError(outcomes)
		if err == nil {
			return nil
		}
		failure := &models.FileFailure{Path: paths[i], Stage: stage, Err: err}
		failures[i] = failure
		log.LogFileFailure(*failure)
		return failure
	}

	for i, outcome := range outcomes {
		if outcome.Err == nil {
			continue
		}
		failure := &models.FileFailure{Path: paths[i], Stage: stage, Err: outcome.Err}
		failures[i] = failure
		log.LogFileFailure(*failure)
	}
	return nil
}

func (o *Orchestrator) poolOptions(stage string) pool.Options {
	return pool.Options{
		Workers:     o.cfg.Threads,
		StopOnError: o.cfg.Strict(),
		OnDone: func(done, total int) {
			o.logger.LogStageProgress(stage, done, total)
		},
	}
}

// finish stamps the duration and collects failures in input order.
func (o *Orchestrator) finish(summary *models.RunSummary, startTime time.Time, failures []*models.FileFailure) *models.RunSummary {
	summary.Failures = summary.Failures[:0]
	for _, failure := range failures {
		if failure != nil {
			summary.Failures = append(summary.Failures, *failure)
		}
	}
	summary.Duration = time.Since(startTime)
	return summary
}

// runHooks records and reports a completed run. Hook failures are logged
// and never change the result.
func (o *Orchestrator) runHooks(ctx context.Context, summary *models.RunSummary) {
	if o.recorder != nil {
		if err := o.recorder.RecordRun(ctx, summary); err != nil {
			o.logger.LogWarn(fmt.Sprintf("Failed to record run %s: %v", summary.RunID, err))
		}
	}
	if o.reporter != nil {
		if err := o.reporter.WriteReport(summary); err != nil {
			o.logger.LogWarn(fmt.Sprintf("Failed to write report: %v", err))
		}
	}
}

// Identifier returns the record identifier for path: its base name without
// the final extension.
func Identifier(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
