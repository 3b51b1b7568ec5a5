// Package logger provides logging implementations for minrow runs.
//
// The logger package offers leveled message logging plus structured events
// for pipeline stages, dropped files and the run summary. Implementations are
// thread-safe and support various output destinations (console, file, etc.).
// Console output goes to stderr so stdout carries only result records.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/minrow/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps for tracking execution flow.
// It supports log level filtering to control message verbosity.
// Color output is enabled when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// logLevel determines the minimum log level for messages to be output.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// NO_COLOR disables color regardless of the terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, colorizeLevel(level), message)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

// colorizeLevel returns the level label wrapped in its color.
func colorizeLevel(level string) string {
	var c *color.Color
	switch level {
	case "TRACE":
		c = color.New(color.FgHiBlack)
	case "DEBUG":
		c = color.New(color.FgCyan)
	case "INFO":
		c = color.New(color.FgBlue)
	case "WARN":
		c = color.New(color.FgYellow)
	case "ERROR":
		c = color.New(color.FgRed)
	default:
		return level
	}
	// stdout is usually redirected, which makes fatih/color disable itself
	// globally; stderr was already checked for a terminal.
	c.EnableColor()
	return c.Sprint(level)
}

// LogStageStart logs the start of a pipeline stage at INFO level.
// Format: "[HH:MM:SS] [INFO] Starting <stage>: <n> file(s)"
func (cl *ConsoleLogger) LogStageStart(stage string, total int) {
	cl.LogInfo(fmt.Sprintf("Starting %s: %d file(s)", stage, total))
}

// LogStageProgress logs per-file stage progress at TRACE level with a progress bar.
func (cl *ConsoleLogger) LogStageProgress(stage string, done, total int) {
	if cl.writer == nil || !cl.shouldLog("trace") {
		return
	}
	pb := NewProgressBar(total, 20, cl.colorOutput)
	pb.SetPrefix(stage + " ")
	pb.Update(done)
	cl.LogTrace(pb.Render())
}

// LogStageComplete logs the completion of a pipeline stage at INFO level.
// Format: "[HH:MM:SS] [INFO] <stage> complete: <ok> ok, <failed> failed (<duration>)"
func (cl *ConsoleLogger) LogStageComplete(stage string, succeeded, failed int, duration time.Duration) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}
	failedText := fmt.Sprintf("%d failed", failed)
	completeText := "complete"
	if cl.colorOutput {
		completeText = enabled(color.New(color.FgGreen)).Sprint(completeText)
		if failed > 0 {
			failedText = enabled(color.New(color.FgRed)).Sprint(failedText)
		}
	}
	cl.LogInfo(fmt.Sprintf("%s %s: %d ok, %s (%s)", stage, completeText, succeeded, failedText, formatDuration(duration)))
}

// LogFileFailure logs a dropped file at ERROR level with its path and cause.
func (cl *ConsoleLogger) LogFileFailure(failure models.FileFailure) {
	cl.LogError(fmt.Sprintf("%s failed for %s: %v", failure.Stage, failure.Path, failure.Err))
}

// LogSummary logs the run summary with completion statistics at INFO level.
func (cl *ConsoleLogger) LogSummary(summary *models.RunSummary) {
	if cl.writer == nil || summary == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	header := "=== Run Summary ==="
	succeeded := fmt.Sprintf("Succeeded: %d", summary.Succeeded())
	failed := fmt.Sprintf("Failed: %d", summary.Failed())
	if cl.colorOutput {
		header = enabled(color.New(color.Bold)).Sprint(header)
		succeeded = enabled(color.New(color.FgGreen)).Sprint(succeeded)
		if summary.Failed() > 0 {
			failed = enabled(color.New(color.FgRed)).Sprint(failed)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Discovered: %d\n", ts, summary.Discovered)
	fmt.Fprintf(&b, "[%s] Processed: %d\n", ts, summary.Processed)
	fmt.Fprintf(&b, "[%s] %s\n", ts, succeeded)
	fmt.Fprintf(&b, "[%s] %s\n", ts, failed)
	fmt.Fprintf(&b, "[%s] Elapsed time: %s\n", ts, summary.Duration.Round(time.Millisecond))
	io.WriteString(cl.writer, b.String())
}

func enabled(c *color.Color) *color.Color {
	c.EnableColor()
	return c
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "250ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogStageStart(string, int) {}
func (n *NoOpLogger) LogStageProgress(string, int, int) {}
func (n *NoOpLogger) LogStageComplete(string, int, int, time.Duration) {}
func (n *NoOpLogger) LogFileFailure(models.FileFailure) {}
func (n *NoOpLogger) LogSummary(*models.RunSummary) {}
