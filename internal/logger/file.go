package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/minrow/internal/models"
)

// FileLogger logs run events to a timestamped file in a log directory and
// maintains a latest.log symlink pointing to the most recent run.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir with the given log level.
// It creates the directory if it doesn't exist, opens a timestamped run
// log file, and creates/updates the latest.log symlink.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== minrow Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message))
}

// LogStageStart logs the start of a pipeline stage at INFO level.
func (fl *FileLogger) LogStageStart(stage string, total int) {
	fl.LogInfo(fmt.Sprintf("Starting %s: %d file(s)", stage, total))
}

// LogStageProgress is a no-op for the file logger.
// Progress bars are console-only.
func (fl *FileLogger) LogStageProgress(stage string, done, total int) {
}

// LogStageComplete logs the completion of a pipeline stage at INFO level.
func (fl *FileLogger) LogStageComplete(stage string, succeeded, failed int, duration time.Duration) {
	fl.LogInfo(fmt.Sprintf("%s complete: %d ok, %d failed (%.3fs)", stage, succeeded, failed, duration.Seconds()))
}

// LogFileFailure logs a dropped file at ERROR level.
func (fl *FileLogger) LogFileFailure(failure models.FileFailure) {
	fl.LogError(fmt.Sprintf("%s failed for %s: %v", failure.Stage, failure.Path, failure.Err))
}

// LogSummary logs the run summary with final statistics at INFO level.
func (fl *FileLogger) LogSummary(summary *models.RunSummary) {
	if summary == nil || !fl.shouldLog("info") {
		return
	}

	timestamp := time.Now().Format("15:04:05")

	status := "SUCCESS"
	if summary.Failed() > 0 {
		if summary.Succeeded() == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	message := fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Run ID:       %s\n"+
			"[%s] Root:         %s\n"+
			"[%s] Discovered:   %d\n"+
			"[%s] Processed:    %d\n"+
			"[%s] Succeeded:    %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Total time:   %.3fs\n"+
			"[%s] Status:       %s\n"+
			"[%s] Completed at: %s\n",
		timestamp,
		timestamp, summary.RunID,
		timestamp, summary.Root,
		timestamp, summary.Discovered,
		timestamp, summary.Processed,
		timestamp, summary.Succeeded(),
		timestamp, summary.Failed(),
		timestamp, summary.Duration.Seconds(),
		timestamp, status,
		timestamp, time.Now().Format(time.RFC3339),
	)

	fl.writeRunLog(message)
}

// Close flushes and closes the run log file.
// It should be called when the logger is no longer needed.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}
