package logger

import (
	"time"

	"github.com/harrison/minrow/internal/models"
)

// Logger is the set of events every logger in this package handles.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogStageStart(stage string, total int)
	LogStageProgress(stage string, done, total int)
	LogStageComplete(stage string, succeeded, failed int, duration time.Duration)
	LogFileFailure(failure models.FileFailure)
	LogSummary(summary *models.RunSummary)
}

// MultiLogger implements Logger by delegating to multiple loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger returns a logger forwarding to every non-nil logger given.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

func (ml *MultiLogger) LogTrace(message string) {
	for _, l := range ml.loggers {
		l.LogTrace(message)
	}
}

func (ml *MultiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *MultiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

func (ml *MultiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *MultiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

// LogStageStart forwards to all loggers
func (ml *MultiLogger) LogStageStart(stage string, total int) {
	for _, l := range ml.loggers {
		l.LogStageStart(stage, total)
	}
}

// LogStageProgress forwards to all loggers
func (ml *MultiLogger) LogStageProgress(stage string, done, total int) {
	for _, l := range ml.loggers {
		l.LogStageProgress(stage, done, total)
	}
}

// LogStageComplete forwards to all loggers
func (ml *MultiLogger) LogStageComplete(stage string, succeeded, failed int, duration time.Duration) {
	for _, l := range ml.loggers {
		l.LogStageComplete(stage, succeeded, failed, duration)
	}
}

// LogFileFailure forwards to all loggers
func (ml *MultiLogger) LogFileFailure(failure models.FileFailure) {
	for _, l := range ml.loggers {
		l.LogFileFailure(failure)
	}
}

// LogSummary forwards to all loggers
func (ml *MultiLogger) LogSummary(summary *models.RunSummary) {
	for _, l := range ml.loggers {
		l.LogSummary(summary)
	}
}
