package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/minrow/internal/models"
)

// Compile-time interface checks
var (
	_ Logger = (*ConsoleLogger)(nil)
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*MultiLogger)(nil)
	_ Logger = (*NoOpLogger)(nil)
)

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		wantLog map[string]bool
	}{
		{level: "trace", wantLog: map[string]bool{"TRACE": true, "DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}},
		{level: "debug", wantLog: map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}},
		{level: "info", wantLog: map[string]bool{"INFO": true, "WARN": true, "ERROR": true}},
		{level: "warn", wantLog: map[string]bool{"WARN": true, "ERROR": true}},
		{level: "error", wantLog: map[string]bool{"ERROR": true}},
		{level: "bogus", wantLog: map[string]bool{"INFO": true, "WARN": true, "ERROR": true}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.level)

			cl.LogTrace("trace message")
			cl.LogDebug("debug message")
			cl.LogInfo("info message")
			cl.LogWarn("warn message")
			cl.LogError("error message")

			output := buf.String()
			for _, level := range []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"} {
				got := strings.Contains(output, "["+level+"]")
				if got != tt.wantLog[level] {
					t.Errorf("level %s logged = %v, want %v\noutput:\n%s", level, got, tt.wantLog[level], output)
				}
			}
		})
	}
}

func TestConsoleLoggerNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.LogError("boom")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("non-terminal output should not contain ANSI codes: %q", buf.String())
	}
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "trace")
	cl.LogInfo("dropped")
	cl.LogStageComplete("load", 1, 0, time.Second)
	cl.LogSummary(&models.RunSummary{})
}

func TestConsoleLoggerStageEvents(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogStageStart("load", 3)
	cl.LogStageComplete("load", 2, 1, 1500*time.Millisecond)
	cl.LogFileFailure(models.FileFailure{Path: "/data/bad.csv", Stage: models.StageLoad, Err: errors.New("bad row")})

	output := buf.String()
	for _, want := range []string{
		"Starting load: 3 file(s)",
		"load complete: 2 ok, 1 failed (1s)",
		"[ERROR] load failed for /data/bad.csv: bad row",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestConsoleLoggerProgressOnlyAtTrace(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleLogger(&buf, "debug").LogStageProgress("reduce", 1, 2)
	if buf.Len() != 0 {
		t.Errorf("progress logged at debug level: %q", buf.String())
	}

	NewConsoleLogger(&buf, "trace").LogStageProgress("reduce", 1, 2)
	if !strings.Contains(buf.String(), "reduce [") || !strings.Contains(buf.String(), "1/2 (50%)") {
		t.Errorf("progress output = %q", buf.String())
	}
}

func TestConsoleLoggerSummary(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogSummary(&models.RunSummary{
		Discovered: 4,
		Processed:  3,
		Records:    []models.ResultRecord{{Identifier: "a"}, {Identifier: "b"}},
		Failures:   []models.FileFailure{{Path: "c.csv"}},
		Duration:   42 * time.Millisecond,
	})

	output := buf.String()
	for _, want := range []string{"=== Run Summary ===", "Discovered: 4", "Processed: 3", "Succeeded: 2", "Failed: 1", "Elapsed time: 42ms"} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q:\n%s", want, output)
		}
	}
}

func TestFileLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	fl, err := NewFileLogger(logDir, "debug")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	fl.LogTrace("hidden trace")
	fl.LogDebug("visible debug")
	fl.LogStageComplete("reduce", 5, 0, 250*time.Millisecond)
	fl.LogFileFailure(models.FileFailure{Path: "x.csv", Stage: models.StageReduce, Err: errors.New("no column")})
	fl.LogSummary(&models.RunSummary{RunID: "run-1", Records: []models.ResultRecord{{}}, Failures: []models.FileFailure{{}}})

	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(fl.RunFile())
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	content := string(data)

	if strings.Contains(content, "hidden trace") {
		t.Error("trace message written at debug level")
	}
	for _, want := range []string{
		"=== minrow Run Log ===",
		"[DEBUG] visible debug",
		"reduce complete: 5 ok, 0 failed (0.250s)",
		"[ERROR] reduce failed for x.csv: no column",
		"Run ID:       run-1",
		"Status:       PARTIAL",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("run log missing %q:\n%s", want, content)
		}
	}

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("latest.log symlink missing: %v", err)
	}
	if target != filepath.Base(fl.RunFile()) {
		t.Errorf("latest.log -> %q, want %q", target, filepath.Base(fl.RunFile()))
	}
}

func TestFileLoggerCloseTwice(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	// Writes after close are dropped
	fl.LogInfo("after close")
}

type recordingLogger struct {
	NoOpLogger
	infos    []string
	failures int
}

func (r *recordingLogger) LogInfo(message string) { r.infos = append(r.infos, message) }
func (r *recordingLogger) LogFileFailure(f models.FileFailure) { r.failures++ }

func TestMultiLogger(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	ml := NewMultiLogger(a, nil, b)

	ml.LogInfo("hello")
	ml.LogFileFailure(models.FileFailure{})

	for i, r := range []*recordingLogger{a, b} {
		if len(r.infos) != 1 || r.infos[0] != "hello" {
			t.Errorf("logger %d infos = %v", i, r.infos)
		}
		if r.failures != 1 {
			t.Errorf("logger %d failures = %d, want 1", i, r.failures)
		}
	}
}

func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
	}{
		{current: 0, total: 4, want: "[          ] 0/4 (0%)"},
		{current: 2, total: 4, want: "[=====     ] 2/4 (50%)"},
		{current: 4, total: 4, want: "[==========] 4/4 (100%)"},
		{current: 9, total: 4, want: "[==========] 9/4 (100%)"},
		{current: 0, total: 0, want: "[          ] 0/0 (0%)"},
	}

	for _, tt := range tests {
		pb := NewProgressBar(tt.total, 10, false)
		pb.Update(tt.current)
		if got := pb.Render(); got != tt.want {
			t.Errorf("Render(%d/%d) = %q, want %q", tt.current, tt.total, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		250 * time.Millisecond: "250ms",
		5 * time.Second:        "5s",
		90 * time.Second:       "1m30s",
		2 * time.Minute:        "2m",
		135 * time.Minute:      "2h15m",
		time.Hour:              "1h",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
