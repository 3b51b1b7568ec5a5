// Package report renders a run summary as a Markdown or HTML document.
package report

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/minrow/internal/filelock"
	"github.com/harrison/minrow/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown builds the report for summary.
func Markdown(summary *models.RunSummary) string {
	var b strings.Builder

	b.WriteString("# minrow run report\n\n")

	fmt.Fprintf(&b, "- **Run ID:** `%s`\n", summary.RunID)
	fmt.Fprintf(&b, "- **Root:** `%s`\n", summary.Root)
	if !summary.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- **Started:** %s\n", summary.StartedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- **Duration:** %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- **Discovered:** %d\n", summary.Discovered)
	fmt.Fprintf(&b, "- **Processed:** %d\n", summary.Processed)
	fmt.Fprintf(&b, "- **Succeeded:** %d\n", summary.Succeeded())
	fmt.Fprintf(&b, "- **Failed:** %d\n", summary.Failed())

	b.WriteString("\n## Results\n\n")
	if len(summary.Records) == 0 {
		b.WriteString("No records.\n")
	} else {
		b.WriteString("| Identifier | Row | Values |\n")
		b.WriteString("|---|---:|---|\n")
		for _, r := range summary.Records {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", escapeCell(r.Identifier), r.RowIndex, escapeCell(strings.Join(r.Values, ", ")))
		}
	}

	if len(summary.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", f.Path, f.Stage, escapeInline(errText(f.Err)))
		}
	}

	return b.String()
}

// RenderHTML converts a Markdown report into a standalone HTML document.
func RenderHTML(markdown string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>minrow run report</title>\n</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

// Render returns the report for summary in the format implied by the
// extension of path: HTML for .html and .htm, Markdown otherwise.
func Render(summary *models.RunSummary, path string) ([]byte, error) {
	markdown := Markdown(summary)
	if IsHTML(path) {
		return RenderHTML(markdown)
	}
	return []byte(markdown), nil
}

// IsHTML reports whether path names an HTML report.
func IsHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// FileReporter writes the report of every run to a fixed path.
type FileReporter struct {
	path string
}

// NewFileReporter creates a reporter writing to path.
func NewFileReporter(path string) *FileReporter {
	return &FileReporter{path: path}
}

// WriteReport renders summary and atomically replaces the report file.
func (r *FileReporter) WriteReport(summary *models.RunSummary) error {
	if summary == nil {
		return fmt.Errorf("run summary cannot be nil")
	}
	data, err := Render(summary, r.path)
	if err != nil {
		return err
	}
	return filelock.WriteFile(context.Background(), r.path, data)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeInline(s), "|", "\\|")
}

func escapeInline(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "<", "&lt;")
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
