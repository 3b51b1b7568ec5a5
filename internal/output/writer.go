// Package output serializes result records as delimited text.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/minrow/internal/models"
)

// Format selects how a record's row values are laid out.
type Format string

const (
	// FormatCSV writes each row value as its own field.
	FormatCSV Format = "csv"
	// FormatJoined writes the row values space-joined into a single field.
	FormatJoined Format = "joined"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatJoined:
		return FormatJoined, nil
	default:
		return "", fmt.Errorf("invalid output format %q, must be one of: csv, joined", s)
	}
}

// Writer emits one delimited line per record with no header.
type Writer struct {
	csv    *csv.Writer
	format Format
}

// NewWriter creates a Writer on sink.
func NewWriter(sink io.Writer, format Format) *Writer {
	if format == "" {
		format = FormatCSV
	}
	return &Writer{
		csv:    csv.NewWriter(sink),
		format: format,
	}
}

// Write emits records in the order given and flushes the sink. Lines
// already flushed stay on the sink when a later write fails.
func (w *Writer) Write(records []models.ResultRecord) error {
	for _, rec := range records {
		if err := w.csv.Write(w.fields(rec)); err != nil {
			return &models.IOError{Op: "write record", Path: rec.Identifier, Err: err}
		}
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return &models.IOError{Op: "flush output", Err: err}
	}
	return nil
}

func (w *Writer) fields(rec models.ResultRecord) []string {
	if w.format == FormatJoined {
		return []string{rec.Identifier, fmt.Sprint(rec.RowIndex), strings.Join(rec.Values, " ")}
	}
	return rec.Fields()
}

// Write is a convenience wrapper writing records to sink in the given format.
func Write(sink io.Writer, format Format, records []models.ResultRecord) error {
	return NewWriter(sink, format).Write(records)
}
