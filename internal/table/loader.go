// Package table loads header-less delimited files into typed in-memory tables.
//
// The column count is fixed by the first record. Column kinds are inferred
// from a leading window of records: a column is an int column when every
// non-empty cell in the window parses as a 64-bit integer, a float column when
// every non-empty cell parses as a float, and a text column otherwise. Records
// after the window must still parse for their column's numeric kind.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/harrison/minrow/internal/models"
)

// DefaultInferRows is the number of leading records used for kind inference.
const DefaultInferRows = 100

// Options controls how a delimited file is parsed.
type Options struct {
	// Delimiter separates fields. Zero means ','.
	Delimiter rune
	// InferRows is the number of leading records used to infer column
	// kinds. Zero means every record.
	InferRows int
	// TrimSpace trims surrounding whitespace from each field before parsing.
	TrimSpace bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Delimiter: ',',
		InferRows: DefaultInferRows,
		TrimSpace: true,
	}
}

// Load parses the delimited file at path into a Table.
// Failures are reported as *models.ParseError carrying the path.
func Load(path string, opts Options) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.ParseError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		var pe *models.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, &models.ParseError{Path: path, Err: err}
	}
	t.Source = path
	return t, nil
}

// Read parses delimited records from r into a Table.
func Read(r io.Reader, opts Options) (*models.Table, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	// Zero makes the reader take the field count from the first record and
	// reject any later record with a different count.
	reader.FieldsPerRecord = 0
	reader.TrimLeadingSpace = opts.TrimSpace

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &models.ParseError{Line: csvErr.StartLine, Err: csvErr.Err}
			}
			return nil, &models.ParseError{Err: err}
		}
		if opts.TrimSpace {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return &models.Table{}, nil
	}

	width := len(records[0])
	window := len(records)
	if opts.InferRows > 0 && opts.InferRows < window {
		window = opts.InferRows
	}

	columns := make([]models.Column, width)
	for c := 0; c < width; c++ {
		columns[c] = models.Column{
			Name: models.ColumnName(c),
			Kind: inferKind(records[:window], c),
		}
	}

	rows := make([]models.Row, len(records))
	for i, record := range records {
		row := make(models.Row, width)
		for c, field := range record {
			cell, err := parseCell(field, columns[c].Kind)
			if err != nil {
				return nil, &models.ParseError{
					Line: i + 1,
					Err:  fmt.Errorf("%s: %w", columns[c].Name, err),
				}
			}
			row[c] = cell
		}
		rows[i] = row
	}

	return &models.Table{Columns: columns, Rows: rows}, nil
}

// inferKind picks the narrowest kind that every non-empty cell of column c fits.
func inferKind(records [][]string, c int) models.CellKind {
	kind := models.KindInt
	seen := false

	for _, record := range records {
		field := record[c]
		if field == "" {
			continue
		}
		seen = true

		if kind == models.KindInt {
			if _, err := strconv.ParseInt(field, 10, 64); err == nil {
				continue
			}
			kind = models.KindFloat
		}
		if _, err := strconv.ParseFloat(field, 64); err != nil {
			return models.KindText
		}
	}

	if !seen {
		return models.KindText
	}
	return kind
}

// parseCell converts a field to a cell of the given column kind.
func parseCell(field string, kind models.CellKind) (models.Cell, error) {
	if field == "" {
		return models.NullCell(), nil
	}

	switch kind {
	case models.KindInt:
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return models.Cell{}, fmt.Errorf("cannot parse %q as int", field)
		}
		return models.IntCell(v), nil
	case models.KindFloat:
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return models.Cell{}, fmt.Errorf("cannot parse %q as float", field)
		}
		return models.FloatCell(v), nil
	default:
		return models.TextCell(field), nil
	}
}
