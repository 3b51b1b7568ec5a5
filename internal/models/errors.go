package models

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrEmptyTable is returned when a table has no rows to reduce.
var ErrEmptyTable = errors.New("table has no rows")

// ErrNoComparableValues is returned when the target column holds only nulls or NaN.
var ErrNoComparableValues = errors.New("column has no comparable values")

// IOError represents a filesystem or output sink failure.
type IOError struct {
	Op   string // Operation that failed (e.g. "stat", "write")
	Path string // Path involved, if any
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents malformed delimited content in one file.
type ParseError struct {
	Path string
	Line int // 1-based line of the offending record, 0 if unknown
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s (line %d): %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ColumnNotFoundError is returned when a table is narrower than the target column.
type ColumnNotFoundError struct {
	Column int // 0-based target column
	Width  int // Columns present in the table
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %s not found: table has %d column(s)", ColumnName(e.Column), e.Width)
}

// ColumnTypeError is returned when the target column cannot be ordered numerically.
type ColumnTypeError struct {
	Column int
	Kind   CellKind
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("column %s is %s, want a numeric column", ColumnName(e.Column), e.Kind)
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
