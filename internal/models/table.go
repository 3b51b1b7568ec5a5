package models

import (
	"fmt"
	"math"
	"strconv"
)

// CellKind identifies the concrete type held by a Cell.
type CellKind int

const (
	KindNull CellKind = iota
	KindInt
	KindFloat
	KindText
)

// String returns the lowercase name of the kind.
func (k CellKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Numeric reports whether values of this kind can be ordered numerically.
func (k CellKind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Cell is a single typed value inside a Table row.
type Cell struct {
	Kind  CellKind
	Int   int64
	Float float64
	Text  string
}

// NullCell returns an empty cell.
func NullCell() Cell { return Cell{Kind: KindNull} }

// IntCell returns a cell holding an integer.
func IntCell(v int64) Cell { return Cell{Kind: KindInt, Int: v} }

// FloatCell returns a cell holding a float.
func FloatCell(v float64) Cell { return Cell{Kind: KindFloat, Float: v} }

// TextCell returns a cell holding free text.
func TextCell(v string) Cell { return Cell{Kind: KindText, Text: v} }

// Number returns the cell as a float64 and whether it is comparable.
// Nulls, text and NaN are not comparable.
func (c Cell) Number() (float64, bool) {
	switch c.Kind {
	case KindInt:
		return float64(c.Int), true
	case KindFloat:
		if math.IsNaN(c.Float) {
			return 0, false
		}
		return c.Float, true
	default:
		return 0, false
	}
}

// String renders the cell value as text for output.
func (c Cell) String() string {
	switch c.Kind {
	case KindInt:
		return strconv.FormatInt(c.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(c.Float, 'f', -1, 64)
	case KindText:
		return c.Text
	default:
		return ""
	}
}

// Row is one ordered sequence of cells.
type Row []Cell

// Strings renders every cell of the row as text.
func (r Row) Strings() []string {
	values := make([]string, len(r))
	for i, cell := range r {
		values[i] = cell.String()
	}
	return values
}

// Column describes one table column. Names follow the column_N convention
// with N starting at 1.
type Column struct {
	Name string
	Kind CellKind
}

// ColumnName returns the conventional name of the column at a 0-based index.
func ColumnName(index int) string {
	return fmt.Sprintf("column_%d", index+1)
}

// Table is a header-less, fixed-width grid loaded from one delimited file.
type Table struct {
	Source  string
	Columns []Column
	Rows    []Row
}

// Width returns the number of columns.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
