// Package reduce selects the row holding the minimum value of a column.
package reduce

import "github.com/harrison/minrow/internal/models"

// DefaultColumn is the 0-based index of the column reduced when none is
// configured (column_3).
const DefaultColumn = 2

// FindMinRow returns the 0-based index and the full row holding the minimum
// value of column. Ties resolve to the lowest row index. Null and NaN cells
// are never selected.
func FindMinRow(t *models.Table, column int) (int, models.Row, error) {
	if t.Len() == 0 {
		return 0, nil, models.ErrEmptyTable
	}
	if column < 0 || column >= t.Width() {
		return 0, nil, &models.ColumnNotFoundError{Column: column, Width: t.Width()}
	}
	if kind := t.Columns[column].Kind; !kind.Numeric() {
		return 0, nil, &models.ColumnTypeError{Column: column, Kind: kind}
	}

	best := -1
	for i, row := range t.Rows {
		if _, ok := row[column].Number(); !ok {
			continue
		}
		// Strict comparison keeps the first occurrence on ties
		if best < 0 || less(row[column], t.Rows[best][column]) {
			best = i
		}
	}

	if best < 0 {
		return 0, nil, models.ErrNoComparableValues
	}

	row := make(models.Row, len(t.Rows[best]))
	copy(row, t.Rows[best])
	return best, row, nil
}

// Record builds the summary record for a reduced table. rowIndex is 0-based.
func Record(identifier string, rowIndex int, row models.Row) models.ResultRecord {
	return models.ResultRecord{
		Identifier: identifier,
		RowIndex:   rowIndex + 1,
		Values:     row.Strings(),
	}
}

// less orders two comparable cells. Int cells compare exactly so values
// beyond float64 precision keep their order.
func less(a, b models.Cell) bool {
	if a.Kind == models.KindInt && b.Kind == models.KindInt {
		return a.Int < b.Int
	}
	av, _ := a.Number()
	bv, _ := b.Number()
	return av < bv
}
