// Package aggregate reduces researcher-level rows to one numeric row per
// application. A Frame is the keyed result every aggregate produces and every
// join consumes.
package aggregate

import (
	"fmt"
	"math"

	"github.com/okian/grantfeat/internal/domain/table"
)

// Frame is a numeric table indexed by a unique key. NaN marks a missing value.
type Frame struct {
	index   []string
	rowPos  map[string]int
	columns []string
	colPos  map[string]int
	values  [][]float64
}

// NewFrame builds a Frame sorted by key. Inputs are copied.
func NewFrame(index, columns []string, values [][]float64) (*Frame, error) {
	if len(values) != len(index) {
		return nil, fmt.Errorf("%d rows for %d keys: %w", len(values), len(index), ErrShape)
	}
	rows := make(map[string][]float64, len(index))
	for i, k := range index {
		if table.IsMissing(k) {
			return nil, fmt.Errorf("row %d: %w", i, ErrMissingKey)
		}
		if _, dup := rows[k]; dup {
			return nil, fmt.Errorf("%q: %w", k, ErrDuplicateKey)
		}
		if len(values[i]) != len(columns) {
			return nil, fmt.Errorf("key %q has %d values for %d columns: %w", k, len(values[i]), len(columns), ErrShape)
		}
		rows[k] = values[i]
	}
	return build(columns, rows)
}

// build assembles a frame from owned rows; keys are sorted with table.LessKey.
func build(columns []string, rows map[string][]float64) (*Frame, error) {
	f := &Frame{
		columns: append([]string(nil), columns...),
		colPos:  make(map[string]int, len(columns)),
		rowPos:  make(map[string]int, len(rows)),
	}
	for j, c := range columns {
		if _, dup := f.colPos[c]; dup {
			return nil, fmt.Errorf("%q: %w", c, ErrDuplicateColumn)
		}
		f.colPos[c] = j
	}
	f.index = make([]string, 0, len(rows))
	for k := range rows {
		f.index = append(f.index, k)
	}
	table.SortKeys(f.index)
	f.values = make([][]float64, len(f.index))
	for i, k := range f.index {
		f.rowPos[k] = i
		f.values[i] = append([]float64(nil), rows[k]...)
	}
	return f, nil
}

// Index returns the sorted keys.
func (f *Frame) Index() []string { return append([]string(nil), f.index...) }

// Columns returns the column names.
func (f *Frame) Columns() []string { return append([]string(nil), f.columns...) }

// Len returns the number of keys.
func (f *Frame) Len() int { return len(f.index) }

// Has reports whether key is indexed.
func (f *Frame) Has(key string) bool {
	_, ok := f.rowPos[key]
	return ok
}

// Value returns the cell at (key, column). ok is false when either is unknown.
func (f *Frame) Value(key, column string) (float64, bool) {
	i, ok := f.rowPos[key]
	if !ok {
		return math.NaN(), false
	}
	j, ok := f.colPos[column]
	if !ok {
		return math.NaN(), false
	}
	return f.values[i][j], true
}

// Row returns a copy of the values held for key.
func (f *Frame) Row(key string) ([]float64, bool) {
	i, ok := f.rowPos[key]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), f.values[i]...), true
}

// Column returns a copy of a column in index order.
func (f *Frame) Column(name string) ([]float64, bool) {
	j, ok := f.colPos[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(f.index))
	for i := range f.index {
		out[i] = f.values[i][j]
	}
	return out, true
}

// Select projects the frame onto columns, in that order. Unknown columns are
// an error.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	pos := make([]int, len(columns))
	for k, c := range columns {
		j, ok := f.colPos[c]
		if !ok {
			return nil, fmt.Errorf("%q: %w", c, table.ErrUnknownColumn)
		}
		pos[k] = j
	}
	rows := make(map[string][]float64, len(f.index))
	for i, key := range f.index {
		row := make([]float64, len(pos))
		for k, j := range pos {
			row[k] = f.values[i][j]
		}
		rows[key] = row
	}
	return build(columns, rows)
}

// Map returns a copy of the frame with fn applied to every cell of column.
func (f *Frame) Map(column string, fn func(key string, v float64) float64) (*Frame, error) {
	j, ok := f.colPos[column]
	if !ok {
		return nil, fmt.Errorf("%q: %w", column, table.ErrUnknownColumn)
	}
	rows := make(map[string][]float64, len(f.index))
	for i, key := range f.index {
		row := append([]float64(nil), f.values[i]...)
		row[j] = fn(key, row[j])
		rows[key] = row
	}
	return build(f.columns, rows)
}

// AddFill sums two frames over the union of their keys and columns. A cell
// absent from one side, or NaN, counts as zero. A nil frame is the identity.
func AddFill(a, b *Frame) (*Frame, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	columns := a.Columns()
	for _, c := range b.columns {
		if _, ok := a.colPos[c]; !ok {
			columns = append(columns, c)
		}
	}
	colIdx := make(map[string]int, len(columns))
	for j, c := range columns {
		colIdx[c] = j
	}
	rows := make(map[string][]float64, len(a.index)+len(b.index))
	add := func(f *Frame) {
		for i, key := range f.index {
			row, ok := rows[key]
			if !ok {
				row = make([]float64, len(columns))
				rows[key] = row
			}
			for j, c := range f.columns {
				v := f.values[i][j]
				if math.IsNaN(v) {
					continue
				}
				row[colIdx[c]] += v
			}
		}
	}
	add(a)
	add(b)
	return build(columns, rows)
}

