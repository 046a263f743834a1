// Package table holds the immutable string table the pipeline stages pass
// between each other. Cells are raw strings; numeric interpretation happens
// at the point of use so that missing values survive until a fill rule is
// applied.
package table

import "fmt"

// Table is an ordered set of uniquely named columns over string rows.
// A Table is never mutated after construction.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds a Table from a header and rows. Both are copied.
func New(columns []string, rows [][]string) (*Table, error) {
	t, err := newHeader(columns)
	if err != nil {
		return nil, err
	}
	t.rows = make([][]string, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", i, len(r), len(columns), ErrRowWidth)
		}
		t.rows[i] = append([]string(nil), r...)
	}
	return t, nil
}

func newHeader(columns []string) (*Table, error) {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("%q: %w", c, ErrDuplicateColumn)
		}
		t.index[c] = i
	}
	return t, nil
}

// Columns returns a copy of the header.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns a read-only view of row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Records returns a deep copy of the rows.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownColumn)
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Select projects the table onto names, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	pos := make([]int, len(names))
	for k, n := range names {
		j, ok := t.index[n]
		if !ok {
			return nil, fmt.Errorf("%q: %w", n, ErrUnknownColumn)
		}
		pos[k] = j
	}
	out, err := newHeader(names)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]string, len(t.rows))
	for i, r := range t.rows {
		row := make([]string, len(pos))
		for k, j := range pos {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// Drop returns the table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if _, ok := drop[c]; !ok {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...) // keep is a subset of a valid header
	return out
}

// Rename returns the table with column i renamed to names[i].
func (t *Table) Rename(names []string) (*Table, error) {
	if len(names) != len(t.columns) {
		return nil, fmt.Errorf("rename with %d names over %d columns: %w", len(names), len(t.columns), ErrRowWidth)
	}
	out, err := newHeader(names)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows // rows are never mutated, sharing is safe
	return out, nil
}

// WithColumn returns a copy of the table where column name holds f(row).
// The column is appended when it does not exist yet.
func (t *Table) WithColumn(name string, f func(Row) (string, error)) (*Table, error) {
	cols := t.Columns()
	j, exists := t.index[name]
	if !exists {
		cols = append(cols, name)
		j = len(cols) - 1
	}
	out, err := newHeader(cols)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]string, len(t.rows))
	for i, r := range t.rows {
		v, err := f(t.Row(i))
		if err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		copy(row, r)
		row[j] = v
		out.rows[i] = row
	}
	return out, nil
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row position in its table.
func (r Row) Index() int { return r.i }

// Get returns the named cell, or "" for an unknown column.
func (r Row) Get(name string) string {
	j, ok := r.t.index[name]
	if !ok {
		return ""
	}
	return r.t.rows[r.i][j]
}

// Values returns a copy of the row cells.
func (r Row) Values() []string { return append([]string(nil), r.t.rows[r.i]...) }

// Float parses the named cell. ok is false when the cell is missing.
func (r Row) Float(name string) (v float64, ok bool, err error) {
	s := r.Get(name)
	v, ok, err = ParseFloat(s)
	if err != nil {
		return 0, false, &CellError{Row: r.i, Column: name, Value: s, Err: err}
	}
	return v, ok, nil
}
