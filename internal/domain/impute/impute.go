// Package impute holds the missing-data policy of the feature pipeline: which
// fill rule applies to each nullable column, and the statistics behind the
// rules.
package impute

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/series"

	"github.com/okian/grantfeat/internal/domain/table"
)

// Present parses the non-missing cells of a numeric column.
func Present(cells []string) ([]float64, error) {
	out := make([]float64, 0, len(cells))
	for i, c := range cells {
		v, ok, err := table.ParseFloat(c)
		if err != nil {
			return nil, &table.CellError{Row: i, Value: c, Err: err}
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Mean is the arithmetic mean, NaN for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return series.Floats(values).Mean()
}

// Median is the middle value (mean of the two middle values for an even
// count), NaN for no values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return series.Floats(values).Median()
}

// Mode is the most frequent non-missing label. Ties go to the label that
// sorts first under table.LessKey. ok is false when every cell is missing.
func Mode(cells []string) (string, bool) {
	counts := map[string]int{}
	for _, c := range cells {
		if v := table.Canonical(c); v != "" {
			counts[v]++
		}
	}
	best, n := "", 0
	for v, c := range counts {
		if c > n || (c == n && table.LessKey(v, best)) {
			best, n = v, c
		}
	}
	return best, n > 0
}

// Fill replaces every missing cell of column with value. It returns the new
// table and the number of cells filled.
func Fill(t *table.Table, column, value string) (*table.Table, int, error) {
	if !t.Has(column) {
		return nil, 0, fmt.Errorf("%q: %w", column, table.ErrUnknownColumn)
	}
	filled := 0
	out, err := t.WithColumn(column, func(r table.Row) (string, error) {
		v := r.Get(column)
		if table.IsMissing(v) {
			filled++
			return value, nil
		}
		return v, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, filled, nil
}

// FillMean fills a numeric column with the mean of its present values. A
// column with no present value is filled with zero.
func FillMean(t *table.Table, column string) (*table.Table, int, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, 0, err
	}
	vals, err := Present(cells)
	if err != nil {
		return nil, 0, fmt.Errorf("column %q: %w", column, err)
	}
	m := Mean(vals)
	if math.IsNaN(m) {
		m = 0
	}
	return Fill(t, column, table.FormatFloat(m))
}

// FillMode fills a categorical column with its mode. A column with no present
// value is returned unchanged.
func FillMode(t *table.Table, column string) (*table.Table, int, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, 0, err
	}
	mode, ok := Mode(cells)
	if !ok {
		return t, 0, nil
	}
	return Fill(t, column, mode)
}
