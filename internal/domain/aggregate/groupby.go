package aggregate

import (
	"fmt"

	"github.com/okian/grantfeat/internal/domain/table"
)

// Selector extracts one value per row. ok is false for a missing value.
type Selector struct {
	Name  string
	Value func(r table.Row) (v float64, ok bool, err error)
}

// Numeric selects a numeric column under its own name.
func Numeric(column string) Selector {
	return NumericAs(column, column)
}

// NumericAs selects a numeric column under another name.
func NumericAs(name, column string) Selector {
	return Selector{
		Name:  name,
		Value: func(r table.Row) (float64, bool, error) { return r.Float(column) },
	}
}

// Categorizer assigns a row to a category label. ok is false when the row
// belongs to no category.
type Categorizer func(r table.Row) (label string, ok bool, err error)

// Category uses the trimmed cell as the label; missing cells belong to no
// category.
func Category(column string) Categorizer {
	return func(r table.Row) (string, bool, error) {
		v := table.Canonical(r.Get(column))
		return v, v != "", nil
	}
}

// CategoryWithMissing is Category with an explicit label for missing cells.
func CategoryWithMissing(column, missing string) Categorizer {
	return func(r table.Row) (string, bool, error) {
		v := table.Canonical(r.Get(column))
		if v == "" {
			return missing, true, nil
		}
		return v, true, nil
	}
}

// DummyName names the indicator column of label under prefix.
func DummyName(prefix, label string) string { return prefix + "_" + label }

// OneHot returns one 0/1 indicator selector per label observed in t, ordered
// with table.LessKey. Indicators are never missing.
func OneHot(t *table.Table, prefix string, cat Categorizer) ([]Selector, []string, error) {
	seen := map[string]struct{}{}
	var labels []string
	for i := 0; i < t.Len(); i++ {
		label, ok, err := cat(t.Row(i))
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		if _, dup := seen[label]; !dup {
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
	}
	table.SortKeys(labels)

	sels := make([]Selector, len(labels))
	for k, label := range labels {
		label := label
		sels[k] = Selector{
			Name: DummyName(prefix, label),
			Value: func(r table.Row) (float64, bool, error) {
				got, ok, err := cat(r)
				if err != nil {
					return 0, false, err
				}
				if ok && got == label {
					return 1, true, nil
				}
				return 0, true, nil
			},
		}
	}
	return sels, labels, nil
}

// GroupBy groups the rows of t by the key column and reduces every selector
// with collapse. The result holds one row per distinct key.
func GroupBy(t *table.Table, key string, selectors []Selector, collapse Collapse) (*Frame, error) {
	groups, order, err := group(t, key)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(selectors))
	for j, s := range selectors {
		columns[j] = s.Name
	}

	rows := make(map[string][]float64, len(order))
	for _, k := range order {
		row := make([]float64, len(selectors))
		for j, s := range selectors {
			vals, err := collect(t, groups[k], s)
			if err != nil {
				return nil, err
			}
			row[j] = collapse(vals)
		}
		rows[k] = row
	}
	return build(columns, rows)
}

// Weighted groups like GroupBy, collapses the weight with the same policy and
// multiplies every collapsed value by it. Every row must carry a weight.
func Weighted(t *table.Table, key string, selectors []Selector, weight Selector, collapse Collapse) (*Frame, error) {
	groups, order, err := group(t, key)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(selectors))
	for j, s := range selectors {
		columns[j] = s.Name
	}

	rows := make(map[string][]float64, len(order))
	for _, k := range order {
		ws := make([]float64, 0, len(groups[k]))
		for _, i := range groups[k] {
			w, ok, err := weight.Value(t.Row(i))
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("row %d key %q %s: %w", i, k, weight.Name, ErrMissingWeight)
			}
			ws = append(ws, w)
		}
		w := collapse(ws)

		row := make([]float64, len(selectors))
		for j, s := range selectors {
			vals, err := collect(t, groups[k], s)
			if err != nil {
				return nil, err
			}
			row[j] = collapse(vals) * w
		}
		rows[k] = row
	}
	return build(columns, rows)
}

func group(t *table.Table, key string) (map[string][]int, []string, error) {
	if !t.Has(key) {
		return nil, nil, fmt.Errorf("%q: %w", key, table.ErrUnknownColumn)
	}
	groups := make(map[string][]int)
	var order []string
	for i := 0; i < t.Len(); i++ {
		k := t.Row(i).Get(key)
		if table.IsMissing(k) {
			return nil, nil, fmt.Errorf("row %d: %w", i, ErrMissingKey)
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	return groups, order, nil
}

func collect(t *table.Table, rows []int, s Selector) ([]float64, error) {
	vals := make([]float64, 0, len(rows))
	for _, i := range rows {
		v, ok, err := s.Value(t.Row(i))
		if err != nil {
			return nil, err
		}
		if ok {
			vals = append(vals, v)
		}
	}
	return vals, nil
}
