package aggregate

import "fmt"

// JoinResult lists the keys an inner join discarded.
type JoinResult struct {
	LeftOnly  []string
	RightOnly []string
}

// Dropped reports whether the join discarded any key.
func (r JoinResult) Dropped() bool { return len(r.LeftOnly) > 0 || len(r.RightOnly) > 0 }

// Join is the inner join of two frames on their index. Columns of right are
// appended to those of left and must not collide.
func Join(left, right *Frame) (*Frame, JoinResult, error) {
	var res JoinResult
	columns := left.Columns()
	for _, c := range right.columns {
		if _, dup := left.colPos[c]; dup {
			return nil, res, fmt.Errorf("%q: %w", c, ErrDuplicateColumn)
		}
		columns = append(columns, c)
	}

	rows := make(map[string][]float64, len(left.index))
	for i, k := range left.index {
		j, ok := right.rowPos[k]
		if !ok {
			res.LeftOnly = append(res.LeftOnly, k)
			continue
		}
		row := make([]float64, 0, len(columns))
		row = append(row, left.values[i]...)
		row = append(row, right.values[j]...)
		rows[k] = row
	}
	for _, k := range right.index {
		if _, ok := left.rowPos[k]; !ok {
			res.RightOnly = append(res.RightOnly, k)
		}
	}

	f, err := build(columns, rows)
	if err != nil {
		return nil, res, err
	}
	return f, res, nil
}
