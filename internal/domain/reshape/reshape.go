// Package reshape turns the wide application table into a long table with
// one row per distinct (application, researcher) pair.
package reshape

import (
	"sort"

	"github.com/okian/grantfeat/internal/domain/dedupe"
	"github.com/okian/grantfeat/internal/domain/schema"
	"github.com/okian/grantfeat/internal/domain/table"
)

// Stats describes one Unpivot run.
type Stats struct {
	Blocks      int
	RawRows     int
	Stacked     int
	Duplicates  int
	Researchers int
}

// Unpivot stacks every researcher block of raw under the shared columns,
// renamed to the first block's names, drops exact duplicates (the padding of
// teams smaller than the block count) and sorts by application ID.
//
// Missing cells are normalised to "" so that every spelling of an absent
// value collapses to the same row.
func Unpivot(raw *table.Table, layout schema.Layout) (*table.Table, Stats, error) {
	blocks, err := layout.Validate(raw.Columns())
	if err != nil {
		return nil, Stats{}, err
	}

	shared, width := layout.SharedWidth(), layout.BlockWidth()
	records := raw.Records()
	stats := Stats{Blocks: blocks, RawRows: len(records), Stacked: len(records) * blocks}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(records)))
	rows := make([][]string, 0, len(records))
	for k := 0; k < blocks; k++ {
		lo := shared + k*width
		for _, rec := range records {
			row := make([]string, 0, shared+width)
			row = append(row, rec[:shared]...)
			row = append(row, rec[lo:lo+width]...)
			for j := range row {
				row[j] = table.Canonical(row[j])
			}
			if seen.SeenAndRecord(dedupe.Key(row)) {
				stats.Duplicates++
				continue
			}
			rows = append(rows, row)
		}
	}

	key := 0
	for i, f := range layout.Shared {
		if f.Role == schema.Key {
			key = i
			break
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return table.LessKey(rows[a][key], rows[b][key]) })

	out, err := table.New(layout.ResearcherHeader(), rows)
	if err != nil {
		return nil, Stats{}, err
	}
	stats.Researchers = out.Len()
	return out, stats, nil
}
