// Package source loads the raw wide application table from delimited text.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/okian/grantfeat/internal/domain/table"
)

type loader struct {
	delimiter    rune
	lazyQuotes   bool
	keepTrailing bool
}

// Load reads the table at path.
func Load(ctx context.Context, path string, opts ...Option) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrRead, err)
	}
	defer f.Close()
	return Read(f, opts...)
}

// Read parses a delimited table with a header row. Every cell is kept as
// text. Trailing columns with no header and no value, as left by a trailing
// delimiter on every line, are dropped.
func Read(r io.Reader, opts ...Option) (*table.Table, error) {
	l := loader{delimiter: ','}
	for _, opt := range opts {
		opt(&l)
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithDelimiter(l.delimiter),
		dataframe.WithLazyQuotes(l.lazyQuotes),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, df.Err)
	}
	if df.Ncol() == 0 {
		return nil, ErrEmpty
	}

	records := df.Records()
	header, rows := records[0], records[1:]
	width := len(header)
	if !l.keepTrailing {
		for width > 0 && autoNamed.MatchString(header[width-1]) && emptyColumn(rows, width-1) {
			width--
		}
	}
	if width == 0 {
		return nil, ErrEmpty
	}
	for i := range rows {
		rows[i] = rows[i][:width]
	}
	return table.New(header[:width], rows)
}

// autoNamed matches the names gota gives to columns with a blank header.
var autoNamed = regexp.MustCompile(`^X[0-9]+$`) //nolint:gochecknoglobals // compiled once

func emptyColumn(rows [][]string, j int) bool {
	for _, r := range rows {
		if !table.IsMissing(r[j]) {
			return false
		}
	}
	return true
}
