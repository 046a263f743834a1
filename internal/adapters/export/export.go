// Package export writes the feature table as CSV or as an Arrow IPC file.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/grantfeat/internal/domain/model"
)

// Output formats.
const (
	FormatCSV   = "csv"
	FormatArrow = "arrow"
)

// Writer encodes a feature table.
type Writer interface {
	Write(w io.Writer, ft *model.FeatureTable) error
	Format() string
}

// New returns the writer of format.
func New(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return csvWriter{}, nil
	case FormatArrow:
		return arrowWriter{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// WriteFile writes ft to path, replacing any existing file.
func WriteFile(ctx context.Context, path string, w Writer, ft *model.FeatureTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrWrite, err)
	}
	if err := w.Write(f, ft); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrWrite, err)
	}
	return nil
}
