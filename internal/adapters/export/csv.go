package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/okian/grantfeat/internal/domain/model"
)

type csvWriter struct{}

func (csvWriter) Format() string { return FormatCSV }

// Write renders the table under its flat header, one row per application.
func (csvWriter) Write(w io.Writer, ft *model.FeatureTable) error {
	if ft.Len() == 0 {
		// gota refuses a frame without rows.
		cw := csv.NewWriter(w)
		if err := cw.Write(ft.Header()); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		return nil
	}
	records := append([][]string{ft.Header()}, ft.Records()...)
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, df.Err)
	}
	if err := df.WriteCSV(w, dataframe.WriteHeader(true)); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
