package export

import (
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/okian/grantfeat/internal/domain/model"
)

const commentKey = "comment"

type arrowWriter struct{}

func (arrowWriter) Format() string { return FormatArrow }

// Schema is the Arrow schema of ft: identifying columns as strings, every
// feature as a nullable float64.
func Schema(ft *model.FeatureTable) *arrow.Schema {
	fields := []arrow.Field{
		{Name: model.ColApplicationID, Type: arrow.BinaryTypes.String,
			Metadata: arrow.NewMetadata([]string{commentKey}, []string{"grant application identifier"})},
		{Name: model.ColStatus, Type: arrow.BinaryTypes.String, Nullable: true,
			Metadata: arrow.NewMetadata([]string{commentKey}, []string{"grant outcome; null when unknown"})},
		{Name: model.ColStartDate, Type: arrow.BinaryTypes.String,
			Metadata: arrow.NewMetadata([]string{commentKey}, []string{"start date as given, d/m/yy"})},
	}
	for _, c := range ft.NumericColumns() {
		fields = append(fields, arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// Write encodes ft as a single record batch in the Arrow IPC file format.
// NaN features and empty labels are written as nulls.
func (arrowWriter) Write(w io.Writer, ft *model.FeatureTable) error {
	mem := memory.NewGoAllocator()
	schema := Schema(ft)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	status := b.Field(1).(*array.StringBuilder)
	dates := b.Field(2).(*array.StringBuilder)
	matrix := ft.Matrix()
	for i, r := range ft.Rows {
		ids.Append(r.ApplicationID)
		if r.Status == "" {
			status.AppendNull()
		} else {
			status.Append(r.Status)
		}
		dates.Append(r.StartDate)
		for j, v := range matrix[i] {
			fb := b.Field(3 + j).(*array.Float64Builder)
			if math.IsNaN(v) {
				fb.AppendNull()
			} else {
				fb.Append(v)
			}
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
