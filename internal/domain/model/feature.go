// Package model contains domain models passed between layers.
package model

import (
	"math"

	"github.com/okian/grantfeat/internal/domain/schema"
	"github.com/okian/grantfeat/internal/domain/table"
)

// Output column names of the fixed features.
const (
	ColApplicationID      = schema.ApplicationID
	ColStatus             = schema.GrantStatus
	ColContractValueBand  = schema.ContractValueBand
	ColStartDate          = schema.StartDate
	ColStartTimestamp     = "Proc.Start.Date"
	ColOldestBirthYear    = schema.YearOfBirth
	ColAustralianRatio    = "% Australians"
	ColPapersAStar        = schema.PapersAStar
	ColPapersA            = schema.PapersA
	ColPapersB            = schema.PapersB
	ColPapersC            = schema.PapersC
	ColSuccessfulGrants   = schema.SuccessfulGrants
	ColUnsuccessfulGrants = schema.UnsuccessfulGrants
)

// ApplicationFeatureRow is the feature vector of one grant application.
type ApplicationFeatureRow struct {
	ApplicationID     string
	Status            string  // classification label; empty when unknown
	ContractValueBand float64 // code point of the band letter
	StartDate         string  // as given, d/m/yy
	StartTimestamp    float64 // Unix seconds, UTC
	OldestBirthYear   float64
	AustralianRatio   float64 // Australian-born over researchers with a known country

	PapersAStar        float64
	PapersA            float64
	PapersB            float64
	PapersC            float64
	SuccessfulGrants   float64
	UnsuccessfulGrants float64

	RoleCounts    map[string]float64 // researchers per role column
	GrantCategory map[string]float64 // one-hot grant category
	RFCD          map[string]float64 // percentage mass per RFCD bucket column
	SEO           map[string]float64 // percentage mass per SEO bucket column
}

// FeatureTable is the pipeline output: one row per application, sorted by
// application ID, plus the ordered names of the data-dependent columns.
type FeatureTable struct {
	Rows            []ApplicationFeatureRow
	RoleColumns     []string
	CategoryColumns []string
	RFCDColumns     []string
	SEOColumns      []string
}

// Len returns the number of applications.
func (t *FeatureTable) Len() int { return len(t.Rows) }

// IDs returns the application IDs in row order.
func (t *FeatureTable) IDs() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.ApplicationID
	}
	return out
}

// NumericColumns names the columns returned by Matrix, in order.
func (t *FeatureTable) NumericColumns() []string {
	cols := []string{
		ColContractValueBand,
		ColStartTimestamp,
		ColOldestBirthYear,
		ColAustralianRatio,
		ColPapersAStar,
		ColPapersA,
		ColPapersB,
		ColPapersC,
		ColSuccessfulGrants,
		ColUnsuccessfulGrants,
	}
	cols = append(cols, t.RoleColumns...)
	cols = append(cols, t.CategoryColumns...)
	cols = append(cols, t.RFCDColumns...)
	return append(cols, t.SEOColumns...)
}

// Matrix returns the numeric features, one row per application.
func (t *FeatureTable) Matrix() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = t.Vector(r)
	}
	return out
}

// Vector returns the numeric features of r under NumericColumns.
func (t *FeatureTable) Vector(r ApplicationFeatureRow) []float64 {
	row := []float64{
		r.ContractValueBand,
		r.StartTimestamp,
		r.OldestBirthYear,
		r.AustralianRatio,
		r.PapersAStar,
		r.PapersA,
		r.PapersB,
		r.PapersC,
		r.SuccessfulGrants,
		r.UnsuccessfulGrants,
	}
	row = appendNamed(row, r.RoleCounts, t.RoleColumns)
	row = appendNamed(row, r.GrantCategory, t.CategoryColumns)
	row = appendNamed(row, r.RFCD, t.RFCDColumns)
	return appendNamed(row, r.SEO, t.SEOColumns)
}

// Header is the flat header: ID, label, start date, then NumericColumns.
func (t *FeatureTable) Header() []string {
	return append([]string{ColApplicationID, ColStatus, ColStartDate}, t.NumericColumns()...)
}

// Records flattens the table into strings under Header. NaN is written as an
// empty cell.
func (t *FeatureTable) Records() [][]string {
	m := t.Matrix()
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rec := make([]string, 0, 3+len(m[i]))
		rec = append(rec, r.ApplicationID, r.Status, r.StartDate)
		for _, v := range m[i] {
			if math.IsNaN(v) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, table.FormatFloat(v))
		}
		out[i] = rec
	}
	return out
}

func appendNamed(dst []float64, values map[string]float64, columns []string) []float64 {
	for _, c := range columns {
		dst = append(dst, values[c])
	}
	return dst
}
