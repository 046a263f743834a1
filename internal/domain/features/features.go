// Package features merges the per-application aggregates of the researcher
// table into one feature row per grant application and fills the gaps the
// aggregates leave.
package features

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/okian/grantfeat/internal/domain/aggregate"
	"github.com/okian/grantfeat/internal/domain/dedupe"
	"github.com/okian/grantfeat/internal/domain/impute"
	"github.com/okian/grantfeat/internal/domain/model"
	"github.com/okian/grantfeat/internal/domain/schema"
	"github.com/okian/grantfeat/internal/domain/table"
)

// Aggregate names used in Report.Dropped.
const (
	StageBirthYear   = "birth_year"
	StageRoles       = "roles"
	StageNationality = "nationality"
	StageHistory     = "history"
	StageCategory    = "grant_category"
	StageRFCD        = "rfcd"
	StageSEO         = "seo"
)

// AustraliaLabel is the country counted by the Australian-born ratio.
const AustraliaLabel = "Australia"

// MissingCategory labels applications without a grant category.
const MissingCategory = "NA"

const countryPrefix = "country"

// Report describes what Build discarded and imputed.
type Report struct {
	Applications int
	// Dropped lists, per aggregate, the application IDs the inner join
	// discarded because only one side held them.
	Dropped map[string][]string
	// Filled counts imputed cells per column.
	Filled map[string]int
}

// DroppedCount is the number of distinct applications discarded by joins.
func (r Report) DroppedCount() int {
	seen := map[string]struct{}{}
	for _, ids := range r.Dropped {
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

type application struct {
	status    string
	startDate string
	timestamp float64
}

type stage struct {
	name  string
	frame *aggregate.Frame
}

type builder struct {
	o    options
	t    *table.Table
	rep  *Report
	apps map[string]application
}

// Build turns the researcher table (the output of reshape.Unpivot) into the
// feature table. Rows are sorted by application ID.
func Build(researchers *table.Table, opts ...Option) (*model.FeatureTable, Report, error) {
	o := options{layout: schema.DefaultLayout()}
	for _, opt := range opts {
		opt(&o)
	}
	rep := Report{Dropped: map[string][]string{}, Filled: map[string]int{}}

	if err := schema.Require(researchers.Columns(), o.layout.ResearcherHeader()...); err != nil {
		return nil, rep, err
	}
	b := &builder{o: o, t: researchers, rep: &rep}

	base, err := b.applications()
	if err != nil {
		return nil, rep, err
	}

	years, err := b.birthYear()
	if err != nil {
		return nil, rep, fmt.Errorf("%s: %w", StageBirthYear, err)
	}
	roles, err := b.roles()
	if err != nil {
		return nil, rep, fmt.Errorf("%s: %w", StageRoles, err)
	}
	nationality, err := b.nationality()
	if err != nil {
		return nil, rep, fmt.Errorf("%s: %w", StageNationality, err)
	}
	history, err := b.history()
	if err != nil {
		return nil, rep, fmt.Errorf("%s: %w", StageHistory, err)
	}
	categories, err := b.category()
	if err != nil {
		return nil, rep, fmt.Errorf("%s: %w", StageCategory, err)
	}
	rfcd, seo, err := b.codes()
	if err != nil {
		return nil, rep, err
	}
	stages := []stage{
		{name: StageBirthYear, frame: years},
		{name: StageRoles, frame: roles},
		{name: StageNationality, frame: nationality},
		{name: StageHistory, frame: history},
		{name: StageCategory, frame: categories},
		{name: StageRFCD, frame: rfcd},
		{name: StageSEO, frame: seo},
	}

	for _, s := range stages {
		joined, res, err := aggregate.Join(base, s.frame)
		if err != nil {
			return nil, rep, fmt.Errorf("join %s: %w", s.name, err)
		}
		if res.Dropped() {
			ids := append(append([]string(nil), res.LeftOnly...), res.RightOnly...)
			if o.join == JoinStrict {
				return nil, rep, fmt.Errorf("%s: %s: %w", s.name, strings.Join(ids, ", "), ErrUnmatchedKey)
			}
			rep.Dropped[s.name] = ids
		}
		base = joined
	}

	if base, err = b.fillAfterJoin(base); err != nil {
		return nil, rep, err
	}

	out := &model.FeatureTable{
		RoleColumns:     roles.Columns(),
		CategoryColumns: categories.Columns(),
		RFCDColumns:     rfcd.Columns(),
		SEOColumns:      seo.Columns(),
	}
	for _, id := range base.Index() {
		out.Rows = append(out.Rows, b.row(base, id, out))
	}
	rep.Applications = out.Len()
	return out, rep, nil
}

// applications builds the application-level frame: one row per distinct
// application holding the encoded contract band. Label and start date are
// kept aside as strings. The band mode is counted over researcher rows.
func (b *builder) applications() (*aggregate.Frame, error) {
	filled, n, err := impute.FillMode(b.t, schema.ContractValueBand)
	if err != nil {
		return nil, err
	}
	b.rep.Filled[schema.ContractValueBand] = n

	sel, err := filled.Select(b.o.layout.Names(schema.Key, schema.Label, schema.Keep)...)
	if err != nil {
		return nil, err
	}
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(sel.Len()))
	var rows [][]string
	for i := 0; i < sel.Len(); i++ {
		row := sel.Row(i).Values()
		for j := range row {
			row[j] = table.Canonical(row[j])
		}
		if seen.SeenAndRecord(dedupe.Key(row)) {
			continue
		}
		rows = append(rows, row)
	}
	apps, err := table.New(sel.Columns(), rows)
	if err != nil {
		return nil, err
	}

	b.apps = make(map[string]application, apps.Len())
	ids := make([]string, 0, apps.Len())
	values := make([][]float64, 0, apps.Len())
	for i := 0; i < apps.Len(); i++ {
		r := apps.Row(i)
		id := r.Get(schema.ApplicationID)
		if table.IsMissing(id) {
			return nil, fmt.Errorf("application row %d: %w", i, ErrMissingKey)
		}
		if _, dup := b.apps[id]; dup {
			return nil, fmt.Errorf("application %q has conflicting shared fields: %w", id, ErrDuplicateKey)
		}
		band, err := EncodeBand(r.Get(schema.ContractValueBand))
		if err != nil {
			return nil, fmt.Errorf("application %q: %w", id, &table.CellError{
				Row: i, Column: schema.ContractValueBand, Value: r.Get(schema.ContractValueBand), Err: err,
			})
		}
		ts, err := ParseStartDate(r.Get(schema.StartDate))
		if err != nil {
			return nil, fmt.Errorf("application %q: %w", id, err)
		}
		b.apps[id] = application{status: r.Get(schema.GrantStatus), startDate: r.Get(schema.StartDate), timestamp: ts}
		ids = append(ids, id)
		values = append(values, []float64{band})
	}
	return aggregate.NewFrame(ids, []string{model.ColContractValueBand}, values)
}

// EncodeBand maps a single-character contract value band to its code point.
func EncodeBand(label string) (float64, error) {
	v := strings.TrimSpace(label)
	if table.IsMissing(v) {
		return 0, fmt.Errorf("empty band: %w: %w", ErrContractBand, table.ErrParse)
	}
	r, size := utf8.DecodeRuneInString(v)
	if r == utf8.RuneError || size != len(v) {
		return 0, fmt.Errorf("band %q: %w: %w", label, ErrContractBand, table.ErrParse)
	}
	return float64(r), nil
}

func (b *builder) birthYear() (*aggregate.Frame, error) {
	return aggregate.GroupBy(b.t, schema.ApplicationID,
		[]aggregate.Selector{aggregate.NumericAs(model.ColOldestBirthYear, schema.YearOfBirth)}, aggregate.Min)
}

func (b *builder) roles() (*aggregate.Frame, error) {
	sels, _, err := aggregate.OneHot(b.t, schema.ResearcherRole, aggregate.Category(schema.ResearcherRole))
	if err != nil {
		return nil, err
	}
	return aggregate.GroupBy(b.t, schema.ApplicationID, sels, aggregate.Sum)
}

// nationality is the share of Australian-born researchers among those with a
// known country of birth; zero when no country is known.
func (b *builder) nationality() (*aggregate.Frame, error) {
	sels, _, err := aggregate.OneHot(b.t, countryPrefix, aggregate.Category(schema.CountryOfBirth))
	if err != nil {
		return nil, err
	}
	counts, err := aggregate.GroupBy(b.t, schema.ApplicationID, sels, aggregate.Sum)
	if err != nil {
		return nil, err
	}
	aus := aggregate.DummyName(countryPrefix, AustraliaLabel)
	ids := counts.Index()
	values := make([][]float64, len(ids))
	for i, id := range ids {
		row, _ := counts.Row(id)
		known := 0.0
		for _, v := range row {
			known += v
		}
		ratio := 0.0
		if a, ok := counts.Value(id, aus); ok && known > 0 {
			ratio = a / known
		}
		values[i] = []float64{ratio}
	}
	return aggregate.NewFrame(ids, []string{model.ColAustralianRatio}, values)
}

func historyColumns() []string {
	return []string{
		model.ColPapersAStar,
		model.ColPapersA,
		model.ColPapersB,
		model.ColPapersC,
		model.ColSuccessfulGrants,
		model.ColUnsuccessfulGrants,
	}
}

func (b *builder) history() (*aggregate.Frame, error) {
	var sels []aggregate.Selector
	for _, c := range historyColumns() {
		sels = append(sels, aggregate.Numeric(c))
	}
	return aggregate.GroupBy(b.t, schema.ApplicationID, sels, aggregate.Sum)
}

// category one-hot encodes the grant category. The missing bucket is always
// present so the column set does not depend on the data.
func (b *builder) category() (*aggregate.Frame, error) {
	sels, labels, err := aggregate.OneHot(b.t, schema.GrantCategory,
		aggregate.CategoryWithMissing(schema.GrantCategory, MissingCategory))
	if err != nil {
		return nil, err
	}
	hasMissing := false
	for _, l := range labels {
		if l == MissingCategory {
			hasMissing = true
		}
	}
	if !hasMissing {
		sels = append(sels, aggregate.Selector{
			Name:  aggregate.DummyName(schema.GrantCategory, MissingCategory),
			Value: func(table.Row) (float64, bool, error) { return 0, true, nil },
		})
	}
	return aggregate.GroupBy(b.t, schema.ApplicationID, sels, aggregate.Min)
}

// codes mean-imputes every percentage slot over the researcher rows and runs
// both code aggregators.
func (b *builder) codes() (*aggregate.Frame, *aggregate.Frame, error) {
	rfcd := aggregate.NewCodeAggregator(aggregate.RFCDConfig(), b.o.codeOpts...)
	seo := aggregate.NewCodeAggregator(aggregate.SEOConfig(), b.o.codeOpts...)

	t := b.t
	for _, agg := range []*aggregate.CodeAggregator{rfcd, seo} {
		cfg := agg.Config()
		for i := 1; i <= cfg.Slots; i++ {
			col := schema.SlotColumn(cfg.PercentagePrefix, i)
			var (
				n   int
				err error
			)
			if t, n, err = impute.FillMean(t, col); err != nil {
				return nil, nil, err
			}
			b.rep.Filled[col] = n
		}
	}

	rf, err := rfcd.Aggregate(t)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", StageRFCD, err)
	}
	sf, err := seo.Aggregate(t)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", StageSEO, err)
	}
	return rf, sf, nil
}

// fillAfterJoin imputes the oldest birth year with the median over the joined
// applications and zero-fills publication and grant history. Birth years stay
// NaN when no application has one.
func (b *builder) fillAfterJoin(f *aggregate.Frame) (*aggregate.Frame, error) {
	years, _ := f.Column(model.ColOldestBirthYear)
	present := make([]float64, 0, len(years))
	for _, y := range years {
		if !math.IsNaN(y) {
			present = append(present, y)
		}
	}
	median := impute.Median(present)

	fill := func(f *aggregate.Frame, column string, value float64) (*aggregate.Frame, error) {
		n := 0
		out, err := f.Map(column, func(_ string, v float64) float64 {
			if math.IsNaN(v) {
				n++
				return value
			}
			return v
		})
		if err != nil {
			return nil, err
		}
		b.rep.Filled[column] += n
		return out, nil
	}

	var err error
	if !math.IsNaN(median) {
		if f, err = fill(f, model.ColOldestBirthYear, median); err != nil {
			return nil, err
		}
	}
	for _, c := range historyColumns() {
		if f, err = fill(f, c, 0); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (b *builder) row(f *aggregate.Frame, id string, out *model.FeatureTable) model.ApplicationFeatureRow {
	get := func(column string) float64 {
		v, _ := f.Value(id, column)
		return v
	}
	named := func(columns []string) map[string]float64 {
		m := make(map[string]float64, len(columns))
		for _, c := range columns {
			m[c] = get(c)
		}
		return m
	}
	app := b.apps[id]
	return model.ApplicationFeatureRow{
		ApplicationID:      id,
		Status:             app.status,
		ContractValueBand:  get(model.ColContractValueBand),
		StartDate:          app.startDate,
		StartTimestamp:     app.timestamp,
		OldestBirthYear:    get(model.ColOldestBirthYear),
		AustralianRatio:    get(model.ColAustralianRatio),
		PapersAStar:        get(model.ColPapersAStar),
		PapersA:            get(model.ColPapersA),
		PapersB:            get(model.ColPapersB),
		PapersC:            get(model.ColPapersC),
		SuccessfulGrants:   get(model.ColSuccessfulGrants),
		UnsuccessfulGrants: get(model.ColUnsuccessfulGrants),
		RoleCounts:         named(out.RoleColumns),
		GrantCategory:      named(out.CategoryColumns),
		RFCD:               named(out.RFCDColumns),
		SEO:                named(out.SEOColumns),
	}
}
