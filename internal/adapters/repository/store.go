// Package repository holds the application-indexed feature store that the
// pipeline hands its output to.
package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/grantfeat/internal/domain/model"
	"github.com/okian/grantfeat/pkg/metrics"
)

const defaultMaxPageSize = 1000

// Store provides read/write access to the feature rows of the last run.
type Store interface {
	// Replace swaps the stored rows for the rows of ft.
	Replace(ctx context.Context, ft *model.FeatureTable) error

	// Get returns the feature row of one application.
	// Returns ErrNotFound if the application is unknown.
	Get(ctx context.Context, applicationID string) (model.ApplicationFeatureRow, error)

	// Page returns up to limit rows in application ID order, starting at offset.
	Page(ctx context.Context, offset, limit int) ([]model.ApplicationFeatureRow, error)

	// Labelled returns the rows that carry a grant status.
	Labelled(ctx context.Context) []model.ApplicationFeatureRow

	// Table returns the stored feature table.
	Table(ctx context.Context) *model.FeatureTable

	// Columns returns the stored column sets without rows.
	Columns(ctx context.Context) *model.FeatureTable

	// View returns one page of rows together with the column sets and the
	// total they were read under.
	View(ctx context.Context, q Query) (*model.FeatureTable, int, error)

	// Lookup returns one application as a single-row table.
	// Returns ErrNotFound if the application is unknown.
	Lookup(ctx context.Context, applicationID string) (*model.FeatureTable, error)

	// Count returns the number of applications stored.
	Count(ctx context.Context) int
}

// Query selects a page of rows. With Labelled set only rows carrying a grant
// status are paged and counted.
type Query struct {
	Offset   int
	Limit    int
	Labelled bool
}

// Snapshot is an immutable view of the stored table.
type Snapshot struct {
	Table *model.FeatureTable
	ByID  map[string]int
}

// MemoryStore keeps the feature table in memory. Writers serialize on a
// mutex; readers load the current snapshot without locking.
type MemoryStore struct {
	mu          sync.Mutex
	snapshot    atomic.Pointer[Snapshot]
	maxPageSize int
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{maxPageSize: defaultMaxPageSize}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&Snapshot{Table: &model.FeatureTable{}, ByID: map[string]int{}})
	metrics.UpdateStoreRecords(0)
	return s
}

// Replace implements Store.Replace. The table is copied.
func (s *MemoryStore) Replace(ctx context.Context, ft *model.FeatureTable) error {
	if ft == nil {
		metrics.RecordErrorByComponent("repository", "empty_table")
		return ErrEmptyTable
	}
	cp := copyTable(ft)
	byID := make(map[string]int, len(cp.Rows))
	for i, r := range cp.Rows {
		byID[r.ApplicationID] = i
	}

	s.mu.Lock()
	s.snapshot.Store(&Snapshot{Table: cp, ByID: byID})
	s.mu.Unlock()

	metrics.UpdateStoreRecords(len(cp.Rows))
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, applicationID string) (model.ApplicationFeatureRow, error) {
	defer observe(time.Now())

	snap := s.snapshot.Load()
	i, ok := snap.ByID[applicationID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.ApplicationFeatureRow{}, ErrNotFound
	}
	return copyRow(snap.Table.Rows[i]), nil
}

// Page implements Store.Page.
func (s *MemoryStore) Page(ctx context.Context, offset, limit int) ([]model.ApplicationFeatureRow, error) {
	defer observe(time.Now())

	if limit < 1 || offset < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	return s.page(s.snapshot.Load().Table.Rows, offset, limit), nil
}

// Labelled implements Store.Labelled.
func (s *MemoryStore) Labelled(ctx context.Context) []model.ApplicationFeatureRow {
	defer observe(time.Now())

	var out []model.ApplicationFeatureRow
	for _, r := range labelled(s.snapshot.Load().Table.Rows) {
		out = append(out, copyRow(r))
	}
	return out
}

// View implements Store.View. Rows, columns and total come from one snapshot.
func (s *MemoryStore) View(ctx context.Context, q Query) (*model.FeatureTable, int, error) {
	defer observe(time.Now())

	if q.Limit < 1 || q.Offset < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, 0, ErrInvalidLimit
	}
	snap := s.snapshot.Load()
	rows := snap.Table.Rows
	if q.Labelled {
		rows = labelled(rows)
	}
	out := columnsOf(snap.Table)
	out.Rows = s.page(rows, q.Offset, q.Limit)
	return out, len(rows), nil
}

// Lookup implements Store.Lookup.
func (s *MemoryStore) Lookup(ctx context.Context, applicationID string) (*model.FeatureTable, error) {
	defer observe(time.Now())

	snap := s.snapshot.Load()
	i, ok := snap.ByID[applicationID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrNotFound
	}
	out := columnsOf(snap.Table)
	out.Rows = []model.ApplicationFeatureRow{copyRow(snap.Table.Rows[i])}
	return out, nil
}

// Table implements Store.Table. The result is a copy.
func (s *MemoryStore) Table(ctx context.Context) *model.FeatureTable {
	return copyTable(s.snapshot.Load().Table)
}

// Columns implements Store.Columns.
func (s *MemoryStore) Columns(ctx context.Context) *model.FeatureTable {
	return columnsOf(s.snapshot.Load().Table)
}

// Count returns the number of applications.
func (s *MemoryStore) Count(ctx context.Context) int {
	return len(s.snapshot.Load().Table.Rows)
}

func observe(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// page copies rows[offset:offset+limit], clamping limit to the page size.
func (s *MemoryStore) page(rows []model.ApplicationFeatureRow, offset, limit int) []model.ApplicationFeatureRow {
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset >= len(rows) {
		return []model.ApplicationFeatureRow{}
	}
	end := min(offset+limit, len(rows))
	out := make([]model.ApplicationFeatureRow, 0, end-offset)
	for _, r := range rows[offset:end] {
		out = append(out, copyRow(r))
	}
	return out
}

func labelled(rows []model.ApplicationFeatureRow) []model.ApplicationFeatureRow {
	var out []model.ApplicationFeatureRow
	for _, r := range rows {
		if r.Status != "" {
			out = append(out, r)
		}
	}
	return out
}

// columnsOf copies the column sets of ft without its rows.
func columnsOf(ft *model.FeatureTable) *model.FeatureTable {
	return copyTable(&model.FeatureTable{
		RoleColumns:     ft.RoleColumns,
		CategoryColumns: ft.CategoryColumns,
		RFCDColumns:     ft.RFCDColumns,
		SEOColumns:      ft.SEOColumns,
	})
}

func copyTable(ft *model.FeatureTable) *model.FeatureTable {
	out := &model.FeatureTable{
		Rows:            make([]model.ApplicationFeatureRow, len(ft.Rows)),
		RoleColumns:     append([]string(nil), ft.RoleColumns...),
		CategoryColumns: append([]string(nil), ft.CategoryColumns...),
		RFCDColumns:     append([]string(nil), ft.RFCDColumns...),
		SEOColumns:      append([]string(nil), ft.SEOColumns...),
	}
	for i, r := range ft.Rows {
		out.Rows[i] = copyRow(r)
	}
	return out
}

func copyRow(r model.ApplicationFeatureRow) model.ApplicationFeatureRow {
	r.RoleCounts = copyMap(r.RoleCounts)
	r.GrantCategory = copyMap(r.GrantCategory)
	r.RFCD = copyMap(r.RFCD)
	r.SEO = copyMap(r.SEO)
	return r
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
