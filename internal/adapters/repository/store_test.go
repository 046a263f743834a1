package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/grantfeat/internal/domain/model"
)

func sampleTable() *model.FeatureTable {
	return &model.FeatureTable{
		Rows: []model.ApplicationFeatureRow{
			{ApplicationID: "2", Status: "1", RFCD: map[string]float64{"RFCD.Code._21": 100}},
			{ApplicationID: "7", Status: ""},
			{ApplicationID: "10", Status: "0"},
		},
		RFCDColumns: []string{"RFCD.Code._21"},
	}
}

func TestMemoryStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if err := store.Replace(ctx, sampleTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count := store.Count(ctx); count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}

	row, err := store.Get(ctx, "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.RFCD["RFCD.Code._21"] != 100 {
		t.Errorf("expected RFCD mass 100, got %v", row.RFCD["RFCD.Code._21"])
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Replace(ctx, nil); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("expected ErrEmptyTable, got %v", err)
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ft := sampleTable()
	if err := store.Replace(ctx, ft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ft.Rows[0].RFCD["RFCD.Code._21"] = -1
	row, _ := store.Get(ctx, "2")
	if row.RFCD["RFCD.Code._21"] != 100 {
		t.Error("store shares maps with the caller's table")
	}

	row.RFCD["RFCD.Code._21"] = -2
	again, _ := store.Get(ctx, "2")
	if again.RFCD["RFCD.Code._21"] != 100 {
		t.Error("store shares maps with returned rows")
	}
}

func TestMemoryStore_Columns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Replace(ctx, sampleTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cols := store.Columns(ctx)
	if cols.Len() != 0 {
		t.Errorf("expected no rows, got %d", cols.Len())
	}
	if len(cols.RFCDColumns) != 1 || cols.RFCDColumns[0] != "RFCD.Code._21" {
		t.Errorf("unexpected RFCD columns %v", cols.RFCDColumns)
	}

	cols.RFCDColumns[0] = "changed"
	if store.Columns(ctx).RFCDColumns[0] != "RFCD.Code._21" {
		t.Error("store shares column slices with the caller")
	}
}

func TestMemoryStore_Page(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMaxPageSize(2))
	if err := store.Replace(ctx, sampleTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := store.Page(ctx, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 2 || page[0].ApplicationID != "2" || page[1].ApplicationID != "7" {
		t.Errorf("unexpected first page: %+v", page)
	}

	page, err = store.Page(ctx, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 1 || page[0].ApplicationID != "10" {
		t.Errorf("unexpected second page: %+v", page)
	}

	page, err = store.Page(ctx, 5, 2)
	if err != nil || len(page) != 0 {
		t.Errorf("expected an empty page past the end, got %v, %v", page, err)
	}

	for _, tc := range []struct{ offset, limit int }{{0, 0}, {-1, 1}} {
		if _, err := store.Page(ctx, tc.offset, tc.limit); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("offset %d limit %d: expected ErrInvalidLimit, got %v", tc.offset, tc.limit, err)
		}
	}
}

func TestMemoryStore_Labelled(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Replace(ctx, sampleTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := store.Labelled(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected 2 labelled rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Status == "" {
			t.Errorf("unlabelled row %s returned", r.ApplicationID)
		}
	}

	tbl := store.Table(ctx)
	if tbl.Len() != 3 || tbl.RFCDColumns[0] != "RFCD.Code._21" {
		t.Errorf("unexpected table copy: %+v", tbl)
	}
}

func TestMemoryStore_View(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMaxPageSize(2))
	if err := store.Replace(ctx, sampleTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, total, err := store.View(ctx, Query{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || view.Len() != 2 || view.RFCDColumns[0] != "RFCD.Code._21" {
		t.Errorf("unexpected view: total %d, %+v", total, view)
	}

	view, total, err = store.View(ctx, Query{Offset: 1, Limit: 2, Labelled: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || view.Len() != 1 || view.Rows[0].ApplicationID != "10" {
		t.Errorf("unexpected labelled view: total %d, %+v", total, view)
	}

	if _, _, err := store.View(ctx, Query{Limit: 0}); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}

	one, err := store.Lookup(ctx, "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if one.Len() != 1 || one.Rows[0].RFCD["RFCD.Code._21"] != 100 || one.RFCDColumns[0] != "RFCD.Code._21" {
		t.Errorf("unexpected lookup: %+v", one)
	}
	if _, err := store.Lookup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// otherTable has a different row count and RFCD column set than sampleTable.
func otherTable() *model.FeatureTable {
	return &model.FeatureTable{
		Rows: []model.ApplicationFeatureRow{
			{ApplicationID: "2", Status: "1", RFCD: map[string]float64{"RFCD.Code._32": 50}},
		},
		RFCDColumns: []string{"RFCD.Code._32"},
	}
}

func TestMemoryStore_ViewDuringReplace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Replace(ctx, sampleTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	consistent := func(ft *model.FeatureTable) bool {
		cols := map[string]bool{}
		for _, c := range ft.RFCDColumns {
			cols[c] = true
		}
		for _, r := range ft.Rows {
			for k := range r.RFCD {
				if !cols[k] {
					return false
				}
			}
		}
		return true
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for j := 0; j < 500; j++ {
			if j%2 == 0 {
				_ = store.Replace(ctx, otherTable())
			} else {
				_ = store.Replace(ctx, sampleTable())
			}
		}
	}()
	go func() {
		defer wg.Done()
		for j := 0; j < 500; j++ {
			view, total, err := store.View(ctx, Query{Limit: 10})
			if err != nil {
				errs <- err.Error()
				return
			}
			want := map[string]int{"RFCD.Code._21": 3, "RFCD.Code._32": 1}[view.RFCDColumns[0]]
			if total != want || view.Len() != total || !consistent(view) {
				errs <- "view mixes snapshots"
				return
			}
			one, err := store.Lookup(ctx, "2")
			if err != nil || !consistent(one) {
				errs <- "lookup mixes snapshots"
				return
			}
		}
	}()
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Replace(ctx, sampleTable())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = store.Get(ctx, "7")
				_ = store.Count(ctx)
			}
		}()
	}
	wg.Wait()

	if count := store.Count(ctx); count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}
