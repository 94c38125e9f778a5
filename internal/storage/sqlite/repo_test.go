package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
	"fhvclean/internal/storage"
)

/*
Package-level test helpers (TB-aware)
*/

func newRepo(tb testing.TB) *Repository {
	tb.Helper()
	db, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return New(db, Config{BatchSize: 2})
}

func mustExec(tb testing.TB, r *Repository, sqlStmt string) {
	tb.Helper()
	if err := r.Exec(context.Background(), sqlStmt); err != nil {
		tb.Fatalf("exec %q: %v", sqlStmt, err)
	}
}

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func tripFrame(n int) *frame.Frame {
	f := frame.New([]frame.Column{
		{Name: "dispatching_base_num", Kind: frame.String},
		{Name: "tpep_pickup_datetime", Kind: frame.Timestamp},
		{Name: "pulocation_id", Kind: frame.Int},
	})
	for i := 0; i < n; i++ {
		f.Rows = append(f.Rows, []any{fmt.Sprintf("B%04d", i), t0.Add(time.Duration(i) * time.Minute), int64(i + 1)})
	}
	return f
}

/*
Unit tests
*/

func TestReadTable_NotFound(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	_, err := r.ReadTable(context.Background(), "raw_fhv_trips")
	if !errors.Is(err, storage.ErrTableNotFound) {
		t.Fatalf("err = %v, want ErrTableNotFound", err)
	}
	if _, err := r.CountRows(context.Background(), "raw_fhv_trips"); !errors.Is(err, storage.ErrTableNotFound) {
		t.Fatalf("CountRows err = %v, want ErrTableNotFound", err)
	}
	if _, err := r.Columns(context.Background(), "raw_fhv_trips"); !errors.Is(err, storage.ErrTableNotFound) {
		t.Fatalf("Columns err = %v, want ErrTableNotFound", err)
	}
}

func TestReadTable_Kinds(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	mustExec(t, r, `CREATE TABLE raw (base TEXT, pickup DATETIME, pu INTEGER, fare REAL)`)
	mustExec(t, r, `INSERT INTO raw VALUES ('B1', '2024-03-01 08:00:00', 7, 1.5), (NULL, NULL, NULL, NULL)`)

	f, err := r.ReadTable(context.Background(), "raw")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	wantKinds := []frame.Kind{frame.String, frame.Timestamp, frame.Int, frame.Float}
	for i, k := range wantKinds {
		if f.Columns[i].Kind != k {
			t.Errorf("column %s kind = %v, want %v", f.Columns[i].Name, f.Columns[i].Kind, k)
		}
	}
	if f.Len() != 2 {
		t.Fatalf("rows = %d, want 2", f.Len())
	}
	if ts, ok := frame.AsTime(f.Rows[0][1]); !ok || !ts.Equal(t0) {
		t.Fatalf("pickup = %#v, want %v", f.Rows[0][1], t0)
	}
	if n, ok := frame.AsInt64(f.Rows[0][2]); !ok || n != 7 {
		t.Fatalf("pu = %#v, want 7", f.Rows[0][2])
	}
	for _, v := range f.Rows[1] {
		if v != nil {
			t.Fatalf("NULL row = %#v", f.Rows[1])
		}
	}
}

func TestOverwriteTable_ReplacesContentsAndSchema(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE silver (old_col TEXT)`)
	mustExec(t, r, `INSERT INTO silver VALUES ('stale')`)

	n, err := r.OverwriteTable(ctx, "silver", tripFrame(5))
	if err != nil {
		t.Fatalf("OverwriteTable: %v", err)
	}
	if n != 5 {
		t.Fatalf("written = %d, want 5", n)
	}

	got, err := r.ReadTable(ctx, "silver")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if strings.Join(got.Names(), ",") != "dispatching_base_num,tpep_pickup_datetime,pulocation_id" {
		t.Fatalf("columns = %v", got.Names())
	}
	if got.Fingerprint() != tripFrame(5).Fingerprint() {
		t.Fatalf("round trip changed contents:\n got %v\nwant %v", got.Rows, tripFrame(5).Rows)
	}

	// Overwriting again with fewer rows leaves only the new rows.
	if _, err := r.OverwriteTable(ctx, "silver", tripFrame(1)); err != nil {
		t.Fatalf("second OverwriteTable: %v", err)
	}
	if c, _ := r.CountRows(ctx, "silver"); c != 1 {
		t.Fatalf("count after second overwrite = %d, want 1", c)
	}
}

func TestOverwriteTable_EmptyFrameCreatesTable(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	n, err := r.OverwriteTable(context.Background(), "silver", tripFrame(0))
	if err != nil || n != 0 {
		t.Fatalf("OverwriteTable = %d, %v", n, err)
	}
	cols, err := r.Columns(context.Background(), "silver")
	if err != nil || len(cols) != 3 {
		t.Fatalf("Columns = %v, %v", cols, err)
	}
}

func TestOverwriteTable_FailureLeavesPreviousContents(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	if _, err := r.OverwriteTable(ctx, "silver", tripFrame(3)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	bad := tripFrame(3)
	bad.Rows[2] = bad.Rows[2][:2] // short row fails the insert
	if _, err := r.OverwriteTable(ctx, "silver", bad); err == nil {
		t.Fatal("expected error for malformed row")
	}

	got, err := r.ReadTable(ctx, "silver")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got.Fingerprint() != tripFrame(3).Fingerprint() {
		t.Fatalf("destination modified by failed overwrite: %v", got.Rows)
	}
}

func TestOverwriteFromQuery(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	if _, err := r.OverwriteTable(ctx, "raw", tripFrame(4)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cols, err := r.Columns(ctx, "raw")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	p := sqlplan.New("raw", cols)
	if err := p.GreaterThan("pulocation_id", 2); err != nil {
		t.Fatalf("GreaterThan: %v", err)
	}
	query, err := p.Render(r.Dialect())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	n, err := r.OverwriteFromQuery(ctx, "silver", p.Columns(), query)
	if err != nil {
		t.Fatalf("OverwriteFromQuery: %v", err)
	}
	if n != 2 {
		t.Fatalf("written = %d, want 2", n)
	}

	got, err := r.ReadTable(ctx, "silver")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got.Columns[1].Kind != frame.Timestamp {
		t.Fatalf("pickup kind = %v, want timestamp", got.Columns[1].Kind)
	}
	if _, ok := got.Rows[0][1].(time.Time); !ok {
		t.Fatalf("pickup value = %T, want time.Time", got.Rows[0][1])
	}
}

func TestExec_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	if err := r.Exec(context.Background(), "   "); err != nil {
		t.Fatalf("Exec(empty) = %v", err)
	}
	if err := r.Exec(context.Background(), "NOT SQL"); err == nil {
		t.Fatal("expected error for invalid SQL")
	}
}

/*
Benchmarks
*/

func BenchmarkOverwriteTable(b *testing.B) {
	r := newRepo(b)
	r.cfg.BatchSize = 500
	f := tripFrame(2000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.OverwriteTable(ctx, "silver", f); err != nil {
			b.Fatalf("OverwriteTable: %v", err)
		}
	}
}
