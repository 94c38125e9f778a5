package frame

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func tripFrame() *Frame {
	f := New([]Column{
		{Name: "pickup_datetime", Kind: Timestamp},
		{Name: "PULocation_ID", Kind: Int},
		{Name: "_file", Kind: String},
		{Name: "sr_flag", Kind: Int},
	})
	f.Rows = [][]any{
		{"2024-01-01 10:00:00", int64(1), "a.csv", nil},
		{"2024-01-01 11:00:00", int64(0), "a.csv", int64(1)},
	}
	return f
}

func TestIndex_CaseInsensitive(t *testing.T) {
	t.Parallel()

	f := tripFrame()
	i, err := f.Index("pulocation_id")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if i != 1 {
		t.Fatalf("Index = %d, want 1", i)
	}

	if _, err := f.Index("dolocation_id"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("Index(missing) err = %v, want ErrColumnNotFound", err)
	}
}

func TestRename(t *testing.T) {
	t.Parallel()

	f := tripFrame()
	if err := f.Rename("pickup_datetime", "tpep_pickup_datetime"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := f.Names()[0]; got != "tpep_pickup_datetime" {
		t.Fatalf("renamed column = %q", got)
	}
	if f.Columns[0].Kind != Timestamp {
		t.Fatalf("rename lost kind: %v", f.Columns[0].Kind)
	}

	if err := f.Rename("pickup_datetime", "x"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("Rename(missing) err = %v, want ErrColumnNotFound", err)
	}
	if err := f.Rename("_file", "sr_flag"); !errors.Is(err, ErrColumnExists) {
		t.Fatalf("Rename(collision) err = %v, want ErrColumnExists", err)
	}
	// Renaming onto a different spelling of itself is allowed.
	if err := f.Rename("_file", "_FILE"); err != nil {
		t.Fatalf("Rename(self) err = %v", err)
	}
}

func TestDrop_IgnoresMissingAndCompactsRows(t *testing.T) {
	t.Parallel()

	f := tripFrame()
	f.Drop("_file", "sr_flag", "affiliated_base_number")

	if got, want := f.Names(), []string{"pickup_datetime", "PULocation_ID"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	want := [][]any{
		{"2024-01-01 10:00:00", int64(1)},
		{"2024-01-01 11:00:00", int64(0)},
	}
	if !reflect.DeepEqual(f.Rows, want) {
		t.Fatalf("Rows = %#v, want %#v", f.Rows, want)
	}

	// Dropping again is a no-op.
	f.Drop("_file")
	if len(f.Columns) != 2 {
		t.Fatalf("second Drop changed schema: %v", f.Names())
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	f := tripFrame()
	f.Filter(func(row []any) bool { return row[1].(int64) > 0 })
	if f.Len() != 1 {
		t.Fatalf("Len = %d, want 1", f.Len())
	}
	if f.Rows[0][0] != "2024-01-01 10:00:00" {
		t.Fatalf("kept wrong row: %v", f.Rows[0])
	}
}

func TestAppend_WidthMismatch(t *testing.T) {
	t.Parallel()

	f := tripFrame()
	if err := f.Append([]any{1}); err == nil {
		t.Fatalf("Append accepted a short row")
	}
	if err := f.Append([]any{nil, nil, nil, nil}); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	cases := map[string]Kind{
		"INTEGER":          Int,
		"bigint":           Int,
		"BOOLEAN":          Bool,
		"double precision": Float,
		"NUMERIC(10,2)":    Float,
		"DATETIME2":        Timestamp,
		"timestamptz":      Timestamp,
		"DATE":             Timestamp,
		"BLOB":             Bytes,
		"NVARCHAR":         String,
		"":                 Unknown,
	}
	for in, want := range cases {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := tripFrame()
	b := tripFrame()
	b.Rows[0], b.Rows[1] = b.Rows[1], b.Rows[0]
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprint depends on row order")
	}

	// Integer width does not matter.
	c := tripFrame()
	c.Rows[0][1] = int32(1)
	if a.Fingerprint() != c.Fingerprint() {
		t.Fatalf("fingerprint depends on integer width")
	}

	d := tripFrame()
	d.Rows[1][3] = nil
	if a.Fingerprint() == d.Fingerprint() {
		t.Fatalf("fingerprint ignored a NULL change")
	}

	e := tripFrame()
	e.Rows = append(e.Rows, e.Rows[0])
	if a.Fingerprint() == e.Fingerprint() {
		t.Fatalf("fingerprint ignored a duplicate row")
	}

	g := tripFrame()
	_ = g.Rename("_file", "source_file")
	if a.Fingerprint() == g.Fingerprint() {
		t.Fatalf("fingerprint ignored a schema change")
	}
}

func TestAsFloat64(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{nil, 0, false},
		{int64(7), 7, true},
		{int32(-2), -2, true},
		{"12", 12, true},
		{[]byte("3.5"), 3.5, true},
		{"abc", 0, false},
		{true, 0, false},
	}
	for _, tc := range cases {
		got, ok := AsFloat64(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("AsFloat64(%#v) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAsTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		in any
		ok bool
	}{
		{want, true},
		{"2024-01-01 10:00:00", true},
		{"2024-01-01T10:00:00Z", true},
		{[]byte("2024-01-01T10:00:00Z"), true},
		{"", false},
		{"not a time", false},
		{nil, false},
	}
	for _, tc := range cases {
		got, ok := AsTime(tc.in)
		if ok != tc.ok {
			t.Errorf("AsTime(%#v) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(want) {
			t.Errorf("AsTime(%#v) = %v, want %v", tc.in, got, want)
		}
	}
}

func TestCoerceRows(t *testing.T) {
	t.Parallel()

	cols := []Column{
		{Name: "id", Kind: Int},
		{Name: "ts", Kind: Timestamp},
		{Name: "name", Kind: String},
		{Name: "flag", Kind: Bool},
		{Name: "raw", Kind: Unknown},
	}
	in := [][]any{
		{"12", "2024-01-01 10:00:00", []byte("B0001"), int64(1), struct{}{}},
		{nil, "garbage", nil, "false", nil},
	}
	out := CoerceRows(cols, in)

	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if out[0][0] != int64(12) || out[0][2] != "B0001" || out[0][3] != true {
		t.Fatalf("row 0 = %#v", out[0])
	}
	if ts, ok := out[0][1].(time.Time); !ok || !ts.Equal(want) {
		t.Fatalf("row 0 ts = %#v", out[0][1])
	}
	if out[1][0] != nil || out[1][1] != "garbage" || out[1][3] != false {
		t.Fatalf("row 1 = %#v", out[1])
	}
	// The input is not modified.
	if in[0][0] != "12" {
		t.Fatalf("input mutated: %#v", in[0])
	}
}
