// Package frame holds the in-memory tabular row set passed between the
// storage backends and the transformers.
//
// A Frame is a schema (ordered Columns) plus positional rows aligned with it.
// A nil value is SQL NULL. Column names resolve case-insensitively, the same
// way the warehouse engines resolve unquoted identifiers; a rename assigns
// the exact new spelling.
package frame

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// ErrColumnNotFound is returned when a named column does not resolve.
	ErrColumnNotFound = errors.New("column not found")
	// ErrColumnExists is returned when a rename would produce a duplicate column.
	ErrColumnExists = errors.New("column already exists")
)

// Kind is a coarse logical column type shared by every backend.
type Kind int

const (
	Unknown Kind = iota
	Int
	Float
	Bool
	String
	Timestamp
	Bytes
)

var kindNames = [...]string{"unknown", "int", "float", "bool", "string", "timestamp", "bytes"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps a loosely spelled logical or SQL type name onto a Kind.
// Unrecognised names map to String so the column still round-trips as text.
func ParseKind(s string) Kind {
	t := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case t == "":
		return Unknown
	case strings.Contains(t, "INT"):
		return Int
	case strings.HasPrefix(t, "BOOL") || t == "BIT":
		return Bool
	case strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"), strings.Contains(t, "REAL"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"), t == "MONEY":
		return Float
	case strings.Contains(t, "TIME"), strings.Contains(t, "DATE"):
		return Timestamp
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BYTE"), strings.Contains(t, "BINARY"):
		return Bytes
	default:
		return String
	}
}

// Column describes one column of a Frame. DBType carries the native type
// name reported by the backend that produced the column, if any.
type Column struct {
	Name   string
	Kind   Kind
	DBType string
}

// Frame is an ordered schema plus positional rows.
type Frame struct {
	Columns []Column
	Rows    [][]any
}

// New returns an empty frame with a copy of cols as its schema.
func New(cols []Column) *Frame {
	return &Frame{Columns: append([]Column(nil), cols...)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Names returns the column names in schema order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

// Append adds a row. The row must match the schema width.
func (f *Frame) Append(row []any) error {
	if len(row) != len(f.Columns) {
		return fmt.Errorf("frame: row length %d != columns length %d", len(row), len(f.Columns))
	}
	f.Rows = append(f.Rows, row)
	return nil
}

// Index resolves name to its column position.
func (f *Frame) Index(name string) (int, error) {
	return IndexOf(f.Columns, name)
}

// Has reports whether name resolves to a column.
func (f *Frame) Has(name string) bool {
	_, err := f.Index(name)
	return err == nil
}

// Rename renames column from to. It fails with ErrColumnNotFound when from
// does not resolve and with ErrColumnExists when to names a different column.
func (f *Frame) Rename(from, to string) error {
	i, err := f.Index(from)
	if err != nil {
		return err
	}
	if j, err := f.Index(to); err == nil && j != i {
		return fmt.Errorf("frame: rename %q to %q: %w", from, to, ErrColumnExists)
	}
	f.Columns[i].Name = to
	return nil
}

// Drop removes the named columns from the schema and every row. Names that
// do not resolve are ignored.
func (f *Frame) Drop(names ...string) {
	drop := make(map[int]struct{}, len(names))
	for _, n := range names {
		if i, err := f.Index(n); err == nil {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return
	}

	keep := make([]int, 0, len(f.Columns)-len(drop))
	cols := make([]Column, 0, len(f.Columns)-len(drop))
	for i, c := range f.Columns {
		if _, ok := drop[i]; ok {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}
	f.Columns = cols

	// keep is ascending, so rows can be compacted in place.
	for r, row := range f.Rows {
		for j, i := range keep {
			row[j] = row[i]
		}
		for j := len(keep); j < len(row); j++ {
			row[j] = nil
		}
		f.Rows[r] = row[:len(keep)]
	}
}

// Filter keeps only rows for which keep returns true, reusing the backing
// array.
func (f *Frame) Filter(keep func(row []any) bool) {
	out := f.Rows[:0]
	for _, row := range f.Rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	for i := len(out); i < len(f.Rows); i++ {
		f.Rows[i] = nil
	}
	f.Rows = out
}

// IndexOf resolves name against cols using case-insensitive matching. An
// exact match wins over a folded match.
func IndexOf(cols []Column, name string) (int, error) {
	for i, c := range cols {
		if c.Name == name {
			return i, nil
		}
	}
	folded := Fold(name)
	for i, c := range cols {
		if Fold(c.Name) == folded {
			return i, nil
		}
	}
	return -1, fmt.Errorf("frame: %q: %w", name, ErrColumnNotFound)
}

// Fold returns the case-folded form of a column name.
func Fold(name string) string {
	// A Caser keeps state, so one is built per call.
	return cases.Fold().String(name)
}

// SameName reports whether two column names resolve to the same column.
func SameName(a, b string) bool {
	return a == b || Fold(a) == Fold(b)
}
