package ddl

import (
	"strings"

	"fhvclean/internal/frame"
)

// ColumnDef describes a single column in a table definition.
//
// Name is the logical column name (unquoted; quoting happens at render time)
// and SQLType the target type (e.g. BIGINT, TIMESTAMPTZ).
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the table name (possibly dotted, "schema.table") and an
// ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// FromColumns builds a TableDef from a frame schema. mapType receives the
// logical type name (see LogicalType) and returns the backend type. Every
// column is nullable; the cleaned table carries no constraints.
func FromColumns(fqn string, cols []frame.Column, mapType func(kind string) string) TableDef {
	t := TableDef{FQN: fqn, Columns: make([]ColumnDef, len(cols))}
	for i, c := range cols {
		t.Columns[i] = ColumnDef{
			Name:     c.Name,
			SQLType:  mapType(LogicalType(c)),
			Nullable: true,
		}
	}
	return t
}

// LogicalType names the type of c for the backend type maps. It is the kind
// name, except that timestamp columns the source reported as DATE or
// DATETIME map to "date" and "datetime" so date-only and zone-less values
// keep their type.
func LogicalType(c frame.Column) string {
	if c.Kind == frame.Timestamp {
		switch strings.ToLower(strings.TrimSpace(c.DBType)) {
		case "date":
			return "date"
		case "datetime":
			return "datetime"
		}
	}
	return c.Kind.String()
}
