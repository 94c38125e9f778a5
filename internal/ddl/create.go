// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render the CREATE/DROP statements used when a table is replaced.
//
// Backend packages (internal/storage/<kind>/ddl) provide the type mapping and
// pick the identifier quoting; rendering is shared.
package ddl

import (
	"fmt"
	"strings"

	"fhvclean/internal/sqlplan"
)

// BuildCreateTableSQL renders
//
//	CREATE TABLE <table> (
//	  <col> <type> [NOT NULL],
//	  ...
//	)
//
// quoting the table and column names with d.
func BuildCreateTableSQL(t TableDef, d sqlplan.Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteTable(fqn), strings.Join(cols, ",\n  ")), nil
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS for fqn.
func BuildDropTableSQL(fqn string, d sqlplan.Dialect) string {
	return "DROP TABLE IF EXISTS " + d.QuoteTable(fqn)
}

// BuildCreateTableAsSQL renders CREATE TABLE <table> AS <query>.
func BuildCreateTableAsSQL(fqn, query string, d sqlplan.Dialect) string {
	return "CREATE TABLE " + d.QuoteTable(fqn) + " AS " + query
}
