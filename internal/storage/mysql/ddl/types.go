// Package ddl contains MySQL-specific helpers for generating DDL.
package ddl

import (
	"strings"

	gddl "fhvclean/internal/ddl"
	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// MapType maps a logical kind name onto a MySQL column type. Timestamps use
// DATETIME(6) so sub-second precision survives and no session time zone
// conversion applies.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "TINYINT(1)"
	case "float", "double":
		return "DOUBLE"
	case "timestamp", "datetime":
		return "DATETIME(6)"
	case "date":
		return "DATE"
	case "bytes":
		return "LONGBLOB"
	default:
		return "LONGTEXT"
	}
}

// BuildCreateTableSQL returns a MySQL CREATE TABLE statement using backtick
// quoting.
func BuildCreateTableSQL(table string, cols []frame.Column) (string, error) {
	return gddl.BuildCreateTableSQL(gddl.FromColumns(table, cols, MapType), sqlplan.Backticks)
}

// BuildDropTableSQL returns DROP TABLE IF EXISTS for table.
func BuildDropTableSQL(table string) string {
	return gddl.BuildDropTableSQL(table, sqlplan.Backticks)
}
