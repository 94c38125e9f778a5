package ddl

import (
	gddl "fhvclean/internal/ddl"
	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// BuildCreateTableSQL returns a Postgres CREATE TABLE statement with one
// nullable column per frame column.
func BuildCreateTableSQL(table string, cols []frame.Column) (string, error) {
	return gddl.BuildCreateTableSQL(gddl.FromColumns(table, cols, MapType), sqlplan.ANSI)
}

// BuildDropTableSQL returns DROP TABLE IF EXISTS for table.
func BuildDropTableSQL(table string) string {
	return gddl.BuildDropTableSQL(table, sqlplan.ANSI)
}
