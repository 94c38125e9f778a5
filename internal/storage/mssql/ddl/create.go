package ddl

import (
	gddl "fhvclean/internal/ddl"
	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// BuildCreateTableSQL returns a T-SQL CREATE TABLE statement using bracket
// quoting: [schema].[table], [col].
func BuildCreateTableSQL(table string, cols []frame.Column) (string, error) {
	return gddl.BuildCreateTableSQL(gddl.FromColumns(table, cols, MapType), sqlplan.Brackets)
}

// BuildDropTableSQL returns DROP TABLE IF EXISTS (SQL Server 2016+).
func BuildDropTableSQL(table string) string {
	return gddl.BuildDropTableSQL(table, sqlplan.Brackets)
}

// BuildSelectIntoSQL wraps query so its result lands in a new table. T-SQL
// has no CREATE TABLE AS; SELECT ... INTO from a derived table is the
// equivalent.
func BuildSelectIntoSQL(table, query string) string {
	return "SELECT * INTO " + sqlplan.Brackets.QuoteTable(table) + " FROM (" + query + ") AS cleaned"
}
