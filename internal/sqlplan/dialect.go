package sqlplan

import "strings"

// quoted implements Dialect for engines that wrap identifiers in a pair of
// delimiters and escape the closing one by doubling it.
type quoted struct {
	open, close string
}

func (q quoted) QuoteIdent(name string) string {
	return q.open + strings.ReplaceAll(name, q.close, q.close+q.close) + q.close
}

func (q quoted) QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, q.QuoteIdent(p))
		}
	}
	return strings.Join(out, ".")
}

var (
	// ANSI quotes identifiers with double quotes (Postgres, SQLite).
	ANSI Dialect = quoted{open: `"`, close: `"`}
	// Brackets quotes identifiers the SQL Server way.
	Brackets Dialect = quoted{open: "[", close: "]"}
	// Backticks quotes identifiers the MySQL way.
	Backticks Dialect = quoted{open: "`", close: "`"}
)

// BigQuery quotes a table reference as a single backticked path, which is
// how GoogleSQL accepts project-qualified names containing dashes.
var BigQuery Dialect = bigQuery{}

type bigQuery struct{}

func (bigQuery) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func (bigQuery) QuoteTable(name string) string {
	return "`" + strings.ReplaceAll(strings.TrimSpace(name), "`", "\\`") + "`"
}
