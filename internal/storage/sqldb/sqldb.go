// Package sqldb holds the database/sql plumbing shared by the SQLite, MySQL
// and SQL Server backends: whole-table reads into a frame, row counts, and
// multi-row INSERT batches bounded by the engine's bind-parameter limit.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// KindOf derives a frame.Kind from a driver column type.
func KindOf(ct *sql.ColumnType) frame.Kind {
	return frame.ParseKind(ct.DatabaseTypeName())
}

// Columns describes the result set of rows.
func Columns(rows *sql.Rows) ([]frame.Column, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]frame.Column, len(cts))
	for i, ct := range cts {
		cols[i] = frame.Column{Name: ct.Name(), Kind: KindOf(ct), DBType: ct.DatabaseTypeName()}
	}
	return cols, nil
}

// Query runs query and loads the full result into a frame. Drivers that
// return text-protocol values as []byte have them converted according to the
// column kind; BLOB-like columns keep their bytes.
func Query(ctx context.Context, q Queryer, query string, args ...any) (*frame.Frame, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := Columns(rows)
	if err != nil {
		return nil, err
	}
	f := frame.New(cols)

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok && cols[i].Kind != frame.Bytes {
				if cols[i].Kind == frame.Unknown || cols[i].Kind == frame.String {
					vals[i] = string(b)
				} else {
					vals[i] = frame.Coerce(cols[i].Kind, string(b))
				}
			}
		}
		f.Rows = append(f.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// Count runs SELECT COUNT(*) against table.
func Count(ctx context.Context, db *sql.DB, d sqlplan.Dialect, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.QuoteTable(table)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Placeholder renders the i-th (0-based) bind parameter.
type Placeholder func(i int) string

// Question renders "?" placeholders (SQLite, MySQL).
func Question(int) string { return "?" }

// AtP renders "@p1", "@p2", ... placeholders (SQL Server).
func AtP(i int) string { return fmt.Sprintf("@p%d", i+1) }

// Inserter writes rows with multi-row INSERT statements.
type Inserter struct {
	Dialect     sqlplan.Dialect
	Placeholder Placeholder
	// MaxParams caps bind parameters per statement (SQLite 32766, MySQL
	// 65535, SQL Server 2100).
	MaxParams int
}

// Insert writes rows into table and returns the number of rows the driver
// reports as affected.
func (in Inserter) Insert(ctx context.Context, db Execer, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqldb: insert into %s: no columns", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	perStmt := len(rows)
	if in.MaxParams > 0 {
		perStmt = in.MaxParams / len(columns)
		if perStmt < 1 {
			return 0, fmt.Errorf("sqldb: insert into %s: %d columns exceed %d parameters", table, len(columns), in.MaxParams)
		}
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = in.Dialect.QuoteIdent(c)
	}
	prefix := "INSERT INTO " + in.Dialect.QuoteTable(table) + " (" + strings.Join(quoted, ", ") + ") VALUES "

	var total int64
	for start := 0; start < len(rows); start += perStmt {
		end := start + perStmt
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(chunk)*len(columns))
		for r, row := range chunk {
			if len(row) != len(columns) {
				return total, fmt.Errorf("sqldb: insert into %s: row length %d != columns length %d", table, len(row), len(columns))
			}
			if r > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for c := range row {
				if c > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(in.Placeholder(len(args)))
				args = append(args, row[c])
			}
			sb.WriteByte(')')
		}

		res, err := db.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(chunk))
		}
		total += n
	}
	return total, nil
}
