// Package postgres implements storage.Repository on pgx v5. Tables are
// replaced inside one transaction (DROP, CREATE, COPY), so readers see either
// the previous contents or the new ones.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
	"fhvclean/internal/storage"
	pgddl "fhvclean/internal/storage/postgres/ddl"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN       string // connection string for pgxpool
	BatchSize int    // rows per COPY batch
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
	log  *zap.Logger
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	r := &Repository{pool: pool, cfg: cfg, log: zap.L().Named("postgres")}
	return r, pool.Close, nil
}

// ReadTable implements storage.Repository.
func (r *Repository) ReadTable(ctx context.Context, table string) (*frame.Frame, error) {
	rows, err := r.pool.Query(ctx, "SELECT * FROM "+sqlplan.ANSI.QuoteTable(table))
	if err != nil {
		return nil, mapErr(table, err)
	}
	defer rows.Close()

	f := frame.New(columnsOf(rows.FieldDescriptions(), rows.Conn().TypeMap()))
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: read %s: %w", table, err)
		}
		f.Rows = append(f.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(table, err)
	}
	r.log.Debug("table read", zap.String("table", table), zap.Int("rows", f.Len()))
	return f, nil
}

// Columns implements storage.Pushdowner.
func (r *Repository) Columns(ctx context.Context, table string) ([]frame.Column, error) {
	rows, err := r.pool.Query(ctx, "SELECT * FROM "+sqlplan.ANSI.QuoteTable(table)+" LIMIT 0")
	if err != nil {
		return nil, mapErr(table, err)
	}
	defer rows.Close()
	cols := columnsOf(rows.FieldDescriptions(), rows.Conn().TypeMap())
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(table, err)
	}
	return cols, nil
}

// Dialect implements storage.Pushdowner.
func (r *Repository) Dialect() sqlplan.Dialect { return sqlplan.ANSI }

// OverwriteTable implements storage.Repository.
func (r *Repository) OverwriteTable(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	create, err := pgddl.BuildCreateTableSQL(table, f.Columns)
	if err != nil {
		return 0, fmt.Errorf("postgres: overwrite %s: %w", table, err)
	}

	var n int64
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgddl.BuildDropTableSQL(table)); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
		if _, err := tx.Exec(ctx, create); err != nil {
			return fmt.Errorf("create: %w", err)
		}
		id := splitFQN(table)
		n, err = storage.StreamRows(ctx, f, r.cfg.BatchSize, func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
			return tx.CopyFrom(ctx, id, columns, pgx.CopyFromRows(frame.CoerceRows(f.Columns, rows)))
		})
		if err != nil {
			return fmt.Errorf("copy: %w", describe(err))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: overwrite %s: %w", table, err)
	}
	return n, nil
}

// OverwriteFromQuery implements storage.Pushdowner with CREATE TABLE AS,
// which keeps the source column types.
func (r *Repository) OverwriteFromQuery(ctx context.Context, table string, _ []frame.Column, query string) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgddl.BuildDropTableSQL(table)); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
		tag, err := tx.Exec(ctx, "CREATE TABLE "+sqlplan.ANSI.QuoteTable(table)+" AS "+query)
		if err != nil {
			return fmt.Errorf("create as: %w", describe(err))
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: overwrite %s from query: %w", table, err)
	}
	return n, nil
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+sqlplan.ANSI.QuoteTable(table)).Scan(&n); err != nil {
		return 0, mapErr(table, err)
	}
	return n, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// columnsOf maps result-set fields onto frame columns.
func columnsOf(fds []pgconn.FieldDescription, m *pgtype.Map) []frame.Column {
	cols := make([]frame.Column, len(fds))
	for i, fd := range fds {
		dbType := ""
		if m != nil {
			if t, ok := m.TypeForOID(fd.DataTypeOID); ok {
				dbType = t.Name
			}
		}
		cols[i] = frame.Column{Name: fd.Name, Kind: kindOf(fd.DataTypeOID), DBType: dbType}
	}
	return cols
}

// kindOf maps a Postgres type OID onto a frame.Kind.
func kindOf(oid uint32) frame.Kind {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return frame.Int
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return frame.Float
	case pgtype.BoolOID:
		return frame.Bool
	case pgtype.TimestampOID, pgtype.TimestamptzOID, pgtype.DateOID:
		return frame.Timestamp
	case pgtype.ByteaOID:
		return frame.Bytes
	default:
		return frame.String
	}
}

// Not-found SQLSTATEs: undefined_table and invalid_schema_name.
const (
	undefinedTable    = "42P01"
	invalidSchemaName = "3F000"
)

// mapErr translates undefined-relation errors into storage.ErrTableNotFound.
func mapErr(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == undefinedTable || pgErr.Code == invalidSchemaName) {
		return storage.NotFound(table, err)
	}
	return fmt.Errorf("postgres: %s: %w", table, err)
}

// describe adds the server-side detail to a PgError, when there is one.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s)", err, pgErr.Detail)
	}
	return err
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}
