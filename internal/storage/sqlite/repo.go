// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. A table is replaced inside one
// transaction (DROP, CREATE, batched multi-row INSERT).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
	"fhvclean/internal/storage"
	"fhvclean/internal/storage/sqldb"
	sqliteddl "fhvclean/internal/storage/sqlite/ddl"
)

// maxParams is SQLITE_MAX_VARIABLE_NUMBER for SQLite >= 3.32.
const maxParams = 32766

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.
	// "file:fhv.db?_pragma=busy_timeout(5000)" or ":memory:".
	DSN string

	// BatchSize is the number of rows per INSERT transaction step.
	BatchSize int
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
	ins sqldb.Inserter
	log *zap.Logger
}

// Open opens a SQLite database. The pool is limited to one connection so an
// in-memory database is shared by every statement and writers never contend
// for the file lock.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New wraps an already opened database.
func New(db *sql.DB, cfg Config) *Repository {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	return &Repository{
		db:  db,
		cfg: cfg,
		ins: sqldb.Inserter{Dialect: sqlplan.ANSI, Placeholder: sqldb.Question, MaxParams: maxParams},
		log: zap.L().Named("sqlite"),
	}
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return New(db, cfg), func() { db.Close() }, nil
}

// ReadTable implements storage.Repository.
func (r *Repository) ReadTable(ctx context.Context, table string) (*frame.Frame, error) {
	f, err := sqldb.Query(ctx, r.db, "SELECT * FROM "+sqlplan.ANSI.QuoteTable(table))
	if err != nil {
		return nil, mapErr(table, err)
	}
	r.log.Debug("table read", zap.String("table", table), zap.Int("rows", f.Len()))
	return f, nil
}

// Columns implements storage.Pushdowner.
func (r *Repository) Columns(ctx context.Context, table string) ([]frame.Column, error) {
	f, err := sqldb.Query(ctx, r.db, "SELECT * FROM "+sqlplan.ANSI.QuoteTable(table)+" LIMIT 0")
	if err != nil {
		return nil, mapErr(table, err)
	}
	return f.Columns, nil
}

// Dialect implements storage.Pushdowner.
func (r *Repository) Dialect() sqlplan.Dialect { return sqlplan.ANSI }

// OverwriteTable implements storage.Repository.
func (r *Repository) OverwriteTable(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	var n int64
	err := r.replace(ctx, table, f.Columns, func(tx *sql.Tx) error {
		var err error
		n, err = storage.StreamRows(ctx, f, r.cfg.BatchSize, func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
			return r.ins.Insert(ctx, tx, table, columns, frame.CoerceRows(f.Columns, rows))
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite: overwrite %s: %w", table, err)
	}
	return n, nil
}

// OverwriteFromQuery implements storage.Pushdowner. SQLite's CREATE TABLE AS
// discards declared types (DATETIME would read back as text), so the table is
// created from cols first and filled with INSERT ... SELECT.
func (r *Repository) OverwriteFromQuery(ctx context.Context, table string, cols []frame.Column, query string) (int64, error) {
	var n int64
	err := r.replace(ctx, table, cols, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "INSERT INTO "+sqlplan.ANSI.QuoteTable(table)+" "+query)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite: overwrite %s from query: %w", table, err)
	}
	return n, nil
}

// replace drops and recreates table with cols, then runs fill, all in one
// transaction.
func (r *Repository) replace(ctx context.Context, table string, cols []frame.Column, fill func(*sql.Tx) error) error {
	create, err := sqliteddl.BuildCreateTableSQL(table, cols)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sqliteddl.BuildDropTableSQL(table)); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if err := fill(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	n, err := sqldb.Count(ctx, r.db, sqlplan.ANSI, table)
	if err != nil {
		return 0, mapErr(table, err)
	}
	return n, nil
}

// Exec executes an arbitrary SQL statement (typically DDL or fixtures).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// mapErr translates "no such table" errors into storage.ErrTableNotFound.
// The modernc driver reports them only through the message text.
func mapErr(table string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return storage.NotFound(table, err)
	}
	return fmt.Errorf("sqlite: %s: %w", table, err)
}
