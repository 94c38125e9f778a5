// Package mysql implements storage.Repository on go-sql-driver/mysql.
//
// MySQL commits DDL implicitly, so a replace cannot run in one transaction.
// Instead the new contents are built in a staging table and swapped in with a
// single RENAME TABLE, which MySQL performs atomically.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
	"fhvclean/internal/storage"
	myddl "fhvclean/internal/storage/mysql/ddl"
	"fhvclean/internal/storage/sqldb"
)

// MySQL server error numbers that mean "no such table".
const (
	errNoSuchTable = 1146 // ER_NO_SUCH_TABLE
	errBadDB       = 1049 // ER_BAD_DB_ERROR
)

// maxParams is the prepared-statement placeholder limit.
const maxParams = 65535

const (
	stageSuffix = "__fhvclean_new"
	oldSuffix   = "__fhvclean_old"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN       string // go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/db
	BatchSize int
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
	ins sqldb.Inserter
	log *zap.Logger
}

// New wraps an already opened database.
func New(db *sql.DB, cfg Config) *Repository {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	return &Repository{
		db:  db,
		cfg: cfg,
		ins: sqldb.Inserter{Dialect: sqlplan.Backticks, Placeholder: sqldb.Question, MaxParams: maxParams},
		log: zap.L().Named("mysql"),
	}
}

// NewRepository opens a connection pool and returns a Repository plus a Close
// function. DATETIME values are always parsed into time.Time in UTC.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return New(db, cfg), func() { db.Close() }, nil
}

func normalizeDSN(dsn string) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: parse DSN: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc, nil
}

// ReadTable implements storage.Repository.
func (r *Repository) ReadTable(ctx context.Context, table string) (*frame.Frame, error) {
	f, err := sqldb.Query(ctx, r.db, "SELECT * FROM "+sqlplan.Backticks.QuoteTable(table))
	if err != nil {
		return nil, mapErr(table, err)
	}
	r.log.Debug("table read", zap.String("table", table), zap.Int("rows", f.Len()))
	return f, nil
}

// Columns implements storage.Pushdowner.
func (r *Repository) Columns(ctx context.Context, table string) ([]frame.Column, error) {
	f, err := sqldb.Query(ctx, r.db, "SELECT * FROM "+sqlplan.Backticks.QuoteTable(table)+" LIMIT 0")
	if err != nil {
		return nil, mapErr(table, err)
	}
	return f.Columns, nil
}

// Dialect implements storage.Pushdowner.
func (r *Repository) Dialect() sqlplan.Dialect { return sqlplan.Backticks }

// OverwriteTable implements storage.Repository.
func (r *Repository) OverwriteTable(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	stage := table + stageSuffix
	create, err := myddl.BuildCreateTableSQL(stage, f.Columns)
	if err != nil {
		return 0, fmt.Errorf("mysql: overwrite %s: %w", table, err)
	}

	n, err := r.swap(ctx, table, func() (int64, error) {
		if err := r.Exec(ctx, create); err != nil {
			return 0, err
		}
		return storage.StreamRows(ctx, f, r.cfg.BatchSize, func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
			return r.ins.Insert(ctx, r.db, stage, columns, frame.CoerceRows(f.Columns, rows))
		})
	})
	if err != nil {
		return 0, fmt.Errorf("mysql: overwrite %s: %w", table, err)
	}
	return n, nil
}

// OverwriteFromQuery implements storage.Pushdowner with CREATE TABLE ... AS
// into the staging table.
func (r *Repository) OverwriteFromQuery(ctx context.Context, table string, _ []frame.Column, query string) (int64, error) {
	stage := table + stageSuffix
	n, err := r.swap(ctx, table, func() (int64, error) {
		res, err := r.db.ExecContext(ctx, "CREATE TABLE "+sqlplan.Backticks.QuoteTable(stage)+" AS "+query)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
	if err != nil {
		return 0, fmt.Errorf("mysql: overwrite %s from query: %w", table, err)
	}
	return n, nil
}

// swap builds table's replacement with build (which must create and fill
// table+stageSuffix) and renames it into place. The destination is untouched
// until the rename; on failure the staging table is dropped.
func (r *Repository) swap(ctx context.Context, table string, build func() (int64, error)) (int64, error) {
	q := sqlplan.Backticks.QuoteTable
	stage, old := table+stageSuffix, table+oldSuffix

	if err := r.Exec(ctx, myddl.BuildDropTableSQL(stage)); err != nil {
		return 0, err
	}
	n, err := build()
	if err != nil {
		r.cleanup(stage)
		return 0, err
	}

	steps := []string{
		"CREATE TABLE IF NOT EXISTS " + q(table) + " LIKE " + q(stage),
		myddl.BuildDropTableSQL(old),
		"RENAME TABLE " + q(table) + " TO " + q(old) + ", " + q(stage) + " TO " + q(table),
	}
	for _, s := range steps {
		if err := r.Exec(ctx, s); err != nil {
			r.cleanup(stage)
			return 0, err
		}
	}
	if err := r.Exec(ctx, myddl.BuildDropTableSQL(old)); err != nil {
		r.log.Warn("drop replaced table", zap.String("table", old), zap.Error(err))
	}
	return n, nil
}

// cleanup drops the staging table on a fresh context so it runs even when
// ctx was cancelled.
func (r *Repository) cleanup(stage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Exec(ctx, myddl.BuildDropTableSQL(stage)); err != nil {
		r.log.Warn("drop staging table", zap.String("table", stage), zap.Error(err))
	}
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	n, err := sqldb.Count(ctx, r.db, sqlplan.Backticks, table)
	if err != nil {
		return 0, mapErr(table, err)
	}
	return n, nil
}

// Exec implements storage.Repository.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, sql)
	return err
}

func mapErr(table string, err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == errNoSuchTable || me.Number == errBadDB) {
		return storage.NotFound(table, err)
	}
	return fmt.Errorf("mysql: %s: %w", table, err)
}
