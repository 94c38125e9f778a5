// Package storage contains the storage-agnostic repository contract, the
// backend registry, and shared loading utilities.
//
// Backends (postgres, sqlite, mssql, mysql, bigquery) register a Factory from
// their init functions; callers obtain a Repository through New without
// importing a backend directly. Import fhvclean/internal/storage/all (blank) in
// the binary to make every backend available.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

// ErrTableNotFound is returned (wrapped) by backends when a table identifier
// does not resolve.
var ErrTableNotFound = errors.New("table not found")

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 5000

// Repository reads and replaces whole tables.
type Repository interface {
	// ReadTable loads every row of table.
	ReadTable(ctx context.Context, table string) (*frame.Frame, error)
	// OverwriteTable replaces table with the contents of f, creating it when
	// needed, and returns the number of rows written.
	OverwriteTable(ctx context.Context, table string, f *frame.Frame) (int64, error)
	// CountRows returns the number of rows currently in table.
	CountRows(ctx context.Context, table string) (int64, error)
	// Exec runs an arbitrary statement (DDL, fixtures).
	Exec(ctx context.Context, sql string) error
	Close()
}

// Pushdowner is implemented by backends that can run a compiled cleaning
// query inside the engine and store its result.
type Pushdowner interface {
	// Columns returns the schema of table without reading its rows.
	Columns(ctx context.Context, table string) ([]frame.Column, error)
	// Dialect returns the quoting rules for queries run by this backend.
	Dialect() sqlplan.Dialect
	// OverwriteFromQuery replaces table with the result of query and returns
	// the number of rows written. cols is the query's output schema; engines
	// whose CREATE TABLE AS keeps column types may ignore it.
	OverwriteFromQuery(ctx context.Context, table string, cols []frame.Column, query string) (int64, error)
}

// Config selects and configures a backend.
type Config struct {
	Kind      string
	DSN       string
	BatchSize int
}

// Factory constructs a Repository for a backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. It is typically
// called from backend packages' init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return f(ctx, cfg)
}

// NotFound wraps ErrTableNotFound with the table name and the engine error.
func NotFound(table string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return fmt.Errorf("%w: %s: %w", ErrTableNotFound, table, cause)
}
