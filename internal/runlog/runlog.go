// Package runlog keeps an audit ledger of cleaning runs in a relational table
// managed by gorm.
package runlog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// pure-Go "sqlite" database/sql driver used by the sqlite dialector
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one ledger row.
type Run struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Job          string    `gorm:"not null;size:100;index" json:"job"`
	Source       string    `gorm:"size:255" json:"source"`
	Destination  string    `gorm:"size:255" json:"destination"`
	Status       string    `gorm:"not null;size:20" json:"status"`
	RowsRead     int64     `json:"rows_read"`
	RowsRejected int64     `json:"rows_rejected"`
	RowsWritten  int64     `json:"rows_written"`
	Fingerprint  string    `gorm:"size:32" json:"fingerprint"`
	Pushdown     bool      `json:"pushdown"`
	Error        string    `gorm:"type:text" json:"error,omitempty"`
	StartedAt    time.Time `gorm:"index" json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// TableName implements gorm's tabler interface.
func (Run) TableName() string { return "fhvclean_runs" }

// Ledger appends and lists runs.
type Ledger struct {
	db *gorm.DB
}

// Open connects to the ledger database and migrates the runs table. kind is
// "sqlite" or "postgres".
func Open(kind, dsn string) (*Ledger, error) {
	var dialector gorm.Dialector
	switch kind {
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn})
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("runlog: unsupported kind %q", kind)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", kind, err)
	}
	if kind == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("runlog: %w", err)
		}
		// one connection keeps ":memory:" databases alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the runs table.
func New(db *gorm.DB) (*Ledger, error) {
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("runlog: migrate: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record appends run.
func (l *Ledger) Record(ctx context.Context, run *Run) error {
	if err := l.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("runlog: record %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to n runs of job, newest first.
func (l *Ledger) Recent(ctx context.Context, job string, n int) ([]Run, error) {
	var runs []Run
	err := l.db.WithContext(ctx).
		Where("job = ?", job).
		Order("started_at DESC").
		Limit(n).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("runlog: recent %s: %w", job, err)
	}
	return runs, nil
}

// Close closes the underlying connection pool.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
