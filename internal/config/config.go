// Package config defines the configuration model for the silver cleaning job.
// A Pipeline names the source and destination tables, the column renames and
// drops, the quality rules, and the runtime knobs for metrics, logging and the
// run ledger.
//
// Pipelines are stored as JSON or YAML (chosen by file extension) and are
// always overlaid onto Default(), so a file only needs the fields it changes.
//
// Example (YAML):
//
//	job: fhv_bronze_to_silver
//	source:      { kind: sqlite, dsn: "file:warehouse.db", table: raw_fhv_trips }
//	destination: { table: silver_clean_fhv_data }
//	runtime:     { batch_size: 5000, pushdown: true }
package config

import (
	"encoding/json"
	"time"

	"github.com/spf13/cast"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in metrics and the run ledger.
	Job string `json:"job" yaml:"job"`

	// Source is the bronze table to read.
	Source Table `json:"source" yaml:"source"`

	// Destination is the silver table to overwrite. Empty Kind and DSN
	// default to the source's; see ResolvedDestination.
	Destination Table `json:"destination" yaml:"destination"`

	// Renames maps source column names to their silver names.
	Renames map[string]string `json:"renames" yaml:"renames"`

	// DropColumns are removed from the output when present.
	DropColumns []string `json:"drop_columns" yaml:"drop_columns"`

	// Quality lists the row-level rules a row must satisfy to be kept.
	Quality Quality `json:"quality" yaml:"quality"`

	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	RunLog  RunLogConfig  `json:"run_log" yaml:"run_log"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// Table identifies a table behind a storage backend.
type Table struct {
	// Kind selects the storage backend (postgres, sqlite, mysql, mssql, bigquery).
	Kind string `json:"kind" yaml:"kind"`

	// DSN is the backend connection string.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the possibly qualified table name.
	Table string `json:"table" yaml:"table"`

	// Options carries backend tuning. Recognized keys: batch_size (int).
	Options Options `json:"options" yaml:"options"`
}

// Quality holds the row-level quality rules. Rules are evaluated in the
// order NotNull, Positive, NotBefore; the first failing rule is the one a
// rejected row is attributed to.
type Quality struct {
	NotNull   []string   `json:"not_null" yaml:"not_null"`
	Positive  []string   `json:"positive" yaml:"positive"`
	NotBefore []Ordering `json:"not_before" yaml:"not_before"`
}

// Ordering requires Column >= Reference.
type Ordering struct {
	Column    string `json:"column" yaml:"column"`
	Reference string `json:"reference" yaml:"reference"`
}

// RuntimeConfig controls batching and execution mode.
type RuntimeConfig struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Pushdown compiles the cleaning into one query executed by the engine
	// when the backend supports it and source and destination share it.
	Pushdown bool `json:"pushdown" yaml:"pushdown"`

	// VerifyCount re-counts the destination after the write.
	VerifyCount bool `json:"verify_count" yaml:"verify_count"`

	// Timeout bounds the whole run, e.g. "30m". Empty means no limit.
	Timeout string `json:"timeout" yaml:"timeout"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is one of none, pushgateway, datadog.
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	StatsdAddr     string   `json:"statsd_addr" yaml:"statsd_addr"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// RunLogConfig configures the optional run ledger. Empty Kind disables it.
type RunLogConfig struct {
	Kind string `json:"kind" yaml:"kind"` // sqlite or postgres
	DSN  string `json:"dsn" yaml:"dsn"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// ResolvedDestination returns the destination with Kind and DSN defaulted
// from the source.
func (p Pipeline) ResolvedDestination() Table {
	d := p.Destination
	if d.Kind == "" {
		d.Kind = p.Source.Kind
		if d.DSN == "" {
			d.DSN = p.Source.DSN
		}
	}
	return d
}

// SharedStorage reports whether source and destination live behind the same
// backend connection.
func (p Pipeline) SharedStorage() bool {
	d := p.ResolvedDestination()
	return d.Kind == p.Source.Kind && d.DSN == p.Source.DSN
}

// RunTimeout parses Runtime.Timeout. Empty or invalid values yield zero.
func (p Pipeline) RunTimeout() time.Duration {
	d, err := cast.ToDurationE(p.Runtime.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Options is a free-form map with typed accessors. Values are coerced with
// spf13/cast, so "5000", 5000 and 5000.0 all read as the int 5000.
type Options map[string]any

// String returns the value for key as a string, or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
	}
	return def
}

// Bool returns the value for key as a bool, or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return def
}

// Int returns the value for key as an int, or def.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return def
}

// Duration returns the value for key as a duration ("30s" or nanoseconds), or def.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	if v, ok := o[key]; ok {
		if d, err := cast.ToDurationE(v); err == nil {
			return d
		}
	}
	return def
}

// StringSlice returns the value for key as a []string, or nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		if s, err := cast.ToStringSliceE(v); err == nil {
			return s
		}
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
