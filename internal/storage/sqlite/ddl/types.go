// Package ddl contains SQLite-specific helpers for generating DDL.
package ddl

import "strings"

// MapType maps a logical kind name onto a SQLite column type.
//
// SQLite is dynamically typed; the declared type only sets the affinity.
// Timestamps are declared DATETIME so the driver scans them back into
// time.Time, and booleans are stored as INTEGER 0/1.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint", "bool", "boolean":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "timestamp", "datetime", "timestamptz":
		return "DATETIME"
	case "date":
		return "DATE"
	case "bytes", "blob":
		return "BLOB"
	default:
		return "TEXT"
	}
}
