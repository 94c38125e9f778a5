// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import "strings"

// MapType maps a logical kind name onto a Postgres column type.
//
//	"int"/"integer"/"bigint"   -> BIGINT
//	"float"/"double"/"numeric" -> DOUBLE PRECISION
//	"bool"/"boolean"           -> BOOLEAN
//	"timestamp"/"timestamptz"  -> TIMESTAMPTZ
//	"datetime"                 -> TIMESTAMP
//	"date"                     -> DATE
//	"bytes"                    -> BYTEA
//	everything else            -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "float", "double", "numeric":
		return "DOUBLE PRECISION"
	case "bool", "boolean":
		return "BOOLEAN"
	case "timestamp", "timestamptz":
		return "TIMESTAMPTZ"
	case "datetime":
		return "TIMESTAMP"
	case "date":
		return "DATE"
	case "bytes":
		return "BYTEA"
	default:
		return "TEXT"
	}
}
