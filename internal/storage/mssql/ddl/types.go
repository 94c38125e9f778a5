// Package ddl contains SQL Server-specific helpers for generating DDL.
package ddl

import "strings"

// MapType maps a logical kind name onto a SQL Server column type. Unknown or
// empty kinds fall back to NVARCHAR(MAX).
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BIT"
	case "timestamp", "datetime", "timestamptz":
		return "DATETIME2"
	case "date":
		return "DATE"
	case "float", "double":
		return "FLOAT"
	case "bytes":
		return "VARBINARY(MAX)"
	default:
		return "NVARCHAR(MAX)"
	}
}
