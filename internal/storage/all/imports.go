// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. The following kinds become
// available:
//
//   - "postgres" (fhvclean/internal/storage/postgres)
//   - "sqlite"   (fhvclean/internal/storage/sqlite)
//   - "mysql"    (fhvclean/internal/storage/mysql)
//   - "mssql"    (fhvclean/internal/storage/mssql)
//   - "bigquery" (fhvclean/internal/storage/bigquery)
//
// Typical usage, in cmd/fhvclean:
//
//	import _ "fhvclean/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:fhv.db"})
//
// A binary that needs only a subset of backends can blank-import those
// packages directly instead.
package all

import (
	_ "fhvclean/internal/storage/bigquery"
	_ "fhvclean/internal/storage/mssql"
	_ "fhvclean/internal/storage/mysql"
	_ "fhvclean/internal/storage/postgres"
	_ "fhvclean/internal/storage/sqlite"
)
