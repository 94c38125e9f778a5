package ddl

import (
	"strings"
	"testing"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		dialect     sqlplan.Dialect
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			dialect:     sqlplan.ANSI,
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "public.t"},
			dialect:     sqlplan.ANSI,
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "INT"}}},
			dialect:     sqlplan.ANSI,
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			dialect:     sqlplan.ANSI,
			errContains: "column id missing SQLType",
		},
		{
			name: "ansi quoting and nullability",
			def: TableDef{FQN: "public.silver", Columns: []ColumnDef{
				{Name: "pulocation_id", SQLType: "BIGINT"},
				{Name: "tpep_pickup_datetime", SQLType: "TIMESTAMPTZ", Nullable: true},
			}},
			dialect: sqlplan.ANSI,
			wantSQL: "CREATE TABLE \"public\".\"silver\" (\n  \"pulocation_id\" BIGINT NOT NULL,\n  \"tpep_pickup_datetime\" TIMESTAMPTZ\n)",
		},
		{
			name:    "bracket quoting",
			def:     TableDef{FQN: "dbo.silver", Columns: []ColumnDef{{Name: "a]b", SQLType: "BIGINT", Nullable: true}}},
			dialect: sqlplan.Brackets,
			wantSQL: "CREATE TABLE [dbo].[silver] (\n  [a]]b] BIGINT\n)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def, tt.dialect)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tt.wantSQL)
			}
		})
	}
}

func TestFromColumns(t *testing.T) {
	t.Parallel()

	cols := []frame.Column{
		{Name: "pulocation_id", Kind: frame.Int},
		{Name: "tpep_pickup_datetime", Kind: frame.Timestamp},
	}
	def := FromColumns("silver", cols, func(kind string) string { return strings.ToUpper(kind) })

	if def.FQN != "silver" || len(def.Columns) != 2 {
		t.Fatalf("def = %+v", def)
	}
	if c := def.Columns[1]; c.Name != "tpep_pickup_datetime" || c.SQLType != "TIMESTAMP" || !c.Nullable {
		t.Fatalf("column[1] = %+v", c)
	}
}

func TestLogicalType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		col  frame.Column
		want string
	}{
		{frame.Column{Kind: frame.Int, DBType: "INTEGER"}, "int"},
		{frame.Column{Kind: frame.Timestamp}, "timestamp"},
		{frame.Column{Kind: frame.Timestamp, DBType: "timestamptz"}, "timestamp"},
		{frame.Column{Kind: frame.Timestamp, DBType: "DATE"}, "date"},
		{frame.Column{Kind: frame.Timestamp, DBType: "date"}, "date"},
		{frame.Column{Kind: frame.Timestamp, DBType: "DATETIME"}, "datetime"},
		{frame.Column{Kind: frame.String, DBType: "DATE"}, "string"},
	}
	for _, tt := range tests {
		if got := LogicalType(tt.col); got != tt.want {
			t.Errorf("LogicalType(%+v) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestDropAndCreateAs(t *testing.T) {
	t.Parallel()

	if got := BuildDropTableSQL("main.silver", sqlplan.ANSI); got != `DROP TABLE IF EXISTS "main"."silver"` {
		t.Fatalf("drop = %q", got)
	}
	if got := BuildCreateTableAsSQL("silver", "SELECT 1", sqlplan.Backticks); got != "CREATE TABLE `silver` AS SELECT 1" {
		t.Fatalf("ctas = %q", got)
	}
}
