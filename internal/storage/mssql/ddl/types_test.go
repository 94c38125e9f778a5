package ddl

import (
	"testing"

	"fhvclean/internal/frame"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind string
		want string
	}{
		{name: "int lower", kind: "int", want: "BIGINT"},
		{name: "integer mixed case", kind: " InTeGeR ", want: "BIGINT"},
		{name: "bool", kind: "bool", want: "BIT"},
		{name: "timestamp", kind: "timestamp", want: "DATETIME2"},
		{name: "date", kind: "date", want: "DATE"},
		{name: "float", kind: "float", want: "FLOAT"},
		{name: "bytes", kind: "bytes", want: "VARBINARY(MAX)"},
		{name: "string", kind: "string", want: "NVARCHAR(MAX)"},
		{name: "empty", kind: "", want: "NVARCHAR(MAX)"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MapType(tt.kind); got != tt.want {
				t.Fatalf("MapType(%q) = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestBuildStatements(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL("dbo.silver", []frame.Column{{Name: "pulocation_id", Kind: frame.Int}})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL error: %v", err)
	}
	if want := "CREATE TABLE [dbo].[silver] (\n  [pulocation_id] BIGINT\n)"; got != want {
		t.Fatalf("create = %q, want %q", got, want)
	}
	if got := BuildDropTableSQL("dbo.silver"); got != "DROP TABLE IF EXISTS [dbo].[silver]" {
		t.Fatalf("drop = %q", got)
	}
	if got := BuildSelectIntoSQL("dbo.silver", "SELECT 1 AS [x]"); got != "SELECT * INTO [dbo].[silver] FROM (SELECT 1 AS [x]) AS cleaned" {
		t.Fatalf("select into = %q", got)
	}
}
