package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	p := Default()
	p.Source = Table{Kind: "sqlite", DSN: "file:warehouse.db", Table: "raw_fhv_trips"}
	return p
}

func TestValidatePipeline_ValidDefaults(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidatePipeline_DefaultNeedsDSN(t *testing.T) {
	t.Parallel()

	issues := ValidatePipeline(Default())
	if !HasErrors(issues) {
		t.Fatalf("Default() without DSN should not validate")
	}
	if !hasIssue(t, issues, SeverityError, "source.dsn", "must not be empty") {
		t.Fatalf("missing source.dsn issue: %+v", issues)
	}
}

func TestValidatePipeline_Cases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{
			name:   "empty job",
			mutate: func(p *Pipeline) { p.Job = " " },
			sev:    SeverityError, path: "job", msg: "job must not be empty",
		},
		{
			name:   "unknown source kind",
			mutate: func(p *Pipeline) { p.Source.Kind = "oracle" },
			sev:    SeverityError, path: "source.kind", msg: `unknown storage kind "oracle"`,
		},
		{
			name:   "empty destination table",
			mutate: func(p *Pipeline) { p.Destination.Table = "" },
			sev:    SeverityError, path: "destination.table", msg: "must not be empty",
		},
		{
			name:   "destination equals source",
			mutate: func(p *Pipeline) { p.Destination.Table = "RAW_FHV_TRIPS" },
			sev:    SeverityError, path: "destination.table", msg: "must differ from source",
		},
		{
			name:   "negative batch option",
			mutate: func(p *Pipeline) { p.Source.Options = Options{"batch_size": -5} },
			sev:    SeverityError, path: "source.options.batch_size", msg: "must not be negative",
		},
		{
			name: "colliding rename targets",
			mutate: func(p *Pipeline) {
				p.Renames = map[string]string{"a": "pickup", "b": "PICKUP"}
			},
			sev: SeverityError, path: "renames.b", msg: `collides with the rename of "a"`,
		},
		{
			name:   "no renames",
			mutate: func(p *Pipeline) { p.Renames = nil },
			sev:    SeverityWarning, path: "renames", msg: "no renames configured",
		},
		{
			name:   "drop of rename target",
			mutate: func(p *Pipeline) { p.DropColumns = append(p.DropColumns, "tpep_pickup_datetime") },
			sev:    SeverityWarning, path: "drop_columns[6]", msg: "rename target",
		},
		{
			name:   "rule on pre-rename name",
			mutate: func(p *Pipeline) { p.Quality.NotNull = append(p.Quality.NotNull, "pickup_datetime") },
			sev:    SeverityError, path: "quality.not_null[4]", msg: `renamed to "tpep_pickup_datetime"`,
		},
		{
			name: "rule on dropped column",
			mutate: func(p *Pipeline) {
				p.Quality.NotBefore = append(p.Quality.NotBefore, Ordering{Column: "_modified", Reference: "tpep_pickup_datetime"})
			},
			sev: SeverityWarning, path: "quality.not_before[1].column", msg: "dropped from the output",
		},
		{
			name:   "no quality rules",
			mutate: func(p *Pipeline) { p.Quality = Quality{} },
			sev:    SeverityWarning, path: "quality", msg: "every source row",
		},
		{
			name:   "bad timeout",
			mutate: func(p *Pipeline) { p.Runtime.Timeout = "soon" },
			sev:    SeverityError, path: "runtime.timeout", msg: "not a positive duration",
		},
		{
			name:   "zero batch size",
			mutate: func(p *Pipeline) { p.Runtime.BatchSize = 0 },
			sev:    SeverityWarning, path: "runtime.batch_size", msg: "backend default",
		},
		{
			name:   "pushgateway without url",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "pushgateway" },
			sev:    SeverityError, path: "metrics.pushgateway_url", msg: "requires pushgateway_url",
		},
		{
			name:   "datadog without addr",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "datadog" },
			sev:    SeverityError, path: "metrics.statsd_addr", msg: "requires statsd_addr",
		},
		{
			name:   "unknown metrics backend",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "graphite" },
			sev:    SeverityWarning, path: "metrics.backend", msg: "unknown metrics backend",
		},
		{
			name:   "run log without dsn",
			mutate: func(p *Pipeline) { p.RunLog.Kind = "sqlite" },
			sev:    SeverityError, path: "run_log.dsn", msg: "must not be empty",
		},
		{
			name:   "run log unknown kind",
			mutate: func(p *Pipeline) { p.RunLog = RunLogConfig{Kind: "mongo", DSN: "x"} },
			sev:    SeverityError, path: "run_log.kind", msg: "unknown run_log kind",
		},
		{
			name:   "bad log level",
			mutate: func(p *Pipeline) { p.Log.Level = "loud" },
			sev:    SeverityError, path: "log.level", msg: "invalid log level",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("want %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "source.dsn", Message: "boom"}
	if got, want := iss.Error(), "error at source.dsn: boom"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("HasErrors true for warnings only")
	}
}
