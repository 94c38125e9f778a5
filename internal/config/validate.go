package config

// This file adds a lightweight linter for Pipeline values. It performs static
// checks over a decoded Pipeline and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap/zapcore"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "source.kind",
// "quality.not_before[0].reference"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// knownStorage lists the backends compiled into the binary.
var knownStorage = map[string]struct{}{
	"bigquery": {},
	"mssql":    {},
	"mysql":    {},
	"postgres": {},
	"sqlite":   {},
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateTable("source", p.Source)...)
	issues = append(issues, validateTable("destination", p.ResolvedDestination())...)
	if p.SharedStorage() && p.Source.Table != "" && strings.EqualFold(p.Source.Table, p.ResolvedDestination().Table) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "destination.table",
			Message:  "destination must differ from source; the overwrite would destroy the input",
		})
	}
	issues = append(issues, validateRenames(p.Renames)...)
	issues = append(issues, validateDrops(p)...)
	issues = append(issues, validateQuality(p)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateRunLog(p.RunLog)...)
	issues = append(issues, validateLog(p.Log)...)

	return issues
}

// validateTable validates one storage endpoint.
func validateTable(path string, t Table) []Issue {
	var issues []Issue

	if strings.TrimSpace(t.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  path + ".kind must not be empty",
		})
	} else if _, ok := knownStorage[t.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown storage kind %q", t.Kind),
		})
	}
	if strings.TrimSpace(t.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".dsn",
			Message:  path + ".dsn must not be empty",
		})
	}
	if strings.TrimSpace(t.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".table",
			Message:  path + ".table must not be empty",
		})
	}
	if n := t.Options.Int("batch_size", 0); n < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".options.batch_size",
			Message:  fmt.Sprintf("batch_size=%d must not be negative", n),
		})
	}

	return issues
}

// validateRenames checks for empty names and two columns renamed to the same
// target.
func validateRenames(renames map[string]string) []Issue {
	var issues []Issue

	seen := map[string]string{}
	for _, from := range sortedKeys(renames) {
		to := renames[from]
		path := "renames." + from
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "rename source and target must not be empty",
			})
			continue
		}
		key := strings.ToLower(to)
		if prev, ok := seen[key]; ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("target %q collides with the rename of %q", to, prev),
			})
			continue
		}
		seen[key] = from
	}
	if len(renames) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "renames",
			Message:  "no renames configured; source column names are kept",
		})
	}

	return issues
}

// validateDrops warns when a drop removes a column the pipeline has just
// renamed.
func validateDrops(p Pipeline) []Issue {
	var issues []Issue

	targets := map[string]bool{}
	for _, to := range p.Renames {
		targets[strings.ToLower(to)] = true
	}
	for i, c := range p.DropColumns {
		path := fmt.Sprintf("drop_columns[%d]", i)
		if strings.TrimSpace(c) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "drop column name must not be empty",
			})
			continue
		}
		if targets[strings.ToLower(c)] {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("column %q is a rename target and will be dropped", c),
			})
		}
	}

	return issues
}

// validateQuality checks that rules name columns as they exist after the
// renames, and flags rules on columns that are dropped afterwards.
func validateQuality(p Pipeline) []Issue {
	var issues []Issue

	renamed := map[string]string{}
	for from, to := range p.Renames {
		renamed[strings.ToLower(from)] = to
	}
	dropped := map[string]bool{}
	for _, c := range p.DropColumns {
		dropped[strings.ToLower(c)] = true
	}

	check := func(path, col string) {
		switch {
		case strings.TrimSpace(col) == "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "rule column must not be empty",
			})
		case renamed[strings.ToLower(col)] != "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("column %q is renamed to %q before filtering; use the new name", col, renamed[strings.ToLower(col)]),
			})
		case dropped[strings.ToLower(col)]:
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("rule on column %q which is dropped from the output", col),
			})
		}
	}

	q := p.Quality
	for i, c := range q.NotNull {
		check(fmt.Sprintf("quality.not_null[%d]", i), c)
	}
	for i, c := range q.Positive {
		check(fmt.Sprintf("quality.positive[%d]", i), c)
	}
	for i, o := range q.NotBefore {
		check(fmt.Sprintf("quality.not_before[%d].column", i), o.Column)
		check(fmt.Sprintf("quality.not_before[%d].reference", i), o.Reference)
	}
	if len(q.NotNull)+len(q.Positive)+len(q.NotBefore) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "quality",
			Message:  "no quality rules configured; every source row will be written",
		})
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; the backend default will be used", r.BatchSize),
		})
	}
	if r.Timeout != "" {
		if d, err := cast.ToDurationE(r.Timeout); err != nil || d <= 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "runtime.timeout",
				Message:  fmt.Sprintf("timeout %q is not a positive duration (e.g. %q)", r.Timeout, 30*time.Minute),
			})
		}
	}

	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url (or PUSHGATEWAY_URL)",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog backend requires statsd_addr (or STATSD_ADDR)",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		})
	}

	return issues
}

func validateRunLog(r RunLogConfig) []Issue {
	var issues []Issue

	switch r.Kind {
	case "":
		return nil
	case "sqlite", "postgres":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "run_log.kind",
			Message:  fmt.Sprintf("unknown run_log kind %q; want sqlite or postgres", r.Kind),
		})
	}
	if strings.TrimSpace(r.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "run_log.dsn",
			Message:  "run_log.dsn must not be empty when run_log.kind is set",
		})
	}

	return issues
}

func validateLog(l LogConfig) []Issue {
	if l.Level == "" {
		return nil
	}
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		return []Issue{{
			Severity: SeverityError,
			Path:     "log.level",
			Message:  fmt.Sprintf("invalid log level %q", l.Level),
		}}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
