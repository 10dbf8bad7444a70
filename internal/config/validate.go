package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"csvformatter/internal/argspec"
	"csvformatter/internal/output"
	pcsv "csvformatter/internal/parser/csv"
	"csvformatter/internal/storage"
	"csvformatter/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the run file (e.g. "exec.policy",
// "filters[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over a decoded run file. Column and row
// bounds need the input header and are checked later by the pipeline.
func Validate(f File) []Issue {
	var issues []Issue
	issues = append(issues, validateSpecs(f)...)
	issues = append(issues, validateReader(f.Reader)...)
	issues = append(issues, validateExec(f.Exec, len(f.Execute))...)
	issues = append(issues, validateDedup(f.Dedup)...)
	issues = append(issues, validateFormat(f.Format, f.Query)...)
	issues = append(issues, validateSink(f.Output, f.Storage)...)
	issues = append(issues, validateMetrics(f.Metrics)...)
	return issues
}

func specIssue(path string, err error) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: err.Error()}
}

func validateSpecs(f File) []Issue {
	var issues []Issue
	if f.Size != "" {
		if _, err := argspec.ParseSize("-s", f.Size); err != nil {
			issues = append(issues, specIssue("size", err))
		}
	}
	if f.Columns != "" {
		if _, err := argspec.ParseColumns("-c", f.Columns); err != nil {
			issues = append(issues, specIssue("columns", err))
		}
	}
	if f.Range != "" {
		if _, err := argspec.ParseRange("-r", f.Range); err != nil {
			issues = append(issues, specIssue("range", err))
		}
	}
	if f.Match != "" {
		if _, err := argspec.ParseMatch("-m", f.Match); err != nil {
			issues = append(issues, specIssue("match", err))
		}
	}
	for i, raw := range f.Filters {
		if _, err := argspec.ParseFilter("-f", raw); err != nil {
			issues = append(issues, specIssue(fmt.Sprintf("filters[%d]", i), err))
		}
	}
	for i, raw := range f.Execute {
		if _, err := argspec.ParseExecute("-x", raw); err != nil {
			issues = append(issues, specIssue(fmt.Sprintf("execute[%d]", i), err))
		}
	}
	return issues
}

func validateReader(o Options) []Issue {
	var issues []Issue
	if d := o.String("delimiter", ""); d != "" {
		if utf8.RuneCountInString(d) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "reader.delimiter",
				Message:  fmt.Sprintf("delimiter %q must be a single character", d),
			})
		} else if r := o.Rune("delimiter", ','); r == '"' || r == '\n' || r == '\r' {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "reader.delimiter",
				Message:  fmt.Sprintf("delimiter %q is not allowed", d),
			})
		}
	}
	if enc := o.String("encoding", ""); enc != "" {
		if err := pcsv.CheckEncoding(enc); err != nil {
			issues = append(issues, specIssue("reader.encoding", err))
		}
	}
	known := map[string]struct{}{"delimiter": {}, "encoding": {}, "no_header": {}, "strict": {}}
	for k := range o {
		if _, ok := known[k]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "reader." + k,
				Message:  "unknown reader option; it is ignored",
			})
		}
	}
	return issues
}

func validateExec(e Exec, rules int) []Issue {
	var issues []Issue
	if _, err := transformer.ParsePolicy(e.Policy); err != nil {
		issues = append(issues, specIssue("exec.policy", err))
	}
	if e.Timeout != "" {
		if d, err := time.ParseDuration(e.Timeout); err != nil {
			issues = append(issues, specIssue("exec.timeout", err))
		} else if d <= 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "exec.timeout",
				Message:  "timeout must be > 0",
			})
		}
	}
	if e.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "exec.workers",
			Message:  "workers must be >= 0",
		})
	}
	if rules == 0 && (e.Workers > 0 || e.Shell != "" || len(e.OKCodes) > 0) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "exec",
			Message:  "exec options set but no execute rules configured",
		})
	}
	return issues
}

func validateDedup(d Dedup) []Issue {
	var issues []Issue
	if _, err := transformer.ParseDedupPolicy(d.Policy); err != nil {
		issues = append(issues, specIssue("dedup.policy", err))
	}
	if d.Keys != "" {
		if _, err := argspec.ParseColumns("--dedup-keys", d.Keys); err != nil {
			issues = append(issues, specIssue("dedup.keys", err))
		}
		if !d.Enabled {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "dedup.keys",
				Message:  "dedup keys set but dedup.enabled is false",
			})
		}
	}
	return issues
}

func validateFormat(f Format, query bool) []Issue {
	var issues []Issue
	if _, err := output.ParseFormat(f.Kind); err != nil {
		issues = append(issues, specIssue("format.kind", err))
	}
	if f.Width < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "format.width",
			Message:  "width must be >= 0",
		})
	}
	switch strings.ToLower(strings.TrimSpace(f.Query)) {
	case "", "csv", "text":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "format.query",
			Message:  fmt.Sprintf("unknown query format %q (want csv or text)", f.Query),
		})
	}
	if f.Query != "" && !query {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "format.query",
			Message:  "query format set but query mode is off",
		})
	}
	return issues
}

func validateSink(out string, o Options) []Issue {
	var issues []Issue
	if n := o.Int("batch_size", 0); n < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.batch_size",
			Message:  "batch_size must be >= 0",
		})
	}
	if !storage.IsDSN(out) {
		if len(o) > 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "storage",
				Message:  "storage options are ignored unless output is a database URL",
			})
		}
		return issues
	}
	// The input name is the fallback table, so only the URL shape is checked.
	if _, err := storage.ParseTarget(out, "placeholder"); err != nil {
		issues = append(issues, specIssue("output", err))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	if m.Job != "" && m.PushgatewayURL == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.job",
			Message:  "job is set but pushgateway_url is empty; no metrics will be pushed",
		})
	}
	if u := m.PushgatewayURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.pushgateway_url",
			Message:  fmt.Sprintf("pushgateway_url %q must be an http(s) URL", u),
		})
	}
	return issues
}
