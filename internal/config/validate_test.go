package config

import (
	"strings"
	"testing"
)

// findIssue returns the first issue at path, if any.
func findIssue(issues []Issue, path string) (Issue, bool) {
	for _, iss := range issues {
		if iss.Path == path {
			return iss, true
		}
	}
	return Issue{}, false
}

func TestValidate_CleanFile(t *testing.T) {
	t.Parallel()

	f := File{
		Size:    "all",
		Columns: "2-1",
		Filters: []string{"2-integer-true", "1-regex:^A"},
		Execute: []string{`1-"tr a-z A-Z"`},
		Reader:  Options{"delimiter": ";", "encoding": "windows-1250"},
		Exec:    Exec{Policy: "keep", Timeout: "2s", Workers: 2},
		Dedup:   Dedup{Enabled: true, Keys: "1", Policy: "keep-last"},
		Format:  Format{Kind: "table", Width: 10},
		Storage: Options{},
	}
	if issues := Validate(f); len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     File
		path     string
		severity IssueSeverity
		contains string
	}{
		{"bad size", File{Size: "ten"}, "size", SeverityError, "-s"},
		{"bad filter", File{Filters: []string{"1-nope"}}, "filters[0]", SeverityError, "unknown filter kind"},
		{"bad execute", File{Execute: []string{"1-"}}, "execute[0]", SeverityError, "empty command"},
		{"bad match", File{Match: "3"}, "match", SeverityError, "-m"},
		{"long delimiter", File{Reader: Options{"delimiter": ";;"}}, "reader.delimiter", SeverityError, "single character"},
		{"quote delimiter", File{Reader: Options{"delimiter": `"`}}, "reader.delimiter", SeverityError, "not allowed"},
		{"unknown encoding", File{Reader: Options{"encoding": "klingon"}}, "reader.encoding", SeverityError, "unknown encoding"},
		{"unknown reader key", File{Reader: Options{"quote": "'"}}, "reader.quote", SeverityWarning, "ignored"},
		{"bad policy", File{Exec: Exec{Policy: "retry"}}, "exec.policy", SeverityError, "unknown exec policy"},
		{"bad timeout", File{Exec: Exec{Timeout: "soon"}}, "exec.timeout", SeverityError, "duration"},
		{"zero timeout", File{Exec: Exec{Timeout: "0s"}}, "exec.timeout", SeverityError, "> 0"},
		{"negative workers", File{Exec: Exec{Workers: -1}}, "exec.workers", SeverityError, ">= 0"},
		{"exec options unused", File{Exec: Exec{Workers: 3}}, "exec", SeverityWarning, "no execute rules"},
		{"bad dedup policy", File{Dedup: Dedup{Policy: "newest"}}, "dedup.policy", SeverityError, "unknown dedup policy"},
		{"dedup keys disabled", File{Dedup: Dedup{Keys: "1"}}, "dedup.keys", SeverityWarning, "enabled is false"},
		{"bad format", File{Format: Format{Kind: "html"}}, "format.kind", SeverityError, "unknown format"},
		{"bad query format", File{Query: true, Format: Format{Query: "xml"}}, "format.query", SeverityError, "unknown query format"},
		{"query format unused", File{Format: Format{Query: "text"}}, "format.query", SeverityWarning, "query mode is off"},
		{"storage without dsn", File{Output: "out.csv", Storage: Options{"table": "t"}}, "storage", SeverityWarning, "ignored"},
		{"negative batch", File{Output: "sqlite://x.db", Storage: Options{"batch_size": float64(-1)}}, "storage.batch_size", SeverityError, ">= 0"},
		{"empty sqlite path", File{Output: "sqlite://"}, "output", SeverityError, "needs a path"},
		{"job without gateway", File{Metrics: Metrics{Job: "nightly"}}, "metrics.job", SeverityWarning, "no metrics"},
		{"gateway not http", File{Metrics: Metrics{PushgatewayURL: "pushgateway:9091"}}, "metrics.pushgateway_url", SeverityError, "http(s)"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			issues := Validate(tc.file)
			iss, ok := findIssue(issues, tc.path)
			if !ok {
				t.Fatalf("no issue at %q; got %v", tc.path, issues)
			}
			if iss.Severity != tc.severity {
				t.Fatalf("severity = %s, want %s (%v)", iss.Severity, tc.severity, iss)
			}
			if !strings.Contains(iss.Message, tc.contains) {
				t.Fatalf("message %q does not contain %q", iss.Message, tc.contains)
			}
		})
	}
}

func TestHasErrorsAndIssueError(t *testing.T) {
	t.Parallel()

	warn := Issue{Severity: SeverityWarning, Path: "a", Message: "m"}
	err := Issue{Severity: SeverityError, Path: "exec.policy", Message: "bad"}

	if HasErrors([]Issue{warn}) {
		t.Fatalf("HasErrors(warn) = true, want false")
	}
	if !HasErrors([]Issue{warn, err}) {
		t.Fatalf("HasErrors(warn, err) = false, want true")
	}
	if got, want := err.Error(), "error at exec.policy: bad"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
