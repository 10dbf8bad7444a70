package output

import (
	"bytes"
	"strings"
	"testing"

	"csvformatter/internal/table"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"this is too long", 10, "this is..."},
		{"Plzeň-město", 8, "Plzeň..."},
		{"abcdef", 2, "ab"},
		{"two\nlines", 20, "two lines"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestEmit_CSV(t *testing.T) {
	t.Parallel()

	tb := table.Table{Header: []string{"name"}, Rows: [][]string{{"Alice"}, {"Bob"}}}
	var buf bytes.Buffer
	if err := Emit(&buf, tb, Options{}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if got, want := buf.String(), "name\nAlice\nBob\n"; got != want {
		t.Fatalf("Emit = %q, want %q", got, want)
	}
}

func TestEmit_Preview(t *testing.T) {
	t.Parallel()

	tb := table.Table{
		Header: []string{"name", "note"},
		Rows:   [][]string{{"Alice", "a rather long remark"}, {"Bob", ""}},
	}
	var buf bytes.Buffer
	if err := Emit(&buf, tb, Options{Format: FormatTable, Width: 10}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"name", "Alice", "a rathe...", "Bob"} {
		if !strings.Contains(out, want) {
			t.Fatalf("preview missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "remark") {
		t.Fatalf("preview not truncated:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	if f, err := ParseFormat(""); err != nil || f != FormatCSV {
		t.Fatalf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat("Table"); err != nil || f != FormatTable {
		t.Fatalf("ParseFormat(Table) = %q, %v", f, err)
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Fatalf("ParseFormat(json) accepted")
	}
}
