package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"csvformatter/internal/argspec"
	pcsv "csvformatter/internal/parser/csv"
	"csvformatter/internal/probe"
	"csvformatter/internal/storage"
	_ "csvformatter/internal/storage/sqlite"
	"csvformatter/internal/transformer"
)

// stringSource serves a fixed document.
type stringSource struct {
	name string
	data string
}

func (s stringSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data)), nil
}

func (s stringSource) Name() string { return s.name }

func run(t *testing.T, data string, cfg Config, runner transformer.Runner) (string, Result, error) {
	t.Helper()
	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, Deps{
		Runner: runner,
		Stdout: &out,
		Source: stringSource{name: "input", data: data},
	})
	return out.String(), res, err
}

func numbered(n int) string {
	var b strings.Builder
	b.WriteString("id,group\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,g%d\n", i, i%3)
	}
	return b.String()
}

// TestRun_EndToEnd projects column 1 of the rows whose age is an integer.
func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	out, res, err := run(t, "name,age\nAlice,30\nBob,25\n", Config{
		Columns: "1",
		Filters: []string{"2-Integer-true"},
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "name\nAlice\nBob\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	if res.Sink != "stdout" || res.Counts.Emitted != 2 {
		t.Fatalf("result = %+v", res)
	}
}

// TestRun_TruncatesAfterFilter keeps the first two rows passing the filter.
func TestRun_TruncatesAfterFilter(t *testing.T) {
	t.Parallel()

	data := "k,id\na,1\nb,2\nx,3\nx,4\nx,5\n"
	out, res, err := run(t, data, Config{Size: "2", Filters: []string{"1-literal-x"}}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "k,id\nx,3\nx,4\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	if res.Counts.Filtered != 3 || res.Counts.Emitted != 2 {
		t.Fatalf("counts = %+v", res.Counts)
	}
}

func TestRun_SizeAllAndDefault(t *testing.T) {
	t.Parallel()

	_, res, err := run(t, numbered(1000), Config{Size: "all"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Table.Len() != 1000 {
		t.Fatalf("size all emitted %d rows, want 1000", res.Table.Len())
	}

	_, res, err = run(t, numbered(30), Config{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Table.Len() != argspec.DefaultSize.N {
		t.Fatalf("default size emitted %d rows, want %d", res.Table.Len(), argspec.DefaultSize.N)
	}
}

func TestRun_RangeKeepsListedRowsInOrder(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, numbered(5), Config{Range: "1-3-4", Columns: "id"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "id\n1\n3\n4\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
}

func TestRun_Match(t *testing.T) {
	t.Parallel()

	// Row 2 is in group g2; rows 5 and 8 share it.
	out, res, err := run(t, numbered(9), Config{Match: "2-group", Columns: "id"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "id\n2\n5\n8\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	if res.Counts.Matched != 3 {
		t.Fatalf("matched = %d, want 3", res.Counts.Matched)
	}
}

// TestRun_MatchBeforeFilter picks the reference row from the unfiltered rows:
// row 1 (g1) selects 1, 4 and 7, and the filter then drops row 1.
func TestRun_MatchBeforeFilter(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, numbered(9), Config{
		Match:   "1-group",
		Filters: []string{"id-regex:^[^1]$"},
		Columns: "id",
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "id\n4\n7\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
}

// TestRun_SpecErrorsProduceNoOutput checks every bounds error aborts before
// any output is written.
func TestRun_SpecErrorsProduceNoOutput(t *testing.T) {
	t.Parallel()

	cases := map[string]Config{
		"column":      {Columns: "9"},
		"row":         {Range: "1-7"},
		"filter col":  {Filters: []string{"4-literal-x"}},
		"match row":   {Match: "9-1"},
		"match col":   {Match: "1-zzz"},
		"exec col":    {Columns: "1", Execute: []string{`2-"cat"`}},
		"dedup key":   {Dedup: Dedup{Enabled: true, Keys: "3"}},
		"bad size":    {Size: "ten"},
		"bad policy":  {Dedup: Dedup{Policy: "newest"}},
		"query":       {Query: true, QueryFormat: "xml"},
		"syntax":      {Filters: []string{"1-bogus"}},
		"exec syntax": {Execute: []string{"1-"}},
	}
	for name, cfg := range cases {
		name, cfg := name, cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			cfg.Output = filepath.Join(dir, "out.csv")
			var calls int32
			runner := transformer.RunnerFunc(func(context.Context, string, string) (string, error) {
				atomic.AddInt32(&calls, 1)
				return "", nil
			})
			_, _, err := run(t, "a,b\n1,2\n3,4\n", cfg, runner)
			var se *argspec.SpecError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want SpecError", err)
			}
			if ExitCode(err) != 3 {
				t.Fatalf("ExitCode = %d, want 3", ExitCode(err))
			}
			if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
				t.Fatalf("output file exists after SpecError")
			}
			if atomic.LoadInt32(&calls) != 0 {
				t.Fatalf("runner called %d times after SpecError", calls)
			}
		})
	}
}

func TestRun_SpecErrorLeavesStdoutEmpty(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "a,b\n1,2\n", Config{Columns: "3"}, nil)
	if err == nil || out != "" {
		t.Fatalf("out=%q err=%v; want empty output and an error", out, err)
	}
	if !strings.Contains(err.Error(), `invalid -c "3": column 3 out of range`) {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "a,b\n\"open,2\n", Config{}, nil)
	var pe *pcsv.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if ExitCode(err) != 2 || out != "" {
		t.Fatalf("exit=%d out=%q", ExitCode(err), out)
	}
}

func TestRun_ExecPolicies(t *testing.T) {
	t.Parallel()

	failOnBob := transformer.RunnerFunc(func(_ context.Context, _ string, in string) (string, error) {
		if in == "Bob" {
			return "", errors.New("exit status 1")
		}
		return strings.ToUpper(in), nil
	})
	data := "name,age\nAlice,30\nBob,25\nCarol,41\n"

	out, res, err := run(t, data, Config{Columns: "1", Execute: []string{`1-"upper"`}}, failOnBob)
	if err != nil {
		t.Fatalf("keep policy: %v", err)
	}
	if want := "name\nALICE\nBob\nCAROL\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	if res.Report.Failures != 1 || res.Report.Invocations != 3 {
		t.Fatalf("report = %+v", res.Report)
	}
	if len(res.Report.Warnings) != 1 || !strings.Contains(res.Report.Warnings[0], "row 2 column 1") {
		t.Fatalf("warnings = %v", res.Report.Warnings)
	}

	cfg := Config{Columns: "1", Execute: []string{`1-"upper"`}, Exec: transformer.Options{Policy: transformer.PolicyAbort}}
	out, _, err = run(t, data, cfg, failOnBob)
	var ee *transformer.ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("abort policy err = %v, want ExecError", err)
	}
	if ExitCode(err) != 4 || out != "" {
		t.Fatalf("exit=%d out=%q", ExitCode(err), out)
	}
}

// TestRun_ExecUsesProjectedColumns addresses -x columns after projection.
func TestRun_ExecUsesProjectedColumns(t *testing.T) {
	t.Parallel()

	var seen []string
	rec := transformer.RunnerFunc(func(_ context.Context, _ string, in string) (string, error) {
		seen = append(seen, in)
		return in + "!", nil
	})
	out, _, err := run(t, "a,b\n1,2\n", Config{Columns: "2-1", Execute: []string{`1-"x"`}}, rec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "b,a\n2!,1\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	if !reflect.DeepEqual(seen, []string{"2"}) {
		t.Fatalf("runner saw %v, want [2]", seen)
	}
}

func TestRun_Dedup(t *testing.T) {
	t.Parallel()

	data := "k,v\na,1\nb,2\na,3\n"
	out, res, err := run(t, data, Config{Dedup: Dedup{Enabled: true, Keys: "k", Policy: "keep-last"}}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "k,v\nb,2\na,3\n"; out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	if res.Counts.Deduped != 2 {
		t.Fatalf("deduped = %d, want 2", res.Counts.Deduped)
	}
}

// TestRun_QuerySummarizesUntruncatedTable ignores -s in query mode.
func TestRun_QuerySummarizesUntruncatedTable(t *testing.T) {
	t.Parallel()

	data := "name,age,score\nAlice,30,1.5\nBob,25,2\nCarol,,3\n"
	out, res, err := run(t, data, Config{Query: true, Size: "1"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary == nil || res.Summary.Rows != 3 {
		t.Fatalf("summary = %+v, want 3 rows", res.Summary)
	}
	if !reflect.DeepEqual(res.Table.Header, probe.SummaryHeader) {
		t.Fatalf("header = %v", res.Table.Header)
	}
	want := "index,name,normalized,type,non_empty,distinct\n" +
		"1,name,name,text,3,3\n" +
		"2,age,age,integer,2,3\n" +
		"3,score,score,real,3,3\n"
	if out != want {
		t.Fatalf("stdout =\n%s\nwant\n%s", out, want)
	}
	if res.Summary.InputBytes != int64(len(data)) {
		t.Fatalf("input bytes = %d, want %d", res.Summary.InputBytes, len(data))
	}
}

func TestRun_QueryText(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, numbered(1200), Config{Query: true, QueryFormat: "text"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out, "1,200 rows, 2 columns") {
		t.Fatalf("stdout = %q", out)
	}
}

func TestRun_OutputFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	out, res, err := run(t, "a,b\n1,\"x,y\"\n", Config{Output: path}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "" {
		t.Fatalf("stdout = %q, want empty", out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "a,b\n1,\"x,y\"\n"; string(b) != want {
		t.Fatalf("file = %q, want %q", b, want)
	}
	if res.Sink != path {
		t.Fatalf("sink = %q, want %q", res.Sink, path)
	}
}

func TestRun_OutputFileHonorsSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, tc := range []struct {
		size string
		want int
	}{
		{"", 20},
		{"3", 3},
		{"all", 30},
	} {
		path := filepath.Join(dir, "out"+tc.size+".csv")
		if _, _, err := run(t, numbered(30), Config{Output: path, Size: tc.size}, nil); err != nil {
			t.Fatalf("Run(-s %q): %v", tc.size, err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		if got := strings.Count(string(b), "\n") - 1; got != tc.want {
			t.Fatalf("-s %q wrote %d rows, want %d", tc.size, got, tc.want)
		}
	}
}

func TestStep_RunsInfallibleStage(t *testing.T) {
	t.Parallel()

	r := &runner{job: "test"}
	ran := false
	r.step("range", func() { ran = true })
	if !ran {
		t.Fatalf("step did not run its stage")
	}
}

func TestRun_SQLiteSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.db")
	out, res, err := run(t, "First Name,Age\nAlice,30\nBob,25\n", Config{
		Output: "sqlite://" + path + "?table=people",
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "" || res.Sink != "sqlite" || res.Inserted != 2 {
		t.Fatalf("out=%q result=%+v", out, res)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var name, age string
	if err := db.QueryRow(`SELECT "first_name", "age" FROM "people" ORDER BY rowid LIMIT 1`).Scan(&name, &age); err != nil {
		t.Fatalf("query: %v", err)
	}
	if name != "Alice" || age != "30" {
		t.Fatalf("row = %s,%s", name, age)
	}
}

// fakeRepo captures what the sink receives.
type fakeRepo struct {
	columns []string
	rows    int
}

func (f *fakeRepo) EnsureTable(_ context.Context, columns []string) error {
	f.columns = columns
	return nil
}

func (f *fakeRepo) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	f.rows += len(rows)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Close() {}

func TestRun_SinkDefaultsTableToInputName(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	var got storage.Config
	_, err := Run(context.Background(), Config{Output: "postgres://db/app", BatchSize: 7}, Deps{
		Stdout: io.Discard,
		Source: stringSource{name: "Vehicle Registry", data: "a,a\n1,2\n"},
		OpenStorage: func(_ context.Context, cfg storage.Config) (storage.Repository, error) {
			got = cfg
			return repo, nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Kind != "postgres" || got.Table != "vehicle_registry" || got.BatchSize != 7 {
		t.Fatalf("storage config = %+v", got)
	}
	if !reflect.DeepEqual(repo.columns, []string{"a", "a_2"}) || repo.rows != 1 {
		t.Fatalf("repo = %+v", repo)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Config{Input: filepath.Join(t.TempDir(), "missing.csv")}, Deps{Stdout: io.Discard})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != 1 {
		t.Fatalf("ExitCode = %d, want 1", ExitCode(err))
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("io"), 1},
		{fmt.Errorf("read: %w", &pcsv.ParseError{Line: 2, Err: pcsv.ErrLongRow}), 2},
		{fmt.Errorf("bind: %w", argspec.Errorf("-c", "9", "bad")), 3},
		{fmt.Errorf("transform: %w", &transformer.ExecError{Command: "x", Err: errors.New("boom")}), 4},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
