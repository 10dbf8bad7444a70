// Package pipeline runs one csvformatter invocation end to end:
//
//	parse → range (-r) → match (-m) → filter (-f) → project (-c) →
//	transform (-x) → dedup → truncate (-s) | query (-q) → emit
//
// Every spec is parsed before the input is opened, and every column and row
// reference is checked against the parsed table before any stage runs, so a
// ParseError or SpecError never leaves partial output behind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"csvformatter/internal/argspec"
	"csvformatter/internal/datasource"
	"csvformatter/internal/datasource/file"
	"csvformatter/internal/datasource/httpds"
	"csvformatter/internal/filter"
	"csvformatter/internal/metrics"
	"csvformatter/internal/output"
	pcsv "csvformatter/internal/parser/csv"
	"csvformatter/internal/probe"
	"csvformatter/internal/selection"
	"csvformatter/internal/storage"
	"csvformatter/internal/table"
	"csvformatter/internal/transformer"
)

// Flag names used in SpecError messages.
const (
	FlagSize        = "-s"
	FlagColumns     = "-c"
	FlagRange       = "-r"
	FlagMatch       = "-m"
	FlagDedupKeys   = "--dedup-keys"
	FlagDedupPolicy = "--dedup-policy"
	FlagQueryFormat = "--query-format"
)

// Query summary renderings.
const (
	QueryCSV  = "csv"
	QueryText = "text"
)

// Config is one fully merged invocation. Spec fields hold the raw strings
// given on the command line; empty means the stage is skipped.
type Config struct {
	Input   string
	Size    string
	Columns string
	Range   string
	Filters []string
	Match   string
	Execute []string
	Query   bool
	Output  string

	Reader      pcsv.Options
	Exec        transformer.Options
	Dedup       Dedup
	Format      output.Options
	QueryFormat string

	// Table names the database table for DSN outputs. When empty the
	// normalized input name is used.
	Table     string
	BatchSize int

	// Job labels metrics.
	Job     string
	Verbose bool
}

// Dedup configures the dedup stage.
type Dedup struct {
	Enabled bool
	Keys    string // column spec over the projected table; empty means whole row
	Policy  string
}

// Deps are the capabilities a run needs. Zero values select production
// implementations.
type Deps struct {
	Runner transformer.Runner
	Stdout io.Writer
	// Source overrides the input resolved from Config.Input.
	Source datasource.Source
	HTTP   httpds.Config
	// OpenStorage builds database sinks; defaults to storage.New.
	OpenStorage func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
}

// Counts are the row counts leaving each stage.
type Counts struct {
	Parsed   int
	Selected int
	Matched  int
	Filtered int
	Deduped  int
	Emitted  int
}

// Result describes a successful run.
type Result struct {
	// Table is what was emitted: the truncated table, or the summary table in
	// query mode.
	Table    table.Table
	Summary  *probe.Summary
	Report   transformer.Report
	Counts   Counts
	Inserted int64
	// Sink is "stdout", the output path, or the database kind.
	Sink string
}

// plan holds the parsed specs.
type plan struct {
	size        argspec.SizeSpec
	columns     *argspec.ColumnSpec
	rng         *argspec.RangeSpec
	match       *argspec.MatchSpec
	filters     []argspec.FilterSpec
	execs       []argspec.ExecuteSpec
	dedupKeys   *argspec.ColumnSpec
	dedupPolicy string
	queryFormat string
}

// bound holds the specs resolved against the parsed header.
type bound struct {
	rows     []int
	chain    filter.Chain
	project  []int
	dedupIdx []int
}

// ExitCode maps an error returned by Run onto the process exit status:
// 0 success, 2 ParseError, 3 SpecError, 4 fatal ExecError, 1 anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var pe *pcsv.ParseError
	if errors.As(err, &pe) {
		return 2
	}
	var se *argspec.SpecError
	if errors.As(err, &se) {
		return 3
	}
	var ee *transformer.ExecError
	if errors.As(err, &ee) {
		return 4
	}
	return 1
}

// Run executes cfg.
func Run(ctx context.Context, cfg Config, deps Deps) (Result, error) {
	p, err := compile(cfg)
	if err != nil {
		return Result{}, err
	}
	if deps.Runner == nil {
		deps.Runner = transformer.ShellRunner{}
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.OpenStorage == nil {
		deps.OpenStorage = storage.New
	}
	src := deps.Source
	if src == nil {
		src = datasource.Resolve(cfg.Input, deps.HTTP)
	}

	r := &runner{cfg: cfg, job: cfg.Job}
	var res Result

	var (
		t     table.Table
		input int64
	)
	err = r.stage("parse", func() error {
		t, input, err = read(ctx, src, cfg.Reader)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	res.Counts.Parsed = t.Len()
	r.rows("parsed", t.Len())

	b, err := bind(p, t)
	if err != nil {
		return Result{}, err
	}

	if p.rng != nil {
		r.step("range", func() { t = selection.SelectRows(t, b.rows) })
	}
	res.Counts.Selected = t.Len()

	if p.match != nil {
		err = r.stage("match", func() error {
			t, err = selection.Match(FlagMatch, t, *p.match)
			return err
		})
		if err != nil {
			return Result{}, err
		}
	}
	res.Counts.Matched = t.Len()

	if b.chain.Len() > 0 {
		r.step("filter", func() { t = b.chain.Apply(t) })
	}
	res.Counts.Filtered = t.Len()
	r.rows("filtered", t.Len())

	if b.project != nil {
		r.step("project", func() { t = selection.Project(t, b.project) })
	}

	if len(p.execs) > 0 {
		err = r.stage("transform", func() error {
			var terr error
			t, res.Report, terr = transformer.Apply(ctx, t, p.execs, deps.Runner, cfg.Exec)
			return terr
		})
		metrics.RecordExec(r.job, int64(res.Report.Invocations-res.Report.Failures), int64(res.Report.Failures))
		if err != nil {
			return Result{Report: res.Report}, fmt.Errorf("transform: %w", err)
		}
		if cfg.Verbose && res.Report.Failures > 0 {
			log.Printf("transform: %d of %d invocations failed; original cells kept",
				res.Report.Failures, res.Report.Invocations)
		}
	}

	if cfg.Dedup.Enabled {
		r.step("dedup", func() { t = transformer.Dedup(t, b.dedupIdx, p.dedupPolicy) })
	}
	res.Counts.Deduped = t.Len()

	var render func(w io.Writer) error
	emitted := t
	if cfg.Query {
		s := probe.Summarize(t)
		s.InputBytes = input
		res.Summary = &s
		emitted = s.Table()
		if p.queryFormat == QueryText {
			render = func(w io.Writer) error {
				_, err := io.WriteString(w, s.Text())
				return err
			}
		}
	} else {
		emitted = t.WithRows(t.Rows[:p.size.Limit(t.Len())])
	}
	if render == nil {
		render = func(w io.Writer) error { return output.Emit(w, emitted, cfg.Format) }
	}
	res.Table = emitted
	res.Counts.Emitted = emitted.Len()

	err = r.stage("emit", func() error {
		var eerr error
		res.Sink, res.Inserted, eerr = r.emit(ctx, deps, src.Name(), emitted, render)
		return eerr
	})
	if err != nil {
		return Result{}, err
	}
	r.rows("emitted", emitted.Len())
	return res, nil
}

type runner struct {
	cfg Config
	job string
}

// step runs a stage that cannot fail.
func (r *runner) step(name string, fn func()) {
	_ = r.stage(name, func() error {
		fn()
		return nil
	})
}

// stage times fn and records it; verbose runs log each stage.
func (r *runner) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStage(r.job, name, err, d)
	if r.cfg.Verbose {
		if err != nil {
			log.Printf("pipeline: stage=%s failed after %s: %v", name, d.Truncate(time.Microsecond), err)
		} else {
			log.Printf("pipeline: stage=%s done in %s", name, d.Truncate(time.Microsecond))
		}
	}
	return err
}

func (r *runner) rows(kind string, n int) {
	metrics.RecordRows(r.job, kind, int64(n))
	if r.cfg.Verbose {
		log.Printf("pipeline: %s rows=%d", kind, n)
	}
}

// emit writes to the configured destination and returns the sink label.
func (r *runner) emit(ctx context.Context, deps Deps, inputName string, t table.Table, render func(io.Writer) error) (string, int64, error) {
	out := strings.TrimSpace(r.cfg.Output)
	switch {
	case out == "":
		if err := render(deps.Stdout); err != nil {
			return "", 0, fmt.Errorf("write stdout: %w", err)
		}
		return "stdout", 0, nil

	case storage.IsDSN(out):
		name := r.cfg.Table
		if name == "" {
			name = probe.NormalizeFieldName(inputName)
		}
		scfg, err := storage.ParseTarget(out, name)
		if err != nil {
			return "", 0, err
		}
		scfg.BatchSize = r.cfg.BatchSize
		repo, err := deps.OpenStorage(ctx, scfg)
		if err != nil {
			return "", 0, fmt.Errorf("open %s sink: %w", scfg.Kind, err)
		}
		defer repo.Close()
		n, err := storage.LoadTable(ctx, repo, probe.ColumnNames(t.Header), t.Rows, scfg.BatchSize)
		if err != nil {
			return "", n, fmt.Errorf("load %s.%s: %w", scfg.Kind, scfg.Table, err)
		}
		if r.cfg.Verbose {
			log.Printf("pipeline: loaded %d rows into %s table %s", n, scfg.Kind, scfg.Table)
		}
		return scfg.Kind, n, nil

	default:
		if err := file.WriteAtomic(out, render); err != nil {
			return "", 0, fmt.Errorf("write %s: %w", out, err)
		}
		return out, 0, nil
	}
}

// compile parses every spec of cfg.
func compile(cfg Config) (plan, error) {
	var p plan
	var err error

	p.size = argspec.DefaultSize
	if s := strings.TrimSpace(cfg.Size); s != "" {
		if p.size, err = argspec.ParseSize(FlagSize, s); err != nil {
			return plan{}, err
		}
	}
	if cfg.Columns != "" {
		c, err := argspec.ParseColumns(FlagColumns, cfg.Columns)
		if err != nil {
			return plan{}, err
		}
		p.columns = &c
	}
	if cfg.Range != "" {
		rs, err := argspec.ParseRange(FlagRange, cfg.Range)
		if err != nil {
			return plan{}, err
		}
		p.rng = &rs
	}
	if cfg.Match != "" {
		m, err := argspec.ParseMatch(FlagMatch, cfg.Match)
		if err != nil {
			return plan{}, err
		}
		p.match = &m
	}
	for _, raw := range cfg.Filters {
		f, err := argspec.ParseFilter(filter.Flag, raw)
		if err != nil {
			return plan{}, err
		}
		p.filters = append(p.filters, f)
	}
	for _, raw := range cfg.Execute {
		x, err := argspec.ParseExecute(transformer.Flag, raw)
		if err != nil {
			return plan{}, err
		}
		p.execs = append(p.execs, x)
	}
	if cfg.Dedup.Keys != "" {
		k, err := argspec.ParseColumns(FlagDedupKeys, cfg.Dedup.Keys)
		if err != nil {
			return plan{}, err
		}
		p.dedupKeys = &k
	}
	if p.dedupPolicy, err = transformer.ParseDedupPolicy(cfg.Dedup.Policy); err != nil {
		return plan{}, argspec.Errorf(FlagDedupPolicy, cfg.Dedup.Policy, "%v", err)
	}
	switch q := strings.ToLower(strings.TrimSpace(cfg.QueryFormat)); q {
	case "", QueryCSV:
		p.queryFormat = QueryCSV
	case QueryText:
		p.queryFormat = QueryText
	default:
		return plan{}, argspec.Errorf(FlagQueryFormat, cfg.QueryFormat, "want csv or text")
	}
	return p, nil
}

// bind resolves every reference of p against t. Filters, range and match
// address the input columns; -x and dedup keys address the projected ones.
func bind(p plan, t table.Table) (bound, error) {
	var b bound
	var err error
	if p.rng != nil {
		if b.rows, err = selection.ResolveRange(FlagRange, *p.rng, t.Len()); err != nil {
			return bound{}, err
		}
	}
	if p.match != nil {
		ms := argspec.ColumnSpec{Raw: p.match.Raw, Refs: p.match.Columns}
		if _, err := selection.ResolveColumns(FlagMatch, ms, t.Header); err != nil {
			return bound{}, err
		}
	}
	if b.chain, err = filter.Compile(p.filters, t.Header); err != nil {
		return bound{}, err
	}
	header := t.Header
	if p.columns != nil {
		if b.project, err = selection.ResolveColumns(FlagColumns, *p.columns, t.Header); err != nil {
			return bound{}, err
		}
		header = selection.Project(table.Table{Header: t.Header}, b.project).Header
	}
	if _, err := transformer.Resolve(p.execs, header); err != nil {
		return bound{}, err
	}
	if p.dedupKeys != nil {
		if b.dedupIdx, err = selection.ResolveColumns(FlagDedupKeys, *p.dedupKeys, header); err != nil {
			return bound{}, err
		}
	}
	return b, nil
}

// read opens src and parses it, returning the table and the raw byte count.
func read(ctx context.Context, src datasource.Source, opt pcsv.Options) (table.Table, int64, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("open input: %w", err)
	}
	defer rc.Close()
	cr := &countingReader{r: rc}
	t, err := pcsv.Read(cr, opt)
	if err != nil {
		return table.Table{}, cr.n, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	return t, cr.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
