package main

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"

	"csvformatter/internal/argspec"
	"csvformatter/internal/config"
	"csvformatter/internal/output"
	"csvformatter/internal/pipeline"
	"csvformatter/internal/transformer"
)

// Environment overrides, applied between the run file and the flags.
const (
	envShell       = "CSVFORMATTER_SHELL"
	envExecTimeout = "CSVFORMATTER_EXEC_TIMEOUT"
	envPushgateway = "PUSHGATEWAY_URL"
)

// options holds the raw flag values.
type options struct {
	configPath string

	size    string
	columns string
	rng     string
	filters []string
	match   string
	execute []string
	query   bool
	output  string
	verbose bool

	delimiter string
	encoding  string
	noHeader  bool
	strict    bool

	execPolicy  string
	execTimeout time.Duration
	execWorkers int
	execOK      []int
	shell       string

	dedup       bool
	dedupKeys   string
	dedupPolicy string

	format      string
	width       int
	queryFormat string

	table     string
	batchSize int

	pushgatewayURL string
	job            string
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "JSON run file supplying defaults for every flag")

	fs.StringVarP(&o.size, "size", "s", "", `number of rows to output, or "all" (default 20)`)
	fs.StringVarP(&o.columns, "columns", "c", "", "columns to output, e.g. 2-1-2 or name-age")
	fs.StringVarP(&o.rng, "range", "r", "", "rows to keep, e.g. 1-3-4")
	fs.StringArrayVarP(&o.filters, "filter", "f", nil, "row filter <col>-<kind>-<arg> (repeatable, ANDed)")
	fs.StringVarP(&o.match, "match", "m", "", "keep rows equal to row N on columns: <row>-<col1>-...")
	fs.StringArrayVarP(&o.execute, "execute", "x", nil, `pipe a column through a shell command: <col>-"<command>" (repeatable)`)
	fs.BoolVarP(&o.query, "query", "q", false, "print a per-column summary instead of rows")
	fs.StringVarP(&o.output, "output", "o", "", "output file or database URL (default stdout); rows are limited by -s, use -s all for the full table")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose logs")

	fs.StringVarP(&o.delimiter, "delimiter", "d", "", "field delimiter (single character, default ,)")
	fs.StringVar(&o.encoding, "encoding", "", "input character set, e.g. windows-1250")
	fs.BoolVar(&o.noHeader, "no-header", false, "treat the first record as data")
	fs.BoolVar(&o.strict, "strict", false, "reject rows shorter than the header")

	fs.StringVar(&o.execPolicy, "exec-policy", "", "on command failure: keep (original cell, warn) or abort")
	fs.DurationVar(&o.execTimeout, "exec-timeout", transformer.DefaultTimeout, "per-command timeout")
	fs.IntVar(&o.execWorkers, "exec-workers", 1, "concurrent command invocations per -x rule")
	fs.IntSliceVar(&o.execOK, "exec-ok", nil, "exit codes treated as success (default 0)")
	fs.StringVar(&o.shell, "shell", "", "shell running -x commands (default "+transformer.DefaultShell+")")

	fs.BoolVar(&o.dedup, "dedup", false, "drop duplicate rows after the transform stage")
	fs.StringVar(&o.dedupKeys, "dedup-keys", "", "columns forming the dedup key (default whole row)")
	fs.StringVar(&o.dedupPolicy, "dedup-policy", "", "keep-first, keep-last or most-complete")

	fs.StringVar(&o.format, "format", "", "stdout rendering: csv or table")
	fs.IntVar(&o.width, "width", 0, "cell width of the table rendering")
	fs.StringVar(&o.queryFormat, "query-format", "", "query summary rendering: csv or text")

	fs.StringVar(&o.table, "table", "", "table name for database outputs (default input name)")
	fs.IntVar(&o.batchSize, "batch-size", 0, "rows per database insert batch")

	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env "+envPushgateway+")")
	fs.StringVar(&o.job, "job", "", "metrics job name")
}

// settings is a fully merged invocation.
type settings struct {
	pipeline       pipeline.Config
	runner         transformer.ShellRunner
	pushgatewayURL string
}

// override replaces *dst with v when the flag was given.
func override[T any](fs *pflag.FlagSet, name string, v T, dst *T) {
	if fs.Changed(name) {
		*dst = v
	}
}

// resolve merges, lowest precedence first: defaults, the run file, the
// environment, then the flags set on the command line.
func (o *options) resolve(fs *pflag.FlagSet, fc config.File, getenv func(string) string) (settings, error) {
	var s settings
	cfg := &s.pipeline

	cfg.Size = fc.Size
	cfg.Columns = fc.Columns
	cfg.Range = fc.Range
	cfg.Filters = fc.Filters
	cfg.Match = fc.Match
	cfg.Execute = fc.Execute
	cfg.Query = fc.Query
	cfg.Output = fc.Output
	override(fs, "size", o.size, &cfg.Size)
	override(fs, "columns", o.columns, &cfg.Columns)
	override(fs, "range", o.rng, &cfg.Range)
	override(fs, "filter", o.filters, &cfg.Filters)
	override(fs, "match", o.match, &cfg.Match)
	override(fs, "execute", o.execute, &cfg.Execute)
	override(fs, "query", o.query, &cfg.Query)
	override(fs, "output", o.output, &cfg.Output)
	cfg.Verbose = o.verbose

	// reader
	delim := fc.Reader.String("delimiter", "")
	override(fs, "delimiter", o.delimiter, &delim)
	if delim != "" {
		if utf8.RuneCountInString(delim) != 1 {
			return settings{}, argspec.Errorf("-d", delim, "want a single character")
		}
		cfg.Reader.Comma, _ = utf8.DecodeRuneInString(delim)
	}
	cfg.Reader.Encoding = fc.Reader.String("encoding", "")
	cfg.Reader.NoHeader = fc.Reader.Bool("no_header", false)
	cfg.Reader.Strict = fc.Reader.Bool("strict", false)
	override(fs, "encoding", o.encoding, &cfg.Reader.Encoding)
	override(fs, "no-header", o.noHeader, &cfg.Reader.NoHeader)
	override(fs, "strict", o.strict, &cfg.Reader.Strict)

	// exec
	policy := fc.Exec.Policy
	override(fs, "exec-policy", o.execPolicy, &policy)
	p, err := transformer.ParsePolicy(policy)
	if err != nil {
		return settings{}, argspec.Errorf("--exec-policy", policy, "%v", err)
	}
	cfg.Exec.Policy = p
	cfg.Exec.Workers = fc.Exec.Workers
	override(fs, "exec-workers", o.execWorkers, &cfg.Exec.Workers)
	cfg.Exec.Verbose = o.verbose

	s.runner.Timeout = transformer.DefaultTimeout
	if fc.Exec.Timeout != "" {
		if s.runner.Timeout, err = time.ParseDuration(fc.Exec.Timeout); err != nil {
			return settings{}, fmt.Errorf("config exec.timeout: %w", err)
		}
	}
	if v := strings.TrimSpace(getenv(envExecTimeout)); v != "" {
		if s.runner.Timeout, err = time.ParseDuration(v); err != nil {
			return settings{}, fmt.Errorf("%s: %w", envExecTimeout, err)
		}
	}
	override(fs, "exec-timeout", o.execTimeout, &s.runner.Timeout)
	s.runner.OKCodes = fc.Exec.OKCodes
	override(fs, "exec-ok", o.execOK, &s.runner.OKCodes)
	s.runner.Shell = fc.Exec.Shell
	if v := getenv(envShell); v != "" {
		s.runner.Shell = v
	}
	override(fs, "shell", o.shell, &s.runner.Shell)

	// dedup
	cfg.Dedup = pipeline.Dedup{Enabled: fc.Dedup.Enabled, Keys: fc.Dedup.Keys, Policy: fc.Dedup.Policy}
	override(fs, "dedup", o.dedup, &cfg.Dedup.Enabled)
	override(fs, "dedup-keys", o.dedupKeys, &cfg.Dedup.Keys)
	override(fs, "dedup-policy", o.dedupPolicy, &cfg.Dedup.Policy)

	// presentation
	kind := fc.Format.Kind
	override(fs, "format", o.format, &kind)
	if cfg.Format.Format, err = output.ParseFormat(kind); err != nil {
		return settings{}, argspec.Errorf("--format", kind, "%v", err)
	}
	cfg.Format.Width = fc.Format.Width
	override(fs, "width", o.width, &cfg.Format.Width)
	cfg.QueryFormat = fc.Format.Query
	override(fs, "query-format", o.queryFormat, &cfg.QueryFormat)

	// sink
	cfg.Table = fc.Storage.String("table", "")
	cfg.BatchSize = fc.Storage.Int("batch_size", 0)
	override(fs, "table", o.table, &cfg.Table)
	override(fs, "batch-size", o.batchSize, &cfg.BatchSize)

	// metrics
	s.pushgatewayURL = fc.Metrics.PushgatewayURL
	if v := getenv(envPushgateway); v != "" {
		s.pushgatewayURL = v
	}
	override(fs, "pushgateway-url", o.pushgatewayURL, &s.pushgatewayURL)
	cfg.Job = fc.Metrics.Job
	override(fs, "job", o.job, &cfg.Job)

	return s, nil
}
