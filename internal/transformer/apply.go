package transformer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"csvformatter/internal/argspec"
	"csvformatter/internal/selection"
	"csvformatter/internal/table"
)

// Flag is the flag name used in SpecError messages.
const Flag = "-x"

// Policy decides what a failed invocation does to the run.
type Policy string

const (
	// PolicyKeep leaves the original cell in place and records a warning.
	PolicyKeep Policy = "keep"
	// PolicyAbort stops the run on the first failure.
	PolicyAbort Policy = "abort"
)

// ParsePolicy validates a policy name; empty means PolicyKeep.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyKeep, nil
	case PolicyKeep, PolicyAbort:
		return p, nil
	default:
		return "", fmt.Errorf("unknown exec policy %q (want keep or abort)", s)
	}
}

// Options tune Apply.
type Options struct {
	Policy Policy
	// Workers bounds concurrent invocations of one ExecuteSpec; <= 1 runs
	// rows sequentially.
	Workers int
	// MaxWarnings is how many failure messages the Report keeps.
	MaxWarnings int
	Verbose     bool
}

// Report summarizes the invocations of one Apply call.
type Report struct {
	Invocations int
	Failures    int
	Distinct    int // distinct failure messages
	// Warnings holds the first MaxWarnings failure messages.
	Warnings []string
}

// Resolve maps every spec onto a 0-based column of header.
func Resolve(specs []argspec.ExecuteSpec, header []string) ([]int, error) {
	cols := make([]int, len(specs))
	for i, s := range specs {
		c, err := selection.ResolveRef(Flag, s.Raw, s.Column, header)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

// Apply runs every spec in order over t and returns the rewritten table.
// Specs apply to the result of the previous one. Rows keep their order
// whatever the worker count.
func Apply(ctx context.Context, t table.Table, specs []argspec.ExecuteSpec, runner Runner, opt Options) (table.Table, Report, error) {
	if len(specs) == 0 {
		return t, Report{}, nil
	}
	cols, err := Resolve(specs, t.Header)
	if err != nil {
		return table.Table{}, Report{}, err
	}
	if opt.Policy == "" {
		opt.Policy = PolicyKeep
	}
	if opt.MaxWarnings <= 0 {
		opt.MaxWarnings = 10
	}
	workers := opt.Workers
	if workers < 1 {
		workers = 1
	}

	out := t.Clone()
	agg := newErrAgg(opt.MaxWarnings)
	for si, spec := range specs {
		col := cols[si]
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for ri := range out.Rows {
			row := out.Rows[ri]
			rowNum := ri + 1
			g.Go(func() error {
				agg.invoked()
				res, err := runner.Run(gctx, spec.Command, row[col])
				if err == nil {
					row[col] = res
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				ee := locate(err, spec.Command, rowNum, col+1)
				if opt.Policy == PolicyAbort {
					return ee
				}
				agg.add(ee.Error())
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return table.Table{}, agg.report(), err
		}
		if opt.Verbose {
			log.Printf("transform: %s applied to %d rows", spec.Raw, out.Len())
		}
	}
	return out, agg.report(), nil
}

// locate returns a copy of the ExecError behind err carrying the row and
// column, or a new one wrapping err.
func locate(err error, command string, row, col int) *ExecError {
	var ee *ExecError
	if errors.As(err, &ee) {
		cp := *ee
		cp.Row, cp.Column = row, col
		return &cp
	}
	return &ExecError{Row: row, Column: col, Command: command, Err: err}
}
