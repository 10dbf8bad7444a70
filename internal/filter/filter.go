// Package filter compiles -f specs into row predicates and applies them as a
// conjunction: a row survives only if every predicate accepts it.
package filter

import (
	"regexp"
	"strconv"
	"strings"

	"csvformatter/internal/argspec"
	"csvformatter/internal/probe"
	"csvformatter/internal/selection"
	"csvformatter/internal/table"
)

// Flag is the flag name used in SpecError messages.
const Flag = "-f"

// Predicate accepts or rejects a single cell.
type Predicate func(cell string) bool

type compiled struct {
	col  int
	spec string
	pred Predicate
}

// Chain is an ordered conjunction of compiled filters.
type Chain struct {
	preds []compiled
}

// Len returns the number of predicates in the chain.
func (c Chain) Len() int { return len(c.preds) }

// Compile resolves every spec against header and prepares its predicate.
func Compile(specs []argspec.FilterSpec, header []string) (Chain, error) {
	var c Chain
	for _, s := range specs {
		col, err := selection.ResolveRef(Flag, s.Raw, s.Column, header)
		if err != nil {
			return Chain{}, err
		}
		pred, err := predicate(s)
		if err != nil {
			return Chain{}, err
		}
		c.preds = append(c.preds, compiled{col: col, spec: s.Raw, pred: pred})
	}
	return c, nil
}

// Match reports whether row satisfies every predicate.
func (c Chain) Match(row []string) bool {
	for _, p := range c.preds {
		var cell string
		if p.col < len(row) {
			cell = row[p.col]
		}
		if !p.pred(cell) {
			return false
		}
	}
	return true
}

// Apply returns the rows of t accepted by the chain, in input order.
func (c Chain) Apply(t table.Table) table.Table {
	if len(c.preds) == 0 {
		return t
	}
	rows := make([][]string, 0, t.Len())
	for _, row := range t.Rows {
		if c.Match(row) {
			rows = append(rows, row)
		}
	}
	return t.WithRows(rows)
}

func predicate(s argspec.FilterSpec) (Predicate, error) {
	switch s.Kind {
	case argspec.KindLiteral:
		want := strings.TrimSpace(s.Arg)
		return func(cell string) bool { return strings.TrimSpace(cell) == want }, nil
	case argspec.KindRegex:
		re, err := regexp.Compile(s.Arg)
		if err != nil {
			return nil, argspec.Errorf(Flag, s.Raw, "bad regex: %v", err)
		}
		return re.MatchString, nil
	case argspec.KindType:
		parses, err := typeCheck(s)
		if err != nil {
			return nil, err
		}
		want := s.Want
		return func(cell string) bool { return parses(cell) == want }, nil
	default:
		return nil, argspec.Errorf(Flag, s.Raw, "unsupported filter kind %s", s.Kind)
	}
}

func typeCheck(s argspec.FilterSpec) (Predicate, error) {
	switch s.TypeName {
	case argspec.TypeInteger:
		return func(cell string) bool {
			_, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
			return err == nil
		}, nil
	case argspec.TypeFloat:
		return probe.IsNumber, nil
	case argspec.TypeBool:
		return probe.IsBool, nil
	case argspec.TypeDate:
		return func(cell string) bool {
			ok, _ := probe.ParseDateOrTimestamp(cell)
			return ok
		}, nil
	default:
		return nil, argspec.Errorf(Flag, s.Raw, "unsupported type %q", s.TypeName)
	}
}
