// Package argspec parses the string specs accepted on the command line
// ("2-1-2", "1-literal-x", "10-1-3", `1-"tr a-z A-Z"`) into typed values.
//
// Every parser validates syntax once, at the boundary, and returns a
// *SpecError naming the flag and the raw spec on failure. Bounds that depend
// on the input (column count, row count) are checked later by the selection
// and filter engines, which return the same error type.
package argspec

import (
	"strconv"
	"strings"
)

// Sep separates list items in every spec.
const Sep = "-"

// Ref addresses a column either by 1-based index or by header name.
type Ref struct {
	Index int    // 1-based; zero when Name is set
	Name  string // header name; empty when Index is set
}

func (r Ref) String() string {
	if r.Name != "" {
		return r.Name
	}
	return strconv.Itoa(r.Index)
}

// ColumnSpec is an ordered, possibly repeating, list of column references.
type ColumnSpec struct {
	Raw  string
	Refs []Ref
}

// RangeSpec is an ordered list of 1-based data-row numbers. "1-3-4" means
// rows 1, 3 and 4, not the span 1..4.
type RangeSpec struct {
	Raw  string
	Rows []int
}

// SizeSpec bounds the number of emitted rows.
type SizeSpec struct {
	Raw string
	All bool
	N   int
}

// DefaultSize is the row limit applied when -s is absent.
var DefaultSize = SizeSpec{Raw: "20", N: 20}

// ParseColumns parses a -c spec.
func ParseColumns(flag, raw string) (ColumnSpec, error) {
	toks, err := splitList(flag, raw)
	if err != nil {
		return ColumnSpec{}, err
	}
	spec := ColumnSpec{Raw: raw, Refs: make([]Ref, 0, len(toks))}
	for _, tok := range toks {
		ref, err := parseRef(flag, raw, tok)
		if err != nil {
			return ColumnSpec{}, err
		}
		spec.Refs = append(spec.Refs, ref)
	}
	return spec, nil
}

// ParseRange parses a -r spec.
func ParseRange(flag, raw string) (RangeSpec, error) {
	toks, err := splitList(flag, raw)
	if err != nil {
		return RangeSpec{}, err
	}
	spec := RangeSpec{Raw: raw, Rows: make([]int, 0, len(toks))}
	for _, tok := range toks {
		n, err := parsePositive(flag, raw, tok, "row number")
		if err != nil {
			return RangeSpec{}, err
		}
		spec.Rows = append(spec.Rows, n)
	}
	return spec, nil
}

// ParseSize parses a -s spec: a non-negative integer or "all".
func ParseSize(flag, raw string) (SizeSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultSize, nil
	}
	if strings.EqualFold(s, "all") {
		return SizeSpec{Raw: raw, All: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return SizeSpec{}, Errorf(flag, raw, `want a non-negative integer or "all"`)
	}
	return SizeSpec{Raw: raw, N: n}, nil
}

// Limit returns the number of rows to keep out of total.
func (s SizeSpec) Limit(total int) int {
	if s.All || s.N > total {
		return total
	}
	return s.N
}

func splitList(flag, raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, Errorf(flag, raw, "empty spec")
	}
	toks := strings.Split(s, Sep)
	for i, tok := range toks {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, Errorf(flag, raw, "empty item at position %d", i+1)
		}
		toks[i] = tok
	}
	return toks, nil
}

func parseRef(flag, raw, tok string) (Ref, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Ref{}, Errorf(flag, raw, "empty column reference")
	}
	if n, err := strconv.Atoi(tok); err == nil {
		if n < 1 {
			return Ref{}, Errorf(flag, raw, "column index %d must be >= 1", n)
		}
		return Ref{Index: n}, nil
	}
	return Ref{Name: tok}, nil
}

func parsePositive(flag, raw, tok, what string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return 0, Errorf(flag, raw, "%s %q is not an integer", what, tok)
	}
	if n < 1 {
		return 0, Errorf(flag, raw, "%s %d must be >= 1", what, n)
	}
	return n, nil
}
