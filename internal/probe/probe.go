// Package probe summarizes a table for query mode: per column it reports the
// original and normalized names, an inferred SQL-like type, and fill and
// cardinality counts.
package probe

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/xxh3"

	"csvformatter/internal/table"
)

// Column describes one column of a summarized table.
type Column struct {
	Index      int // 1-based
	Name       string
	Normalized string
	Type       string
	NonEmpty   int
	Distinct   int
}

// Summary is the query-mode view of a table.
type Summary struct {
	Rows    int
	Columns []Column
	// InputBytes is the size of the parsed input, when known.
	InputBytes int64
}

// SummaryHeader is the header of the CSV rendering of a Summary.
var SummaryHeader = []string{"index", "name", "normalized", "type", "non_empty", "distinct"}

// Summarize inspects every row of t.
func Summarize(t table.Table) Summary {
	names := ColumnNames(t.Header)
	s := Summary{Rows: t.Len(), Columns: make([]Column, t.Width())}
	for i, h := range t.Header {
		values := t.Column(i)
		seen := make(map[uint64]struct{}, len(values))
		nonEmpty := 0
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				nonEmpty++
			}
			seen[xxh3.HashString(v)] = struct{}{}
		}
		s.Columns[i] = Column{
			Index:      i + 1,
			Name:       h,
			Normalized: names[i],
			Type:       InferType(values),
			NonEmpty:   nonEmpty,
			Distinct:   len(seen),
		}
	}
	return s
}

// Table renders s as rows of index,name,normalized,type,non_empty,distinct.
func (s Summary) Table() table.Table {
	out := table.Table{Header: append([]string(nil), SummaryHeader...), Rows: make([][]string, 0, len(s.Columns))}
	for _, c := range s.Columns {
		out.Rows = append(out.Rows, []string{
			strconv.Itoa(c.Index),
			c.Name,
			c.Normalized,
			c.Type,
			strconv.Itoa(c.NonEmpty),
			strconv.Itoa(c.Distinct),
		})
	}
	return out
}

// Text renders s for a terminal: a humanized headline followed by one line
// per column.
func (s Summary) Text() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s rows, %d columns", humanize.Comma(int64(s.Rows)), len(s.Columns))
	if s.InputBytes > 0 {
		fmt.Fprintf(&buf, ", %s input", humanize.Bytes(uint64(s.InputBytes)))
	}
	buf.WriteByte('\n')

	nameWidth := 0
	for _, c := range s.Columns {
		if n := len([]rune(c.Name)); n > nameWidth {
			nameWidth = n
		}
	}
	for _, c := range s.Columns {
		pad := strings.Repeat(" ", nameWidth-len([]rune(c.Name)))
		fmt.Fprintf(&buf, "%3d  %s%s  %-9s  %s  non-empty=%s distinct=%s\n",
			c.Index, c.Name, pad, c.Type, c.Normalized,
			humanize.Comma(int64(c.NonEmpty)), humanize.Comma(int64(c.Distinct)))
	}
	return buf.String()
}
