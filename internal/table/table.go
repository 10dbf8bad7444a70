// Package table defines the in-memory tabular model shared by every stage of
// the csvformatter pipeline: an ordered header plus ordered rows of string
// cells. Stages never mutate a Table they did not create; they build a new one.
package table

// Table is a fully materialized CSV document.
//
// Invariant (after parsing): every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Width returns the number of columns.
func (t Table) Width() int { return len(t.Header) }

// Len returns the number of data rows (the header is not counted).
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has neither a header nor rows.
func (t Table) Empty() bool { return len(t.Header) == 0 && len(t.Rows) == 0 }

// WithRows returns a table sharing t's header with the given rows.
func (t Table) WithRows(rows [][]string) Table {
	return Table{Header: t.Header, Rows: rows}
}

// Clone deep-copies the header and every row so the result can be modified
// without affecting t.
func (t Table) Clone() Table {
	out := Table{Header: append([]string(nil), t.Header...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}

// Column returns the cells of column idx in row order. Rows shorter than
// idx+1 contribute an empty string.
func (t Table) Column(idx int) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		if idx < len(r) {
			out[i] = r[idx]
		}
	}
	return out
}
