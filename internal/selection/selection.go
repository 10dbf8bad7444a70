// Package selection implements the column projection, explicit row range,
// and reference-row match stages.
package selection

import (
	"strings"

	"csvformatter/internal/argspec"
	"csvformatter/internal/table"
)

// ResolveRef maps a column reference onto a 0-based index of header.
// Name references match the header cell exactly first, then case-insensitively.
func ResolveRef(flag, raw string, ref argspec.Ref, header []string) (int, error) {
	if ref.Name == "" {
		if ref.Index < 1 || ref.Index > len(header) {
			return 0, argspec.Errorf(flag, raw, "column %d out of range (table has %d columns)", ref.Index, len(header))
		}
		return ref.Index - 1, nil
	}
	for i, h := range header {
		if h == ref.Name {
			return i, nil
		}
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), ref.Name) {
			return i, nil
		}
	}
	return 0, argspec.Errorf(flag, raw, "unknown column %q", ref.Name)
}

// ResolveColumns resolves every reference of spec against header, keeping
// order and duplicates.
func ResolveColumns(flag string, spec argspec.ColumnSpec, header []string) ([]int, error) {
	idx := make([]int, 0, len(spec.Refs))
	for _, ref := range spec.Refs {
		i, err := ResolveRef(flag, spec.Raw, ref, header)
		if err != nil {
			return nil, err
		}
		idx = append(idx, i)
	}
	return idx, nil
}

// Project builds a table holding the columns idx of t, in that order.
func Project(t table.Table, idx []int) table.Table {
	out := table.Table{Header: make([]string, len(idx))}
	for j, i := range idx {
		out.Header[j] = t.Header[i]
	}
	if t.Rows == nil {
		return out
	}
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, len(idx))
		for j, i := range idx {
			if i < len(row) {
				cells[j] = row[i]
			}
		}
		out.Rows[r] = cells
	}
	return out
}

// ResolveRange checks every row number of spec against rowCount and returns
// 0-based row indices in spec order.
func ResolveRange(flag string, spec argspec.RangeSpec, rowCount int) ([]int, error) {
	idx := make([]int, 0, len(spec.Rows))
	for _, n := range spec.Rows {
		if n < 1 || n > rowCount {
			return nil, argspec.Errorf(flag, spec.Raw, "row %d out of range (table has %d rows)", n, rowCount)
		}
		idx = append(idx, n-1)
	}
	return idx, nil
}

// SelectRows returns the rows idx of t, in that order.
func SelectRows(t table.Table, idx []int) table.Table {
	rows := make([][]string, len(idx))
	for j, i := range idx {
		rows[j] = t.Rows[i]
	}
	return t.WithRows(rows)
}

// Match keeps the rows of t whose cells on the spec columns are equal to
// those of the reference row. The reference row itself is always kept.
func Match(flag string, t table.Table, spec argspec.MatchSpec) (table.Table, error) {
	if spec.Row < 1 || spec.Row > t.Len() {
		return table.Table{}, argspec.Errorf(flag, spec.Raw, "reference row %d out of range (table has %d rows)", spec.Row, t.Len())
	}
	cols, err := ResolveColumns(flag, argspec.ColumnSpec{Raw: spec.Raw, Refs: spec.Columns}, t.Header)
	if err != nil {
		return table.Table{}, err
	}
	ref := t.Rows[spec.Row-1]
	rows := make([][]string, 0, t.Len())
	for _, row := range t.Rows {
		if sameCells(row, ref, cols) {
			rows = append(rows, row)
		}
	}
	return t.WithRows(rows), nil
}

func sameCells(a, b []string, cols []int) bool {
	for _, c := range cols {
		if cell(a, c) != cell(b, c) {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
