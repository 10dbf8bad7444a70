package selection

import (
	"errors"
	"reflect"
	"testing"

	"csvformatter/internal/argspec"
	"csvformatter/internal/table"
)

func sample() table.Table {
	return table.Table{
		Header: []string{"A", "B", "C"},
		Rows: [][]string{
			{"a1", "x", "1"},
			{"a2", "y", "1"},
			{"a3", "x", "2"},
			{"a4", "x", "1"},
		},
	}
}

func mustColumns(t *testing.T, raw string) argspec.ColumnSpec {
	t.Helper()
	spec, err := argspec.ParseColumns("-c", raw)
	if err != nil {
		t.Fatalf("ParseColumns(%q): %v", raw, err)
	}
	return spec
}

func TestProject_OrderAndDuplicates(t *testing.T) {
	t.Parallel()

	tb := table.Table{Header: []string{"A", "B"}, Rows: [][]string{{"1", "2"}}}
	idx, err := ResolveColumns("-c", mustColumns(t, "2-1-2"), tb.Header)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	got := Project(tb, idx)
	if want := []string{"B", "A", "B"}; !reflect.DeepEqual(got.Header, want) {
		t.Fatalf("header = %v, want %v", got.Header, want)
	}
	if want := []string{"2", "1", "2"}; !reflect.DeepEqual(got.Rows[0], want) {
		t.Fatalf("row = %v, want %v", got.Rows[0], want)
	}
}

func TestResolveColumns_ByName(t *testing.T) {
	t.Parallel()

	idx, err := ResolveColumns("-c", mustColumns(t, "c-A"), sample().Header)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	if want := []int{2, 0}; !reflect.DeepEqual(idx, want) {
		t.Fatalf("idx = %v, want %v", idx, want)
	}
}

func TestResolveColumns_OutOfBounds(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"4", "1-9", "missing"} {
		_, err := ResolveColumns("-c", mustColumns(t, raw), sample().Header)
		var se *argspec.SpecError
		if !errors.As(err, &se) {
			t.Fatalf("ResolveColumns(%q) err = %v, want SpecError", raw, err)
		}
	}
}

func TestSelectRows(t *testing.T) {
	t.Parallel()

	spec, err := argspec.ParseRange("-r", "3-1-1")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	tb := sample()
	idx, err := ResolveRange("-r", spec, tb.Len())
	if err != nil {
		t.Fatalf("ResolveRange: %v", err)
	}
	got := SelectRows(tb, idx)
	var first []string
	for _, r := range got.Rows {
		first = append(first, r[0])
	}
	if want := []string{"a3", "a1", "a1"}; !reflect.DeepEqual(first, want) {
		t.Fatalf("rows = %v, want %v", first, want)
	}

	spec, _ = argspec.ParseRange("-r", "5")
	if _, err := ResolveRange("-r", spec, tb.Len()); err == nil {
		t.Fatalf("row 5 of 4 accepted")
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want []string
	}{
		{"1-2", []string{"a1", "a3", "a4"}},
		{"1-2-3", []string{"a1", "a4"}},
		{"2-3", []string{"a1", "a2", "a4"}},
		{"3-1", []string{"a3"}},
	}
	for _, tc := range cases {
		spec, err := argspec.ParseMatch("-m", tc.raw)
		if err != nil {
			t.Fatalf("ParseMatch(%q): %v", tc.raw, err)
		}
		got, err := Match("-m", sample(), spec)
		if err != nil {
			t.Fatalf("Match(%q): %v", tc.raw, err)
		}
		var first []string
		for _, r := range got.Rows {
			first = append(first, r[0])
		}
		if !reflect.DeepEqual(first, tc.want) {
			t.Fatalf("Match(%q) = %v, want %v", tc.raw, first, tc.want)
		}
	}
}

func TestMatch_Bounds(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"9-1", "1-7"} {
		spec, _ := argspec.ParseMatch("-m", raw)
		_, err := Match("-m", sample(), spec)
		var se *argspec.SpecError
		if !errors.As(err, &se) {
			t.Fatalf("Match(%q) err = %v, want SpecError", raw, err)
		}
	}
}
