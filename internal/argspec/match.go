package argspec

import "strings"

// MatchSpec keeps the rows that agree with a reference row on a set of
// columns. Row is the 1-based data-row number of the reference row.
type MatchSpec struct {
	Raw     string
	Row     int
	Columns []Ref
}

// ParseMatch parses "<row>-<col1>-<col2>-...".
func ParseMatch(flag, raw string) (MatchSpec, error) {
	toks, err := splitList(flag, raw)
	if err != nil {
		return MatchSpec{}, err
	}
	if len(toks) < 2 {
		return MatchSpec{}, Errorf(flag, raw, "want <row>-<col1>[-<col2>...]")
	}
	row, err := parsePositive(flag, raw, toks[0], "reference row")
	if err != nil {
		return MatchSpec{}, err
	}
	spec := MatchSpec{Raw: raw, Row: row, Columns: make([]Ref, 0, len(toks)-1)}
	for _, tok := range toks[1:] {
		ref, err := parseRef(flag, raw, tok)
		if err != nil {
			return MatchSpec{}, err
		}
		spec.Columns = append(spec.Columns, ref)
	}
	return spec, nil
}

// ExecuteSpec pipes every cell of Column through Command.
type ExecuteSpec struct {
	Raw     string
	Column  Ref
	Command string
}

// ParseExecute parses `<col>-<command>`. Wrapping quotes around the whole
// rule and around the command are removed, so `1-"tr a-z A-Z"` and
// `"1-tr a-z A-Z"` are equivalent.
func ParseExecute(flag, raw string) (ExecuteSpec, error) {
	rule := unquote(strings.TrimSpace(raw))
	col, cmd, ok := strings.Cut(rule, Sep)
	if !ok {
		return ExecuteSpec{}, Errorf(flag, raw, `want <col>-"<command>"`)
	}
	ref, err := parseRef(flag, raw, col)
	if err != nil {
		return ExecuteSpec{}, err
	}
	cmd = unquote(strings.TrimSpace(cmd))
	if strings.TrimSpace(cmd) == "" {
		return ExecuteSpec{}, Errorf(flag, raw, "empty command")
	}
	return ExecuteSpec{Raw: raw, Column: ref, Command: cmd}, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
