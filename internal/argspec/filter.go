package argspec

import (
	"strings"
)

// FilterKind selects the predicate family of a FilterSpec.
type FilterKind int

const (
	KindType    FilterKind = iota + 1 // cell parses (or not) as a named type
	KindLiteral                       // trimmed exact string equality
	KindRegex                         // unanchored RE2 search on the raw cell
)

func (k FilterKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindLiteral:
		return "literal"
	case KindRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Type names accepted by type-check filters.
const (
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBool    = "bool"
	TypeDate    = "date"
)

var typeAliases = map[string]string{
	"integer": TypeInteger,
	"int":     TypeInteger,
	"float":   TypeFloat,
	"number":  TypeFloat,
	"real":    TypeFloat,
	"bool":    TypeBool,
	"boolean": TypeBool,
	"date":    TypeDate,
}

// FilterSpec is one -f predicate.
//
// For KindType, TypeName is one of the Type* constants and Want tells whether
// rows must parse (true) or must not parse (false). For KindLiteral and
// KindRegex, Arg holds the literal or the pattern.
type FilterSpec struct {
	Raw      string
	Column   Ref
	Kind     FilterKind
	TypeName string
	Want     bool
	Arg      string
}

// ParseFilter parses "<col>-<kind>[-<arg>]" where kind is Integer, float,
// bool, date, literal, or "regex:<pattern>". A regex pattern may itself
// contain the separator; only the first one after the column splits.
func ParseFilter(flag, raw string) (FilterSpec, error) {
	s := strings.TrimSpace(raw)
	col, rest, ok := strings.Cut(s, Sep)
	if !ok || strings.TrimSpace(rest) == "" {
		return FilterSpec{}, Errorf(flag, raw, "want <col>-<kind>-<arg>")
	}
	ref, err := parseRef(flag, raw, col)
	if err != nil {
		return FilterSpec{}, err
	}
	spec := FilterSpec{Raw: raw, Column: ref}

	lower := strings.ToLower(rest)
	switch {
	case strings.HasPrefix(lower, "regex:"):
		spec.Kind = KindRegex
		spec.Arg = rest[len("regex:"):]
		return spec, nil
	case strings.HasPrefix(lower, "regex"+Sep):
		spec.Kind = KindRegex
		spec.Arg = rest[len("regex"+Sep):]
		return spec, nil
	}

	kind, arg, hasArg := strings.Cut(rest, Sep)
	kind = strings.ToLower(strings.TrimSpace(kind))

	if kind == "literal" {
		if !hasArg {
			return FilterSpec{}, Errorf(flag, raw, "literal filter needs a value: <col>-literal-<value>")
		}
		spec.Kind = KindLiteral
		spec.Arg = arg
		return spec, nil
	}

	typ, known := typeAliases[kind]
	if !known {
		return FilterSpec{}, Errorf(flag, raw,
			"unknown filter kind %q (want Integer, float, bool, date, literal, or regex:<pattern>)", kind)
	}
	spec.Kind = KindType
	spec.TypeName = typ
	spec.Want = true
	if hasArg {
		switch strings.ToLower(strings.TrimSpace(arg)) {
		case "", "true", "yes", "1":
			spec.Want = true
		case "false", "no", "0":
			spec.Want = false
		default:
			return FilterSpec{}, Errorf(flag, raw, "type filter argument %q must be true or false", arg)
		}
	}
	return spec, nil
}
