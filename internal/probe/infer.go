package probe

import (
	"strconv"
	"strings"
	"time"
)

// Inferred column types.
const (
	TypeInteger   = "integer"
	TypeBoolean   = "boolean"
	TypeReal      = "real"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeText      = "text"
)

// InferType guesses a SQL-friendly type among:
// boolean, integer, real, date, timestamp, text.
// Heuristic: require all non-empty values to satisfy a narrower type.
func InferType(values []string) string {
	nonEmpty := nonEmptyTrimmed(values)
	if len(nonEmpty) == 0 {
		return TypeText
	}
	if allMatch(nonEmpty, IsInt) {
		return TypeInteger
	}
	if allMatch(nonEmpty, IsBool) {
		return TypeBoolean
	}
	// All-int columns returned above, so a mix of ints and floats is real.
	if allMatch(nonEmpty, IsNumber) {
		return TypeReal
	}
	// Dates and timestamps (prefer timestamp when any time component exists).
	allDate := true
	anyTime := false
	for _, v := range nonEmpty {
		ok, hasTime := ParseDateOrTimestamp(v)
		if !ok {
			allDate = false
			break
		}
		if hasTime {
			anyTime = true
		}
	}
	if allDate {
		if anyTime {
			return TypeTimestamp
		}
		return TypeDate
	}
	return TypeText
}

// nonEmptyTrimmed returns the non-empty, trimmed values.
func nonEmptyTrimmed(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// IsBool accepts common textual booleans and 1/0.
func IsBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "t", "f", "yes", "no", "y", "n", "1", "0":
		return true
	default:
		return false
	}
}

// IsInt requires a signed base-10 integer that fits in int64.
func IsInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// IsFloat accepts decimal or scientific notation floats.
// If s parses as int, it is NOT a float (ints stay integer).
func IsFloat(s string) bool {
	if IsInt(s) {
		return false
	}
	return IsNumber(s)
}

// IsNumber accepts anything strconv.ParseFloat does, integers included.
func IsNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// ParseDateOrTimestamp tries to parse s as a timestamp first, then a date.
// It returns ok=true when one of the layouts matched and hasTime whether time
// components were present.
func ParseDateOrTimestamp(s string) (ok bool, hasTime bool) {
	st := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, st); err == nil {
			return true, true
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, st); err == nil {
			return true, false
		}
	}
	return false, false
}

// dateLayouts are common date formats (no time component).
var dateLayouts = []string{
	"2006-01-02",  // ISO
	"02.01.2006",  // DMY dot
	"01.02.2006",  // MDY dot
	"02/01/2006",  // DMY slash
	"01/02/2006",  // MDY slash
	"2 Jan 2006",  // DMY textual day
	"02-Jan-2006", // DMY dash textual month
	"2006/01/02",  // ISO slashy
	"20060102",    // basic ISO
}

// timestampLayouts are common timestamp formats (with time component).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}
