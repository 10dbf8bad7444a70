package probe

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxIdentLen is PostgreSQL's identifier limit; the other sinks accept more.
const maxIdentLen = 63

// NormalizeFieldName converts arbitrary header text into a lowercase ASCII
// identifier suitable for SQL schemas:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func NormalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}

// TruncateFieldName keeps names within 63 bytes, returning the first 10 and
// last 53 characters of longer ones.
func TruncateFieldName(s string) string {
	if len(s) > maxIdentLen {
		return s[:10] + s[len(s)-53:]
	}
	return s
}

// ColumnNames normalizes and truncates every header cell and makes the
// results unique by suffixing repeats with _2, _3, ...
func ColumnNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := TruncateFieldName(NormalizeFieldName(h))
		base := name
		for seen[name] > 0 {
			seen[base]++
			name = TruncateFieldName(base + "_" + strconv.Itoa(seen[base]))
		}
		seen[name]++
		out[i] = name
	}
	return out
}
