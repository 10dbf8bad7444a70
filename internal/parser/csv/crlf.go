package csv

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// encoding/csv folds "\r\n" inside quoted fields into "\n". To keep cells
// byte-exact, every '\r' inside quotes is replaced by a two-rune escape from
// the private use area before parsing and restored afterwards. escMark in the
// input is escaped too, so any document survives the trip.
const (
	escMark = '\uE000'
	escSelf = '\uE001' // follows escMark: a literal escMark
	escCR   = '\uE002' // follows escMark: '\r'
)

var escMarkBytes = []byte(string(escMark))

// protectCR rewrites data as described above and reports whether anything
// was escaped. Quote state toggles on every '"', which also handles doubled
// quotes inside quoted fields.
func protectCR(data []byte) ([]byte, bool) {
	quotedCR := false
	quoted := false
	for _, c := range data {
		if c == '"' {
			quoted = !quoted
		} else if c == '\r' && quoted {
			quotedCR = true
			break
		}
	}
	if !quotedCR && !bytes.Contains(data, escMarkBytes) {
		return data, false
	}

	out := make([]byte, 0, len(data)+64)
	quoted = false
	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '"':
			quoted = !quoted
			out = append(out, c)
			i++
		case c == '\r' && quoted:
			out = utf8.AppendRune(out, escMark)
			out = utf8.AppendRune(out, escCR)
			i++
		case bytes.HasPrefix(data[i:], escMarkBytes):
			out = utf8.AppendRune(out, escMark)
			out = utf8.AppendRune(out, escSelf)
			i += len(escMarkBytes)
		default:
			out = append(out, c)
			i++
		}
	}
	return out, true
}

// restoreCR undoes protectCR on one cell.
func restoreCR(s string) string {
	if !strings.ContainsRune(s, escMark) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, n := utf8.DecodeRuneInString(s[i:])
		if r == escMark && i+n < len(s) {
			next, m := utf8.DecodeRuneInString(s[i+n:])
			switch next {
			case escCR:
				b.WriteByte('\r')
				i += n + m
				continue
			case escSelf:
				b.WriteRune(escMark)
				i += n + m
				continue
			}
		}
		b.WriteString(s[i : i+n])
		i += n
	}
	return b.String()
}

func restoreRecord(rec []string) {
	for i, c := range rec {
		rec[i] = restoreCR(c)
	}
}
