package csv

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"csvformatter/internal/table"
)

// WriteOptions configures Write.
type WriteOptions struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune
}

// Write serializes t to w: header first, then rows in order,
// each record terminated by "\n". An empty table writes nothing.
func Write(w io.Writer, t table.Table, opt WriteOptions) error {
	if t.Empty() {
		return nil
	}
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}
	bw := bufio.NewWriter(w)
	if len(t.Header) > 0 {
		if err := writeRecord(bw, t.Header, comma); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if err := writeRecord(bw, row, comma); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteString renders t as CSV text.
func WriteString(t table.Table, opt WriteOptions) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, t, opt); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeRecord(bw *bufio.Writer, rec []string, comma rune) error {
	// A lone empty cell would print a blank line, which readers skip.
	if len(rec) == 1 && rec[0] == "" {
		_, err := bw.WriteString("\"\"\n")
		if err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	}
	for i, cell := range rec {
		if i > 0 {
			if _, err := bw.WriteRune(comma); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
		}
		if !needsQuotes(cell, comma) {
			if _, err := bw.WriteString(cell); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			continue
		}
		bw.WriteByte('"')
		bw.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		if err := bw.WriteByte('"'); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// needsQuotes reports whether cell contains the delimiter, a quote, or a
// line break.
func needsQuotes(cell string, comma rune) bool {
	return strings.ContainsRune(cell, comma) || strings.ContainsAny(cell, "\"\r\n")
}
