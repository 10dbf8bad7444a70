// Package output renders the final table on a writer, either as CSV or as
// an aligned preview for terminals.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	pcsv "csvformatter/internal/parser/csv"
	"csvformatter/internal/table"
)

// Format selects the rendering.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// DefaultWidth is the preview cell width used when none is configured.
const DefaultWidth = 20

// ParseFormat validates a format name; empty means FormatCSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want csv or table)", s)
	}
}

// Options control Emit.
type Options struct {
	Format Format
	Comma  rune
	// Width caps the preview cell width in runes; <= 0 uses DefaultWidth.
	Width int
}

// Emit writes t to w.
func Emit(w io.Writer, t table.Table, opt Options) error {
	if opt.Format == FormatTable {
		return Preview(w, t, opt.Width)
	}
	return pcsv.Write(w, t, pcsv.WriteOptions{Comma: opt.Comma})
}

// Preview writes t as a bordered table with every cell cut to width runes.
func Preview(w io.Writer, t table.Table, width int) error {
	if t.Empty() {
		return nil
	}
	if width <= 0 {
		width = DefaultWidth
	}
	tw := tablewriter.NewWriter(w)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeader(truncateAll(t.Header, width))
	for _, row := range t.Rows {
		tw.Append(truncateAll(row, width))
	}
	tw.Render()
	return nil
}

func truncateAll(cells []string, width int) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = Truncate(c, width)
	}
	return out
}

// Truncate shortens s to width runes, marking the cut with "...".
// Line breaks are shown as spaces so a cell stays on one line.
func Truncate(s string, width int) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
