// Package csv reads and writes CSV documents as table.Table values.
//
// Reading honors RFC-4180 quoting (quoted delimiters, doubled quotes, embedded
// newlines) through encoding/csv and then enforces a fixed row width:
// short rows are padded with empty cells (or rejected in strict mode) and long
// rows are always rejected. Data is never silently dropped.
//
// Writing uses minimal quoting: a cell is quoted only when it contains the
// delimiter, a double quote, or a line break.
package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"csvformatter/internal/table"
)

// Options configures Read. The zero value reads comma-separated UTF-8 with a
// header row and pads short rows.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// Encoding names the source character set (e.g. "windows-1250",
	// "iso-8859-2", "latin1"). Empty or "utf-8" means no transcoding.
	Encoding string

	// NoHeader treats the first record as data. The header is then
	// synthesized as col_1..col_N from the widest row.
	NoHeader bool

	// Strict rejects short rows instead of padding them.
	Strict bool
}

// ParseError reports malformed input. Line is the 1-based physical line on
// which the offending record starts.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	// ErrLongRow is wrapped by ParseError when a row has more cells than the header.
	ErrLongRow = errors.New("row has more fields than the header")
	// ErrShortRow is wrapped by ParseError when a row has fewer cells than the
	// header and strict mode is on.
	ErrShortRow = errors.New("row has fewer fields than the header")
)

// Read parses the whole of r into a Table. Empty input yields an empty Table.
func Read(r io.Reader, opt Options) (table.Table, error) {
	src, err := decodeReader(r, opt.Encoding)
	if err != nil {
		return table.Table{}, err
	}

	raw, err := io.ReadAll(skipBOM(src))
	if err != nil {
		return table.Table{}, fmt.Errorf("read csv: %w", err)
	}
	data, escaped := protectCR(raw)

	cr := csv.NewReader(bytes.NewReader(data))
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	// Width is enforced below so the error can name both widths.
	cr.FieldsPerRecord = -1

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, asParseError(err)
		}
		if escaped {
			restoreRecord(rec)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	if len(records) == 0 {
		return table.Table{}, nil
	}

	var t table.Table
	body, bodyLines := records, lines
	if opt.NoHeader {
		t.Header = synthesizeHeader(records)
	} else {
		t.Header = StripHeaderBOM(records[0])
		body, bodyLines = records[1:], lines[1:]
	}

	width := len(t.Header)
	t.Rows = make([][]string, 0, len(body))
	for i, rec := range body {
		switch {
		case len(rec) > width:
			return table.Table{}, &ParseError{
				Line: bodyLines[i],
				Err:  fmt.Errorf("%w: expected %d, got %d", ErrLongRow, width, len(rec)),
			}
		case len(rec) < width:
			if opt.Strict {
				return table.Table{}, &ParseError{
					Line: bodyLines[i],
					Err:  fmt.Errorf("%w: expected %d, got %d", ErrShortRow, width, len(rec)),
				}
			}
			rec = append(rec, make([]string, width-len(rec))...)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadString is a convenience wrapper around Read.
func ReadString(s string, opt Options) (table.Table, error) {
	return Read(strings.NewReader(s), opt)
}

func asParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.StartLine, Column: pe.Column, Err: pe.Err}
	}
	return fmt.Errorf("read csv: %w", err)
}

func synthesizeHeader(records [][]string) []string {
	width := 0
	for _, r := range records {
		if len(r) > width {
			width = len(r)
		}
	}
	h := make([]string, width)
	for i := range h {
		h[i] = fmt.Sprintf("col_%d", i+1)
	}
	return h
}

// decodeReader wraps r with a decoder for the named charset.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == encoding.Nop {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// CheckEncoding reports whether name is a charset Read can decode.
func CheckEncoding(name string) error {
	_, err := decodeReader(strings.NewReader(""), name)
	return err
}
