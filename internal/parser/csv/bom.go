package csv

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

const utf8BOM = "\uFEFF"

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
// Stripping at the byte level (rather than from the first header cell only)
// keeps a quoted first header such as `"name",...` parseable.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, 64*1024)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, []byte(utf8BOM)) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func StripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	return headers
}
