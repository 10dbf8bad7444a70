// Package datasource resolves the input argument of csvformatter into a
// readable byte stream: a local file, standard input ("-"), or an http(s)
// URL.
package datasource

import (
	"context"
	"io"
	"strings"

	"csvformatter/internal/datasource/file"
	"csvformatter/internal/datasource/httpds"
)

// Source yields the raw bytes of one input document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name is a short label for the input (base file name without
	// extension), used to derive default table names.
	Name() string
}

// Resolve picks the Source for location. HTTP sources use cfg.
func Resolve(location string, cfg httpds.Config) Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return httpds.NewSource(location, httpds.NewClient(cfg))
	}
	if location == "-" {
		return file.NewStdin()
	}
	return file.NewLocal(location)
}
