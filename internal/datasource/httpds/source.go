package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Source reads one document over HTTP.
type Source struct {
	url    string
	client *Client
}

// NewSource returns a Source fetching rawURL with client.
func NewSource(rawURL string, client *Client) *Source {
	return &Source{url: rawURL, client: client}
}

// Open performs the GET and returns the response body. Any non-2xx final
// status is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", s.url, http.StatusText(resp.StatusCode))
	}
	return resp.Body, nil
}

// Name is the last path segment of the URL without its extension, or the
// host when the path is empty.
func (s *Source) Name() string {
	u, err := url.Parse(s.url)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return u.Hostname()
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
