package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultUserAgent identifies downloads to mirror operators.
const DefaultUserAgent = "debpkgstats/1.0"

// HTTPSource downloads from an HTTP(S) mirror.
type HTTPSource struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewHTTPSource creates a source rooted at baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration, userAgent string) *HTTPSource {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Location returns the URL of name.
func (s *HTTPSource) Location(name string) string {
	return s.baseURL + "/" + strings.TrimLeft(name, "/")
}

// Download streams the response body for name into dst.
func (s *HTTPSource) Download(ctx context.Context, name string, dst *os.File) (int64, error) {
	u := s.Location(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		io.CopyN(io.Discard, resp.Body, 4096)
		return 0, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read body of %s: %w", u, err)
	}
	return n, nil
}
