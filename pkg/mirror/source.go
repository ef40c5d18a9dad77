// Package mirror retrieves Debian Contents indices from HTTP(S) and S3
// mirrors into scoped temp files, and decompresses them.
package mirror

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Source downloads named objects relative to a mirror base location.
type Source interface {
	// Download writes the object at name into dst, which is empty and
	// positioned at offset 0, and returns the number of bytes written.
	Download(ctx context.Context, name string, dst *os.File) (int64, error)
	// Location returns a printable location for name.
	Location(name string) string
}

// SourceOptions configures the sources built by NewSource.
type SourceOptions struct {
	// HTTPTimeout bounds a single HTTP download attempt. Zero means no limit.
	HTTPTimeout time.Duration
	// UserAgent is sent with HTTP requests.
	UserAgent string
	// S3 configures s3:// mirrors.
	S3 S3Options
}

// NewSource returns the Source for rawURL's scheme: http, https or s3.
func NewSource(ctx context.Context, rawURL string, opts SourceOptions) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse mirror URL %q: %w", rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPSource(rawURL, opts.HTTPTimeout, opts.UserAgent), nil
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("mirror URL %q: missing bucket", rawURL)
		}
		return NewS3Source(ctx, u.Host, strings.Trim(u.Path, "/"), opts.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
