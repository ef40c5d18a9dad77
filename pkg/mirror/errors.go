package mirror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrHTTPStatus indicates the mirror answered with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrUnsupportedScheme indicates a mirror URL whose scheme has no Source.
	ErrUnsupportedScheme = errors.New("unsupported mirror URL scheme")
	// ErrDecompress indicates the downloaded index is not valid gzip data.
	ErrDecompress = errors.New("decompress contents index")
	// ErrUnknownArchitecture indicates an architecture Debian does not publish.
	ErrUnknownArchitecture = errors.New("unknown architecture")
)

// StatusError reports a non-2xx HTTP response. It matches ErrHTTPStatus.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether target is ErrHTTPStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Retry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked permanent
// or is a non-temporary StatusError.
func IsPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Temporary()
	}
	return errors.Is(err, ErrUnsupportedScheme)
}
