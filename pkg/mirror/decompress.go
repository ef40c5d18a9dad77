package mirror

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Decompress wraps r according to name's extension: gzip for ".gz",
// passthrough otherwise. Read errors from corrupt data wrap ErrDecompress.
// Closing the result does not close r.
func Decompress(r io.Reader, name string) (io.ReadCloser, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".gz") {
		return io.NopCloser(r), nil
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompress, name, err)
	}
	return &gzipReader{zr: zr, name: name}, nil
}

type gzipReader struct {
	zr   *gzip.Reader
	name string
}

func (g *gzipReader) Read(p []byte) (int, error) {
	n, err := g.zr.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %s: %w", ErrDecompress, g.name, err)
	}
	return n, err
}

func (g *gzipReader) Close() error {
	return g.zr.Close()
}
