package contents

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"unicode/utf8"
)

// readBufferSize is the bufio buffer used for line reads. Lines longer than
// this are assembled in a scratch buffer, so it bounds nothing but syscalls.
const readBufferSize = 256 * 1024

// LineDecoder reads a decompressed Contents index one line at a time.
//
// It is forward-only and cannot be restarted: re-reading requires reopening
// the underlying stream. Only the current line is held in memory. Lines end
// at "\n", "\r\n" or a lone "\r"; terminators are stripped.
//
// Every line must be valid UTF-8. The first invalid line stops iteration
// and Err reports an error wrapping ErrStreamDecode.
type LineDecoder struct {
	r       *bufio.Reader
	scratch []byte
	// rest is the unread part of the current "\n"-terminated chunk when
	// split is set; a lone "\r" inside it ends a line of its own.
	rest  []byte
	split bool
	line  string
	lines int64
	bytes int64
	err   error
	done  bool
}

// NewLineDecoder creates a decoder reading from r.
func NewLineDecoder(r io.Reader) *LineDecoder {
	return &LineDecoder{r: bufio.NewReaderSize(r, readBufferSize)}
}

// Next advances to the next line. It returns false at the end of the stream
// or on the first error.
func (d *LineDecoder) Next() bool {
	if !d.split {
		if d.done {
			return false
		}
		raw, err := d.readRaw()
		if err != nil && !errors.Is(err, io.EOF) {
			d.fail(fmt.Errorf("read line %d: %w", d.lines+1, err))
			return false
		}
		if len(raw) == 0 && err != nil {
			// Clean EOF with nothing pending.
			d.done = true
			return false
		}
		if err != nil {
			// Final line without a terminator; return it, then stop.
			d.done = true
		}
		d.bytes += int64(len(raw))
		d.rest, d.split = trimEOL(raw), true
	}

	seg := d.rest
	if i := bytes.IndexByte(seg, '\r'); i >= 0 {
		seg, d.rest = seg[:i], seg[i+1:]
	} else {
		d.rest, d.split = nil, false
	}

	d.lines++
	if !utf8.Valid(seg) {
		d.fail(fmt.Errorf("line %d: %w", d.lines, ErrStreamDecode))
		return false
	}

	d.line = string(seg)
	return true
}

// readRaw returns the next line including its terminator. The returned slice
// is only valid until the next call.
func (d *LineDecoder) readRaw() ([]byte, error) {
	chunk, err := d.r.ReadSlice('\n')
	if !errors.Is(err, bufio.ErrBufferFull) {
		return chunk, err
	}

	d.scratch = append(d.scratch[:0], chunk...)
	for errors.Is(err, bufio.ErrBufferFull) {
		chunk, err = d.r.ReadSlice('\n')
		d.scratch = append(d.scratch, chunk...)
	}
	return d.scratch, err
}

func (d *LineDecoder) fail(err error) {
	d.err = err
	d.done = true
	d.split = false
	d.rest = nil
	d.line = ""
}

// Line returns the current line without its terminator.
func (d *LineDecoder) Line() string {
	return d.line
}

// Err returns the first non-EOF error encountered.
func (d *LineDecoder) Err() error {
	return d.err
}

// LinesRead returns the number of lines returned so far, plus the failing
// line if decoding stopped on an error.
func (d *LineDecoder) LinesRead() int64 {
	return d.lines
}

// BytesRead returns the number of bytes consumed, terminators included.
func (d *LineDecoder) BytesRead() int64 {
	return d.bytes
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

// Lines returns a single-use sequence over the lines of r. A decode or read
// error is yielded once as the final element. Breaking out of the loop early
// is safe; closing r remains the caller's job.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		d := NewLineDecoder(r)
		for d.Next() {
			if !yield(d.Line(), nil) {
				return
			}
		}
		if err := d.Err(); err != nil {
			yield("", err)
		}
	}
}
