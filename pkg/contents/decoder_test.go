package contents

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
)

func collectLines(t *testing.T, r io.Reader) ([]string, error) {
	t.Helper()
	var lines []string
	for line, err := range Lines(r) {
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func TestLineDecoder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single no newline", "a b", []string{"a b"}},
		{"single newline", "a b\n", []string{"a b"}},
		{"crlf", "a b\r\nc d\r\n", []string{"a b", "c d"}},
		{"lone cr", "a b\rc d\n", []string{"a b", "c d"}},
		{"cr only", "a\rb\rc", []string{"a", "b", "c"}},
		{"cr before crlf", "a\r\r\nb\n", []string{"a", "", "b"}},
		{"trailing cr at eof", "a\r", []string{"a"}},
		{"blank lines", "\n\nx\n", []string{"", "", "x"}},
		{"no trailing newline", "one\ntwo", []string{"one", "two"}},
		{"utf8", "usr/share/doc/café pkg\n", []string{"usr/share/doc/café pkg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectLines(t, strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineDecoderLongLine(t *testing.T) {
	long := strings.Repeat("x", 3*readBufferSize+17)
	input := "short a\n" + long + " pkg\nlast b\n"

	d := NewLineDecoder(strings.NewReader(input))
	var got []string
	for d.Next() {
		got = append(got, d.Line())
	}
	if err := d.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d lines, want 3", len(got))
	}
	if got[1] != long+" pkg" {
		t.Errorf("long line mangled: len=%d, want %d", len(got[1]), len(long)+4)
	}
	if got[2] != "last b" {
		t.Errorf("line after long line = %q, want %q", got[2], "last b")
	}
	if d.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead() = %d, want %d", d.BytesRead(), len(input))
	}
	if d.LinesRead() != 3 {
		t.Errorf("LinesRead() = %d, want 3", d.LinesRead())
	}
}

func TestLineDecoderInvalidUTF8(t *testing.T) {
	input := "good pkg\nbad\xff\xfe pkg\nnever reached\n"

	lines, err := collectLines(t, strings.NewReader(input))
	if !errors.Is(err, ErrStreamDecode) {
		t.Fatalf("err = %v, want ErrStreamDecode", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name line 2: %v", err)
	}
	if !slices.Equal(lines, []string{"good pkg"}) {
		t.Errorf("lines before failure = %q", lines)
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestLineDecoderReadError(t *testing.T) {
	boom := errors.New("boom")
	d := NewLineDecoder(&failingReader{data: []byte("a b\npartial"), err: boom})

	if !d.Next() || d.Line() != "a b" {
		t.Fatalf("first line = %q", d.Line())
	}
	if d.Next() {
		t.Fatalf("Next() = true after read error, line %q", d.Line())
	}
	if !errors.Is(d.Err(), boom) {
		t.Errorf("Err() = %v, want boom", d.Err())
	}
	if d.Next() {
		t.Error("Next() = true after failure")
	}
}

func TestLinesEarlyBreak(t *testing.T) {
	var buf bytes.Buffer
	for range 1000 {
		buf.WriteString("usr/bin/x pkg\n")
	}
	total := buf.Len()

	n := 0
	for _, err := range Lines(&buf) {
		if err != nil {
			t.Fatal(err)
		}
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("iterated %d lines, want 3", n)
	}
	if buf.Len() == total {
		t.Error("expected the reader to be partially consumed")
	}
}

func TestLineDecoderLoneCRCounts(t *testing.T) {
	input := "f1 p1\rf2 p2\n"
	d := NewLineDecoder(strings.NewReader(input))
	for d.Next() {
	}
	if d.Err() != nil {
		t.Fatalf("Err() = %v", d.Err())
	}
	if d.LinesRead() != 2 {
		t.Errorf("LinesRead() = %d, want 2", d.LinesRead())
	}
	if d.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead() = %d, want %d", d.BytesRead(), len(input))
	}
}

func TestLineDecoderInvalidUTF8AfterLoneCR(t *testing.T) {
	d := NewLineDecoder(strings.NewReader("ok a\r\xff b\n"))
	if !d.Next() || d.Line() != "ok a" {
		t.Fatalf("first line = %q", d.Line())
	}
	if d.Next() {
		t.Fatalf("Next() = true for invalid line %q", d.Line())
	}
	if !errors.Is(d.Err(), ErrStreamDecode) || !strings.Contains(d.Err().Error(), "line 2") {
		t.Errorf("Err() = %v, want ErrStreamDecode at line 2", d.Err())
	}
	if d.Next() {
		t.Error("Next() after failure returned true")
	}
}
