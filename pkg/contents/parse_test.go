package contents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/eunmann/debpkgstats/pkg/benchutil"
	"github.com/rs/zerolog"
)

func TestParse(t *testing.T) {
	input := "file1   p1,p2\nfile2  p1,p3\nfile3  p3\nfile4 p1\nheader without package field x\n"

	stats, res, err := Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Entry{{"p1", 3}, {"p3", 2}, {"p2", 1}}
	got := stats.Rank(10)
	if len(got) != len(want) {
		t.Fatalf("Rank = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Rank[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if res.Lines != 5 {
		t.Errorf("Lines = %d, want 5", res.Lines)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	if res.Bytes != int64(len(input)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(input))
	}
	if res.Packages != 3 {
		t.Errorf("Packages = %d, want 3", res.Packages)
	}
}

func TestParseLoneCarriageReturn(t *testing.T) {
	stats, res, err := Parse(context.Background(), strings.NewReader("f1 p1\rf2 p2\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Lines != 2 || res.Skipped != 0 {
		t.Errorf("Lines/Skipped = %d/%d, want 2/0", res.Lines, res.Skipped)
	}
	if stats.Count("p1") != 1 || stats.Count("p2") != 1 {
		t.Errorf("counts = %v, want p1 and p2 once each", stats.Rank(0))
	}
}

func TestParseDecodeErrorDiscardsStats(t *testing.T) {
	input := "file1 p1\nfile2 \xc3\x28\n"

	stats, _, err := Parse(context.Background(), strings.NewReader(input))
	if !errors.Is(err, ErrStreamDecode) {
		t.Fatalf("err = %v, want ErrStreamDecode", err)
	}
	if stats != nil {
		t.Error("expected nil stats after decode failure")
	}
}

func TestParseHooksAndLogger(t *testing.T) {
	var ops []string
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	stats, _, err := Parse(context.Background(), strings.NewReader("f a\n"),
		WithLogger(log),
		WithTimingHook(func(op string, _ time.Duration) { ops = append(ops, op) }),
		WithInitialCapacity(8),
	)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stats.Rank(1)

	if len(ops) != 2 || ops[0] != "parse" || ops[1] != "rank" {
		t.Errorf("hook ops = %v, want [parse rank]", ops)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"packages":1`)) {
		t.Errorf("expected completion log with packages field, got: %s", buf.String())
	}
}

// repeatingReader yields n copies of line without materializing them.
type repeatingReader struct {
	line      []byte
	remaining int
	pos       int
}

func (r *repeatingReader) Read(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if r.remaining == 0 {
			if written == 0 {
				return 0, io.EOF
			}
			break
		}
		n := copy(p[written:], r.line[r.pos:])
		written += n
		r.pos += n
		if r.pos == len(r.line) {
			r.pos = 0
			r.remaining--
		}
	}
	return written, nil
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &repeatingReader{line: []byte("usr/bin/x pkg\n"), remaining: 2 * ctxCheckInterval}
	stats, res, err := Parse(ctx, r)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stats != nil {
		t.Error("expected nil stats after cancellation")
	}
	if res.Lines != ctxCheckInterval {
		t.Errorf("Lines = %d, want %d", res.Lines, ctxCheckInterval)
	}
}

func TestParseMillionLinesBoundedMemory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping scale test in short mode")
	}

	const (
		lines    = 1_000_000
		packages = 500
	)
	var sb strings.Builder
	for i := range packages {
		fmt.Fprintf(&sb, "usr/share/doc/package-%04d/changelog.Debian.gz    admin/pkg%04d,libs/shared\n", i, i)
	}
	block := []byte(sb.String())

	r := &repeatingReader{line: block, remaining: lines / packages}

	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	stats, res, err := Parse(context.Background(), r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	if res.Lines != lines {
		t.Fatalf("Lines = %d, want %d", res.Lines, lines)
	}
	if stats.Len() != packages+1 {
		t.Errorf("Len() = %d, want %d", stats.Len(), packages+1)
	}
	if got := stats.Count("shared"); got != lines {
		t.Errorf("Count(shared) = %d, want %d", got, lines)
	}

	// The input is ~70 MB; retained heap must stay far below that.
	const limit = 16 << 20
	if after.HeapAlloc > before.HeapAlloc && after.HeapAlloc-before.HeapAlloc > limit {
		t.Errorf("heap grew by %d bytes, want < %d", after.HeapAlloc-before.HeapAlloc, limit)
	}
	runtime.KeepAlive(stats)
}

func TestParseGeneratedIndex(t *testing.T) {
	input := benchutil.NewGenerator(benchutil.DefaultConfig(20_000)).Generate()

	var tokens int64
	for line := range strings.Lines(input) {
		tokens += int64(strings.Count(strings.Fields(line)[1], ",") + 1)
	}

	stats, res, err := Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", res.Skipped)
	}
	if stats.Total() != tokens {
		t.Errorf("Total() = %d, want %d", stats.Total(), tokens)
	}

	ranked := stats.Rank(0)
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Count > ranked[i-1].Count {
			t.Fatalf("rank not descending at %d: %v then %v", i, ranked[i-1], ranked[i])
		}
	}
	if strings.Contains(ranked[0].Package, "/") {
		t.Errorf("top package %q still qualified", ranked[0].Package)
	}
}

func BenchmarkParse(b *testing.B) {
	for _, n := range benchutil.BenchmarkSizes {
		b.Run(fmt.Sprintf("lines=%d", n), func(b *testing.B) {
			if n >= 1_000_000 {
				benchutil.SkipIfNoLongBench(b)
			}
			input := benchutil.NewGenerator(benchutil.DefaultConfig(n)).Generate()
			b.SetBytes(int64(len(input)))
			b.ReportAllocs()
			for b.Loop() {
				if _, _, err := Parse(context.Background(), strings.NewReader(input)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
