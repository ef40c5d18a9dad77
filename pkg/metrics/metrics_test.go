package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eunmann/debpkgstats/pkg/contents"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestHookObservesDuration(t *testing.T) {
	m := New()
	hook := m.Hook()
	hook("parse", 2*time.Second)
	hook("rank", time.Millisecond)

	if n := testutil.CollectAndCount(m.OperationDuration); n != 2 {
		t.Errorf("histogram series = %d, want 2", n)
	}
}

func TestObserveParseAndDownload(t *testing.T) {
	m := New()
	m.ObserveDownload("main", 1024, time.Second)
	m.ObserveParse("main", contents.ParseResult{Lines: 10, Skipped: 3})
	m.ObserveRun(42, time.Unix(1_700_000_000, 0))

	if got := testutil.ToFloat64(m.LinesTotal.WithLabelValues("main", "counted")); got != 7 {
		t.Errorf("counted = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.LinesTotal.WithLabelValues("main", "skipped")); got != 3 {
		t.Errorf("skipped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.DownloadBytes.WithLabelValues("main")); got != 1024 {
		t.Errorf("download bytes = %v, want 1024", got)
	}
	if got := testutil.ToFloat64(m.DistinctPackages); got != 42 {
		t.Errorf("distinct packages = %v, want 42", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRun(5, time.Now())

	path := filepath.Join(t.TempDir(), "debpkgstats.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "debpkgstats_distinct_packages 5") {
		t.Errorf("textfile missing gauge:\n%s", data)
	}
}

func TestLogHookAndChain(t *testing.T) {
	var buf bytes.Buffer
	var calls []string
	hook := Chain(
		LogHook(zerolog.New(&buf).Level(zerolog.DebugLevel)),
		nil,
		func(op string, _ time.Duration) { calls = append(calls, op) },
	)
	hook("parse", 5*time.Millisecond)

	if len(calls) != 1 || calls[0] != "parse" {
		t.Errorf("calls = %v, want [parse]", calls)
	}
	if !strings.Contains(buf.String(), `"op":"parse"`) {
		t.Errorf("expected debug log, got: %s", buf.String())
	}
}
