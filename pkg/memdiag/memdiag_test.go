package memdiag

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvMemDebug, "")
	if ConfigFromEnv(false).Enabled {
		t.Error("enabled without verbose or env")
	}
	if !ConfigFromEnv(true).Enabled {
		t.Error("not enabled with verbose")
	}
	t.Setenv(EnvMemDebug, "1")
	if !ConfigFromEnv(false).Enabled {
		t.Errorf("not enabled with %s=1", EnvMemDebug)
	}
}

func TestTrackerDisabled(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{}, zerolog.New(&buf))
	tr.Start()
	if peak := tr.Stop(); peak != 0 {
		t.Errorf("peak = %d, want 0 for disabled tracker", peak)
	}
	if buf.Len() != 0 {
		t.Errorf("disabled tracker logged: %s", buf.String())
	}
}

func TestTrackerSamples(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{Enabled: true, LogInterval: time.Millisecond}, zerolog.New(zerolog.SyncWriter(&buf)))
	tr.Start()
	tr.Start()
	time.Sleep(10 * time.Millisecond)

	peak := tr.Stop()
	if peak == 0 {
		t.Error("peak heap not recorded")
	}
	if again := tr.Stop(); again != peak {
		t.Errorf("second Stop = %d, want %d", again, peak)
	}

	out := buf.String()
	for _, reason := range []string{`"reason":"start"`, `"reason":"stop"`} {
		if !strings.Contains(out, reason) {
			t.Errorf("log missing %s:\n%s", reason, out)
		}
	}
}

func TestSampleUpdatesPeak(t *testing.T) {
	tr := NewTracker(Config{}, zerolog.Nop())
	s := tr.Sample("manual")
	if tr.PeakHeap() < s.HeapAlloc {
		t.Errorf("PeakHeap = %d, want >= %d", tr.PeakHeap(), s.HeapAlloc)
	}
}
