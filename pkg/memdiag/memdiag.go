// Package memdiag samples heap usage while a run is in progress.
//
// Sampling is enabled by --verbose or DEBPKGSTATS_MEM_DEBUG=1. Samples are
// logged at debug level; the peak is reported when the tracker stops.
package memdiag

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/eunmann/debpkgstats/pkg/humanfmt"
	"github.com/eunmann/debpkgstats/pkg/sysmem"
	"github.com/rs/zerolog"
)

// EnvMemDebug enables sampling regardless of verbosity.
const EnvMemDebug = "DEBPKGSTATS_MEM_DEBUG"

// DefaultLogInterval is the sampling period.
const DefaultLogInterval = 5 * time.Second

// Config holds configuration for memory diagnostics.
type Config struct {
	Enabled     bool
	LogInterval time.Duration
}

// ConfigFromEnv returns a config enabled when verbose is set or
// EnvMemDebug is "1".
func ConfigFromEnv(verbose bool) Config {
	return Config{
		Enabled:     verbose || os.Getenv(EnvMemDebug) == "1",
		LogInterval: DefaultLogInterval,
	}
}

// Stats is a subset of runtime.MemStats.
type Stats struct {
	HeapAlloc uint64
	HeapInuse uint64
	Sys       uint64
	NumGC     uint32
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc: m.HeapAlloc,
		HeapInuse: m.HeapInuse,
		Sys:       m.Sys,
		NumGC:     m.NumGC,
	}
}

// Tracker samples the heap periodically and remembers the peak.
type Tracker struct {
	config Config
	log    zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once

	mu       sync.Mutex
	started  bool
	peakHeap uint64
}

// NewTracker creates a tracker. It does nothing until Start.
func NewTracker(config Config, log zerolog.Logger) *Tracker {
	if config.LogInterval <= 0 {
		config.LogInterval = DefaultLogInterval
	}
	return &Tracker{
		config: config,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins periodic sampling if enabled.
func (t *Tracker) Start() {
	if !t.config.Enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	go t.loop()
}

// Stop ends sampling, logs a final sample and returns the peak heap seen.
// It is safe to call more than once and on a tracker that never started.
func (t *Tracker) Stop() uint64 {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return t.PeakHeap()
	}
	t.once.Do(func() { close(t.stopCh) })
	<-t.doneCh
	return t.PeakHeap()
}

// Sample reads the heap, updates the peak and logs the sample.
func (t *Tracker) Sample(reason string) Stats {
	stats := Read()

	t.mu.Lock()
	t.peakHeap = max(t.peakHeap, stats.HeapAlloc)
	peak := t.peakHeap
	t.mu.Unlock()

	ev := t.log.Debug().
		Str("reason", reason).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("heap_inuse", humanfmt.Bytes(int64(stats.HeapInuse))).
		Str("sys_total", humanfmt.Bytes(int64(stats.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Uint32("num_gc", stats.NumGC)
	if f := sysmem.Fraction(stats.Sys); f > 0 {
		ev = ev.Float64("sys_pct_of_host", f*100)
	}
	ev.Msg("memory stats")
	return stats
}

// PeakHeap returns the peak heap allocation seen.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

func (t *Tracker) loop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.config.LogInterval)
	defer ticker.Stop()

	t.Sample("start")
	for {
		select {
		case <-t.stopCh:
			t.Sample("stop")
			return
		case <-ticker.C:
			t.Sample("periodic")
		}
	}
}
