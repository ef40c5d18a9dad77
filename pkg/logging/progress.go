package logging

import (
	"sync/atomic"
	"time"

	"github.com/eunmann/debpkgstats/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ProgressTracker counts completed items of a known total. It is safe for
// concurrent use.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	phase     string
}

// NewProgressTracker creates a tracker for total items.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
		log:       log,
		phase:     phase,
	}
}

// Done records one completed item and logs the running progress.
func (pt *ProgressTracker) Done(item string) {
	done := pt.completed.Add(1)
	pt.log.Info().
		Str("event", "progress").
		Str("phase", pt.phase).
		Str("item", item).
		Int64("done", done).
		Int64("total", pt.total).
		Float64("progress_pct", pt.pct(done)).
		Str("elapsed_h", humanfmt.Duration(time.Since(pt.startTime))).
		Msg("item completed")
}

// Completed returns the number of completed items.
func (pt *ProgressTracker) Completed() int64 {
	return pt.completed.Load()
}

// Total returns the number of expected items.
func (pt *ProgressTracker) Total() int64 {
	return pt.total
}

// ProgressPct returns completion as a percentage in [0, 100].
func (pt *ProgressTracker) ProgressPct() float64 {
	return pt.pct(pt.completed.Load())
}

func (pt *ProgressTracker) pct(done int64) float64 {
	if pt.total == 0 {
		return 100.0
	}
	return float64(done) * 100.0 / float64(pt.total)
}
