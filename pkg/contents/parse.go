package contents

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ctxCheckInterval is how many lines are processed between context checks.
	ctxCheckInterval = 64 * 1024
	// progressInterval is how many lines are processed between debug progress logs.
	progressInterval = 1_000_000
)

// ParseResult describes one parse pass.
type ParseResult struct {
	// Lines is the number of lines read.
	Lines int64
	// Skipped is the number of lines that did not have exactly two fields.
	Skipped int64
	// Bytes is the number of decompressed bytes consumed.
	Bytes int64
	// Packages is the number of distinct packages seen.
	Packages int
	// Elapsed is the wall time of the pass.
	Elapsed time.Duration
}

// Option configures Parse and NewStats.
type Option func(*options)

type options struct {
	log      zerolog.Logger
	hook     TimingHook
	capacity int
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for parse progress. The default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTimingHook sets a hook invoked after "parse" and "rank" complete.
func WithTimingHook(h TimingHook) Option {
	return func(o *options) { o.hook = h }
}

// WithInitialCapacity presizes the package map.
func WithInitialCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// Parse reads a decompressed Contents index from r and returns the
// accumulated stats.
//
// Parse streams: memory grows with the number of distinct packages, not with
// the size of r. A read or decode error aborts the pass and no stats are
// returned. Cancelling ctx stops the pass at the next check interval and
// returns ctx.Err(). Parse does not close r.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (*Stats, ParseResult, error) {
	o := buildOptions(opts)
	start := time.Now()

	stats := newStats(o.capacity, o.hook)
	dec := NewLineDecoder(r)

	var res ParseResult
	for dec.Next() {
		res.Lines++
		if !stats.Accumulate(dec.Line()) {
			res.Skipped++
		}

		if res.Lines%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, res, fmt.Errorf("parse aborted after %d lines: %w", res.Lines, err)
			}
		}
		if res.Lines%progressInterval == 0 {
			o.log.Debug().
				Int64("lines", res.Lines).
				Int("packages", stats.Len()).
				Int64("bytes", dec.BytesRead()).
				Msg("parse progress")
		}
	}
	res.Bytes = dec.BytesRead()
	if err := dec.Err(); err != nil {
		return nil, res, err
	}

	res.Packages = stats.Len()
	res.Elapsed = time.Since(start)
	if o.hook != nil {
		o.hook("parse", res.Elapsed)
	}

	o.log.Debug().
		Int64("lines", res.Lines).
		Int64("skipped", res.Skipped).
		Int("packages", res.Packages).
		Dur("elapsed", res.Elapsed).
		Msg("generated package statistics")

	return stats, res, nil
}
