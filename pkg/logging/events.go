// Package logging builds consistent structured completion events on top of
// zerolog. Every event carries "event", "phase" and "duration_ms" fields,
// with "_h" companions for human readers.
package logging

import (
	"time"

	"github.com/eunmann/debpkgstats/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// CompletionEvent accumulates fields for a single completion log line.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  []func(*zerolog.Event)
}

func newEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{log: log, event: event, phase: phase, elapsed: elapsed}
}

// PhaseComplete starts a "phase_completed" event, e.g. download or parse.
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return newEvent(log, "phase_completed", phase, elapsed)
}

// ComponentComplete starts a "component_completed" event for one archive
// component of a run.
func ComponentComplete(log zerolog.Logger, component string, elapsed time.Duration) *CompletionEvent {
	return newEvent(log, "component_completed", "component", elapsed).Str("component", component)
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	ce.fields = append(ce.fields, func(e *zerolog.Event) { e.Str(key, val) })
	return ce
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	ce.fields = append(ce.fields, func(e *zerolog.Event) { e.Int(key, val) })
	return ce
}

// Bytes adds a byte count and its human-readable companion.
func (ce *CompletionEvent) Bytes(key string, n int64) *CompletionEvent {
	ce.fields = append(ce.fields, func(e *zerolog.Event) {
		e.Int64(key, n).Str(key+"_h", humanfmt.Bytes(n))
	})
	return ce
}

// Count adds an item count and its human-readable companion.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.fields = append(ce.fields, func(e *zerolog.Event) {
		e.Int64(key, n).Str(key+"_h", humanfmt.Count(n))
	})
	return ce
}

// Throughput adds the byte rate over the event's elapsed time.
func (ce *CompletionEvent) Throughput(bytes int64) *CompletionEvent {
	if ce.elapsed <= 0 {
		return ce
	}
	elapsed := ce.elapsed
	ce.fields = append(ce.fields, func(e *zerolog.Event) {
		e.Float64("throughput_bps", float64(bytes)/elapsed.Seconds()).
			Str("throughput_h", humanfmt.Throughput(bytes, elapsed))
	})
	return ce
}

// Log emits the event at info level.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	if e == nil {
		return
	}
	e.Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds()).
		Str("duration_h", humanfmt.Duration(ce.elapsed))
	for _, f := range ce.fields {
		f(e)
	}
	e.Msg(msg)
}
