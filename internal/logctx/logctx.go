// Package logctx carries a zerolog logger through context.Context and builds
// the process logger from CLI settings.
//
// The CLI builds one logger at startup and attaches it to the root context:
//
//	log := logctx.New(logctx.Options{Verbose: true, Format: logctx.FormatConsole})
//	ctx := logctx.WithLogger(ctx, log)
//
// Code below the CLI either receives the logger explicitly or extracts it:
//
//	log := logctx.FromContext(ctx).With().Str("component", "main").Logger()
package logctx

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// loggerKey is the private context key for the logger.
type loggerKey struct{}

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx. Without one it returns a
// disabled logger, so nothing is written unless a caller opted in.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return zerolog.Nop()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithStr returns a copy of ctx whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Str(key, value).Logger())
}

// Options configures New.
type Options struct {
	// Verbose lowers both sinks to debug.
	Verbose bool
	// Format is FormatConsole or FormatJSON for the console sink.
	Format string
	// Console receives console output. Defaults to os.Stderr.
	Console io.Writer
	// File, if set, receives JSON output as a second sink.
	File io.Writer
}

// Console and file thresholds. The console stays quiet unless something
// goes wrong; the file keeps an info-level record of every run.
const (
	consoleLevel = zerolog.WarnLevel
	fileLevel    = zerolog.InfoLevel
)

// New builds the process logger. The console sink logs warnings and above,
// the file sink info and above; Verbose lowers both to debug.
func New(opts Options) zerolog.Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Format == FormatConsole || opts.Format == "" {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}

	cLevel, fLevel := consoleLevel, fileLevel
	if opts.Verbose {
		cLevel, fLevel = zerolog.DebugLevel, zerolog.DebugLevel
	}

	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: console},
			Level:  cLevel,
		},
	}
	minLevel := cLevel
	if opts.File != nil {
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: opts.File},
			Level:  fLevel,
		})
		minLevel = min(minLevel, fLevel)
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(minLevel).
		With().Timestamp().Str("app", "debpkgstats").
		Logger()
}

// NewFile returns a logger that writes JSON to w only, at the file sink's
// level. The CLI uses it for records that must not reach the console, such
// as the failure the command already reports as its error.
func NewFile(w io.Writer, verbose bool) zerolog.Logger {
	level := fileLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).
		With().Timestamp().Str("app", "debpkgstats").
		Logger()
}

// ValidateFormat reports whether format names a known output format.
func ValidateFormat(format string) error {
	switch format {
	case FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown log format %q (want %s or %s)", format, FormatConsole, FormatJSON)
	}
}
