// Package pipeline runs a complete statistics pass: download the Contents
// index of every configured component, decompress and parse each one, and
// merge the per-component counts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eunmann/debpkgstats/internal/logctx"
	"github.com/eunmann/debpkgstats/pkg/contents"
	"github.com/eunmann/debpkgstats/pkg/logging"
	"github.com/eunmann/debpkgstats/pkg/mirror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxParallelComponents bounds concurrent downloads against one mirror.
const maxParallelComponents = 4

// Config describes one run.
type Config struct {
	Arch       string
	Components []string
	Downloader mirror.DownloaderConfig
}

// Observer receives per-component measurements. metrics.Metrics implements it.
type Observer interface {
	ObserveDownload(component string, bytes int64, d time.Duration)
	ObserveParse(component string, res contents.ParseResult)
}

// ComponentResult describes one component of a run.
type ComponentResult struct {
	Component string
	Name      string
	Bytes     int64
	Parse     contents.ParseResult
}

// Result is the outcome of a run.
type Result struct {
	// Stats holds the merged, finalized counts.
	Stats *contents.Stats
	// Components is in configured order.
	Components []ComponentResult
	Elapsed    time.Duration
}

// Runner executes runs against one mirror.
type Runner struct {
	src      mirror.Source
	log      zerolog.Logger
	hook     contents.TimingHook
	observer Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the run logger. The default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithTimingHook sets the hook passed to the parser and the merged stats.
func WithTimingHook(h contents.TimingHook) Option {
	return func(r *Runner) { r.hook = h }
}

// WithObserver sets the per-component observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// NewRunner creates a runner reading from src.
func NewRunner(src mirror.Source, opts ...Option) *Runner {
	r := &Runner{src: src, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run downloads and parses every component of cfg. Components are
// processed concurrently, each into its own stats, then merged in
// configured order so the ranking does not depend on scheduling. The first
// failure cancels the remaining components and is returned as a
// *StageError.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if len(cfg.Components) == 0 {
		return nil, errors.New("no components to process")
	}
	start := time.Now()
	ctx = logctx.WithLogger(ctx, r.log)

	dl := mirror.NewDownloader(cfg.Downloader, r.log)
	progress := logging.NewProgressTracker("components", int64(len(cfg.Components)), r.log)

	shards := make([]*contents.Stats, len(cfg.Components))
	results := make([]ComponentResult, len(cfg.Components))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelComponents)
	for i, component := range cfg.Components {
		g.Go(func() error {
			stats, res, err := r.runComponent(gctx, dl, component, cfg.Arch)
			if err != nil {
				return err
			}
			shards[i], results[i] = stats, res
			progress.Done(component)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := contents.NewStats(contents.WithTimingHook(r.hook))
	for _, shard := range shards {
		if err := merged.Merge(shard); err != nil {
			return nil, fmt.Errorf("merge component stats: %w", err)
		}
	}
	merged.Finalize()

	res := &Result{Stats: merged, Components: results, Elapsed: time.Since(start)}
	logging.PhaseComplete(r.log, "run", res.Elapsed).
		Str("arch", cfg.Arch).
		Int("components", len(cfg.Components)).
		Count("packages", int64(merged.Len())).
		Count("files", merged.Total()).
		Log("generated package statistics")
	return res, nil
}

func (r *Runner) runComponent(ctx context.Context, dl *mirror.Downloader, component, arch string) (_ *contents.Stats, _ ComponentResult, err error) {
	name := mirror.ContentsPath(component, arch)
	ctx = logctx.WithStr(ctx, "component", component)
	log := logctx.FromContext(ctx)
	res := ComponentResult{Component: component, Name: name}
	start := time.Now()

	artifact, err := dl.Download(ctx, r.src, name)
	if err != nil {
		return nil, res, &StageError{Stage: StageFetch, Component: component, Err: err}
	}
	defer func() {
		if cerr := artifact.Close(); cerr != nil && err == nil {
			err = &StageError{Stage: StageFetch, Component: component, Err: cerr}
		}
	}()
	res.Bytes = artifact.Size()
	if r.observer != nil {
		r.observer.ObserveDownload(component, artifact.Size(), artifact.Elapsed())
	}

	rc, err := mirror.Decompress(artifact, name)
	if err != nil {
		return nil, res, &StageError{Stage: StageDecompress, Component: component, Err: err}
	}
	defer rc.Close()

	stats, parsed, err := contents.Parse(ctx, rc,
		contents.WithLogger(log),
		contents.WithTimingHook(r.hook),
	)
	res.Parse = parsed
	if err != nil {
		stage := StageParse
		if errors.Is(err, mirror.ErrDecompress) {
			stage = StageDecompress
		}
		return nil, res, &StageError{Stage: stage, Component: component, Err: err}
	}
	if r.observer != nil {
		r.observer.ObserveParse(component, parsed)
	}

	logging.ComponentComplete(r.log, component, time.Since(start)).
		Str("name", name).
		Bytes("compressed_bytes", res.Bytes).
		Bytes("bytes", parsed.Bytes).
		Count("lines", parsed.Lines).
		Count("skipped", parsed.Skipped).
		Int("packages", parsed.Packages).
		LogDebug("parsed contents index")
	return stats, res, nil
}
