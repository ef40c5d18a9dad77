// Package cli implements the debpkgstats command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/eunmann/debpkgstats/internal/logctx"
	"github.com/eunmann/debpkgstats/pkg/config"
	"github.com/eunmann/debpkgstats/pkg/fileutil"
	"github.com/eunmann/debpkgstats/pkg/humanfmt"
	"github.com/eunmann/debpkgstats/pkg/memdiag"
	"github.com/eunmann/debpkgstats/pkg/metrics"
	"github.com/eunmann/debpkgstats/pkg/mirror"
	"github.com/eunmann/debpkgstats/pkg/pipeline"
	"github.com/eunmann/debpkgstats/pkg/report"
	"github.com/spf13/cobra"
)

// Version is the release version (set via -ldflags).
var Version = "dev"

// LogFileName is the run log kept in the local path.
const LogFileName = "debpkgstats.log"

// flagValues holds raw flag values. They only override the loaded
// configuration when set on the command line.
type flagValues struct {
	configPath  string
	arch        string
	keep        bool
	localPath   string
	mirrorURL   string
	components  []string
	top         int
	verbose     bool
	logFormat   string
	parquetOut  string
	metricsFile string
	quietBanner bool
}

// Run executes the command with args, which exclude the program name.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	defaults := config.Default()
	fv := &flagValues{}

	cmd := &cobra.Command{
		Use:   "debpkgstats [arch]",
		Short: "Rank Debian packages by the number of files they ship",
		Long: `debpkgstats downloads the Contents index of an architecture from a
Debian mirror and prints the packages associated with the most files.

The mirror URL is a dists base such as ` + config.DefaultMirrorURL + `;
each component's index is fetched from <url>/<component>/Contents-<arch>.gz.
http, https and s3 URLs are supported.`,
		Example: `  debpkgstats arm64
  debpkgstats -a amd64 -c main -c contrib -n 20
  debpkgstats --url s3://my-mirror/debian/dists/stable --parquet-out stats.parquet`,
		Args:          cobra.MaximumNArgs(1),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, fv, args)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), cfg, fv.quietBanner, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&fv.arch, "arch", "a", defaults.Arch, "architecture to inspect (a positional argument overrides)")
	f.BoolVarP(&fv.keep, "keep", "k", defaults.Keep, "keep the downloaded index in the local path")
	f.StringVarP(&fv.localPath, "local-path", "l", defaults.LocalPath, "work directory for downloads and the log file")
	f.StringVarP(&fv.mirrorURL, "url", "u", defaults.MirrorURL, "mirror dists URL")
	f.StringArrayVarP(&fv.components, "component", "c", defaults.Components, "archive component (repeatable)")
	f.IntVarP(&fv.top, "top", "n", defaults.Top, "number of packages to print")
	f.BoolVarP(&fv.verbose, "verbose", "v", defaults.Verbose, "enable debug logging")
	f.StringVar(&fv.logFormat, "log-format", defaults.LogFormat, "console log format: console or json")
	f.StringVar(&fv.configPath, "config", "", "YAML config file")
	f.StringVar(&fv.parquetOut, "parquet-out", "", "write the full ranking to this Parquet file")
	f.StringVar(&fv.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	f.BoolVar(&fv.quietBanner, "quiet-banner", false, "do not print the welcome banner")

	return cmd
}

// resolveConfig layers flags and the positional architecture over the
// loaded configuration and validates the result.
func resolveConfig(cmd *cobra.Command, fv *flagValues, args []string) (*config.Config, error) {
	cfg, err := config.Load(fv.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("arch") {
		cfg.Arch = fv.arch
	}
	if f.Changed("keep") {
		cfg.Keep = fv.keep
	}
	if f.Changed("local-path") {
		cfg.LocalPath = fv.localPath
	}
	if f.Changed("url") {
		cfg.MirrorURL = fv.mirrorURL
	}
	if f.Changed("component") {
		cfg.Components = fv.components
	}
	if f.Changed("top") {
		cfg.Top = fv.top
	}
	if f.Changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	if f.Changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if f.Changed("parquet-out") {
		cfg.ParquetOut = fv.parquetOut
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = fv.metricsFile
	}
	if len(args) == 1 {
		cfg.Arch = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func execute(ctx context.Context, cfg *config.Config, quietBanner bool, stdout, stderr io.Writer) error {
	if err := fileutil.EnsureDir(cfg.LocalPath); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.LocalPath, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("setup: open log file: %w", err)
	}
	defer logFile.Close()

	log := logctx.New(logctx.Options{
		Verbose: cfg.Verbose,
		Format:  cfg.LogFormat,
		Console: stderr,
		File:    logFile,
	})
	ctx = logctx.WithLogger(ctx, log)

	if !quietBanner {
		if err := report.WriteBanner(stdout, cfg.Top); err != nil {
			return &pipeline.StageError{Stage: pipeline.StageReport, Err: err}
		}
	}

	if n, err := mirror.CleanupStale(cfg.LocalPath, log); err != nil {
		log.Warn().Err(err).Msg("failed to clean stale downloads")
	} else if n > 0 {
		log.Info().Int("removed", n).Msg("removed stale downloads")
	}

	log.Info().
		Str("arch", cfg.Arch).
		Str("mirror", cfg.MirrorURL).
		Strs("components", cfg.Components).
		Int("top", cfg.Top).
		Msg("starting run")

	tracker := memdiag.NewTracker(memdiag.ConfigFromEnv(cfg.Verbose), log)
	tracker.Start()
	err = run(ctx, cfg, stdout)
	if peak := tracker.Stop(); peak > 0 {
		log.Debug().Str("peak_heap", humanfmt.Bytes(int64(peak))).Msg("memory usage")
	}
	if err != nil {
		// main prints the error; record it in the log file only.
		fileLog := logctx.NewFile(logFile, cfg.Verbose)
		fileLog.Error().Err(err).Msg("run failed")
	}
	return err
}

func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	log := logctx.FromContext(ctx)
	m := metrics.New()

	srcOpts := cfg.SourceOptions()
	srcOpts.UserAgent = "debpkgstats/" + Version
	src, err := mirror.NewSource(ctx, cfg.MirrorURL, srcOpts)
	if err != nil {
		return &pipeline.StageError{Stage: pipeline.StageFetch, Err: err}
	}

	runner := pipeline.NewRunner(src,
		pipeline.WithLogger(log),
		pipeline.WithTimingHook(metrics.Chain(m.Hook(), metrics.LogHook(log))),
		pipeline.WithObserver(m),
	)
	res, err := runner.Run(ctx, pipeline.Config{
		Arch:       cfg.Arch,
		Components: cfg.Components,
		Downloader: mirror.DownloaderConfig{
			WorkDir: cfg.LocalPath,
			Keep:    cfg.Keep,
			Retry:   cfg.RetryConfig(),
		},
	})
	if err != nil {
		return err
	}

	if err := report.WriteTable(stdout, report.DefaultTitle, res.Stats.Rank(cfg.Top)); err != nil {
		return &pipeline.StageError{Stage: pipeline.StageReport, Err: err}
	}

	var errs []error
	if cfg.ParquetOut != "" {
		if err := report.WriteParquet(cfg.ParquetOut, res.Stats.Rank(0)); err != nil {
			errs = append(errs, err)
		} else {
			log.Info().Str("path", cfg.ParquetOut).Int("rows", res.Stats.Len()).Msg("wrote parquet ranking")
		}
	}
	m.ObserveRun(res.Stats.Len(), time.Now())
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return &pipeline.StageError{Stage: pipeline.StageReport, Err: err}
	}
	return nil
}
