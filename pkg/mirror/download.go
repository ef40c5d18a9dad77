package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eunmann/debpkgstats/pkg/fileutil"
	"github.com/eunmann/debpkgstats/pkg/logging"
	"github.com/rs/zerolog"
)

// TempFilePattern matches the temp files Download creates in a work
// directory, e.g. "main_Contents-amd64.gz.1234.tmp".
const TempFilePattern = "*Contents-*" + fileutil.TmpSuffix

// StaleTempAge is how long a temp file must sit untouched before
// CleanupStale treats it as left over from an interrupted run.
const StaleTempAge = 30 * time.Minute

// CleanupStale removes download temp files in workDir abandoned by earlier
// runs. In-progress downloads of concurrent runs are too recent to match.
func CleanupStale(workDir string, log zerolog.Logger) (int, error) {
	return fileutil.CleanupTmpFiles(workDir, TempFilePattern, StaleTempAge, log)
}

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	// WorkDir holds in-progress downloads and, with Keep, the kept files.
	// If empty, os.TempDir() is used.
	WorkDir string
	// Keep moves each download to WorkDir/<name> on Close instead of
	// deleting it.
	Keep bool
	// Retry controls retries of failed attempts.
	Retry RetryConfig
}

// Downloader fetches objects from a Source into temp files.
type Downloader struct {
	cfg DownloaderConfig
	log zerolog.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(cfg DownloaderConfig, log zerolog.Logger) *Downloader {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Downloader{cfg: cfg, log: log}
}

// Artifact is a downloaded file opened for reading from the start.
// Close must be called on every path; it deletes the file, or moves it to
// its keep path when the Downloader was configured with Keep.
type Artifact struct {
	file     *os.File
	path     string
	keepPath string
	size     int64
	elapsed  time.Duration
	closed   bool
}

// Download fetches name from src, retrying transient failures. The returned
// artifact is positioned at offset 0.
func (d *Downloader) Download(ctx context.Context, src Source, name string) (*Artifact, error) {
	start := time.Now()
	if err := fileutil.EnsureDir(d.cfg.WorkDir); err != nil {
		return nil, err
	}

	pattern := strings.ReplaceAll(name, "/", "_") + ".*" + fileutil.TmpSuffix
	tmp, err := os.CreateTemp(d.cfg.WorkDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	discard := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	log := d.log.With().Str("location", src.Location(name)).Logger()
	log.Info().Msg("downloading contents index")

	var n int64
	err = Retry(ctx, log, "download "+name, d.cfg.Retry, func(attempt int) error {
		if attempt > 1 {
			if err := rewind(tmp); err != nil {
				return Permanent(err)
			}
		}
		var dlErr error
		n, dlErr = src.Download(ctx, name, tmp)
		return dlErr
	})
	if err != nil {
		discard()
		return nil, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		discard()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	a := &Artifact{
		file:    tmp,
		path:    tmp.Name(),
		size:    n,
		elapsed: time.Since(start),
	}
	if d.cfg.Keep {
		a.keepPath = filepath.Join(d.cfg.WorkDir, filepath.FromSlash(name))
	}

	logging.PhaseComplete(log, "download", a.elapsed).
		Str("name", name).
		Bytes("bytes", n).
		Throughput(n).
		Log("downloaded contents index")
	return a, nil
}

func rewind(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate temp file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek temp file: %w", err)
	}
	return nil
}

// Read reads from the downloaded file.
func (a *Artifact) Read(p []byte) (int, error) {
	return a.file.Read(p)
}

// Size returns the number of bytes downloaded.
func (a *Artifact) Size() int64 {
	return a.size
}

// Elapsed returns how long the download took, retries included.
func (a *Artifact) Elapsed() time.Duration {
	return a.elapsed
}

// Path returns where the file lives while open.
func (a *Artifact) Path() string {
	return a.path
}

// KeepPath returns where Close moves the file, or "" if it is deleted.
func (a *Artifact) KeepPath() string {
	return a.keepPath
}

// Close releases the file. It is safe to call more than once.
func (a *Artifact) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	err := a.file.Close()
	if a.keepPath == "" {
		os.Remove(a.path)
		if err != nil {
			return fmt.Errorf("close temp file: %w", err)
		}
		return nil
	}

	if err := fileutil.EnsureDir(filepath.Dir(a.keepPath)); err != nil {
		os.Remove(a.path)
		return err
	}
	if err := os.Rename(a.path, a.keepPath); err != nil {
		os.Remove(a.path)
		return fmt.Errorf("keep download: %w", err)
	}
	if err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return nil
}
