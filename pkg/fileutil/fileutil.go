// Package fileutil provides work-directory helpers: atomic tmp+rename writes
// and cleanup of temp files left behind by interrupted runs.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// TmpSuffix marks in-progress files inside a work directory.
const TmpSuffix = ".tmp"

// EnsureDir creates dir and its parents if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// WriteTmpThenMove writes outPath through a temp file next to it, so the
// final rename never crosses a filesystem. writeFunc receives the temp path
// and must write the complete file. The temp file is synced and renamed into
// place only if writeFunc succeeds; on any failure it is removed and outPath
// is left untouched.
func WriteTmpThenMove(outPath string, writeFunc func(tmpPath string) error) (err error) {
	dir := filepath.Dir(outPath)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmpPath := filepath.Join(dir, filepath.Base(outPath)+TmpSuffix)

	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if err := writeFunc(tmpPath); err != nil {
		return err
	}
	if err := syncFile(tmpPath); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("rename temp to final: %w", err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// CleanupTmpFiles removes regular files directly in dir that match the glob
// pattern and were last modified at least minAge ago. Subdirectories are not
// searched. Files still being written keep a fresh modification time, so a
// concurrent run sharing dir is left alone.
func CleanupTmpFiles(dir, pattern string, minAge time.Duration, log zerolog.Logger) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("cleanup pattern %q: %w", pattern, err)
	}

	cutoff := time.Now().Add(-minAge)
	var removed int
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
	}

	if removed > 0 {
		log.Debug().Int("files_removed", removed).Str("dir", dir).Msg("cleaned up tmp files")
	}
	return removed, nil
}
