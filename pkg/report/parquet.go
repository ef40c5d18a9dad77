package report

import (
	"fmt"

	"github.com/eunmann/debpkgstats/pkg/contents"
	"github.com/eunmann/debpkgstats/pkg/fileutil"
	"github.com/parquet-go/parquet-go"
)

// Row is one Parquet record of a ranking.
type Row struct {
	Rank    int64  `parquet:"rank"`
	Package string `parquet:"package"`
	Files   int64  `parquet:"files"`
}

// Rows converts a ranking to Parquet rows, ranks starting at 1.
func Rows(entries []contents.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{Rank: int64(i + 1), Package: e.Package, Files: e.Count}
	}
	return rows
}

// WriteParquet writes entries to path via a temp file beside it, so path is
// either the complete file or untouched.
func WriteParquet(path string, entries []contents.Entry) error {
	rows := Rows(entries)
	err := fileutil.WriteTmpThenMove(path, func(tmpPath string) error {
		return parquet.WriteFile(tmpPath, rows)
	})
	if err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}
