// Package report renders package rankings as the fixed-width console table
// and exports them as Parquet.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/eunmann/debpkgstats/pkg/contents"
)

// DefaultTitle is the banner of the statistics table.
const DefaultTitle = "Package Statistics"

const ruleWidth = 70

// WriteTable writes entries as a numbered table:
//
//	----------------------------------------------------------------------
//				Package Statistics
//	----------------------------------------------------------------------
//	SrNo Package Name                             Number of files
//	  1. coreutils                                             123
func WriteTable(w io.Writer, title string, entries []contents.Entry) error {
	rule := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "\t\t\t%s\n", title)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%-4s %-40s %-15s\n", "SrNo", "Package Name", "Number of files")
	for i, e := range entries {
		fmt.Fprintf(&b, "%3d. %-40s %15d\n", i+1, e.Package, e.Count)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// WriteBanner writes the welcome message shown before a run starts.
func WriteBanner(w io.Writer, top int) error {
	stars := strings.Repeat("*", ruleWidth)
	_, err := fmt.Fprintf(w, `%s
	Welcome to debpkgstats!

This tool will:
1. take an architecture (amd64, arm64, mips, ...) as an argument
2. download the compressed Contents index of that architecture
   from a Debian mirror
3. parse the index
4. print the top %d packages that ship the most files
%s

`, stars, top, stars)
	if err != nil {
		return fmt.Errorf("write banner: %w", err)
	}
	return nil
}
