// Package contents parses Debian Contents indices and ranks packages by the
// number of files they ship.
//
// A Contents index line has the form
//
//	<FILE> <LOCATION>
//
// where LOCATION is a comma-separated list of qualified package names
// ([[$AREA/]$SECTION/]$NAME). Only $NAME is counted.
package contents

import (
	"cmp"
	"slices"
	"strings"
	"time"
	"unicode"
)

// DefaultInitialCapacity sizes the package map for a typical main-archive
// index (tens of thousands of distinct packages).
const DefaultInitialCapacity = 64 * 1024

// Entry is one ranked package.
type Entry struct {
	Package string
	Count   int64
}

// TimingHook receives the name and duration of a timed operation.
type TimingHook func(op string, d time.Duration)

// Stats accumulates per-package file counts.
//
// Packages are kept in first-insertion order so that ranking can break ties
// deterministically. Stats is not safe for concurrent use; shard and Merge
// instead.
type Stats struct {
	index     map[string]int
	entries   []Entry
	hook      TimingHook
	finalized bool
}

// NewStats creates empty stats. Only WithInitialCapacity and WithTimingHook
// apply; other options are ignored.
func NewStats(opts ...Option) *Stats {
	o := buildOptions(opts)
	return newStats(o.capacity, o.hook)
}

func newStats(capacity int, hook TimingHook) *Stats {
	if capacity <= 0 {
		capacity = DefaultInitialCapacity
	}
	return &Stats{
		index:   make(map[string]int, capacity),
		entries: make([]Entry, 0, capacity),
		hook:    hook,
	}
}

// Accumulate folds one index line into the counts and reports whether the
// line was counted.
//
// Lines that do not split into exactly two fields, separated by white space
// or the ASCII separators 0x1C-0x1F, are skipped; this includes file paths that contain whitespace. Empty names
// (from "a,,b" or a trailing comma) are counted under "". Names are not
// case-folded or trimmed. Once finalized, Accumulate does nothing and
// returns false.
func (s *Stats) Accumulate(line string) bool {
	if s.finalized {
		return false
	}
	field, ok := packageField(line)
	if !ok {
		return false
	}
	for token := range strings.SplitSeq(field, ",") {
		s.add(packageName(token), 1)
	}
	return true
}

// isFieldSpace reports whether r separates fields: Unicode white space plus
// the ASCII information separators 0x1C-0x1F.
func isFieldSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// packageField returns the second of exactly two whitespace-separated fields.
func packageField(line string) (string, bool) {
	var fields [2]string
	n := 0
	for f := range strings.FieldsFuncSeq(line, isFieldSpace) {
		if n == len(fields) {
			return "", false
		}
		fields[n] = f
		n++
	}
	return fields[1], n == len(fields)
}

// packageName strips the optional area and section from a qualified name.
func packageName(qualified string) string {
	return qualified[strings.LastIndexByte(qualified, '/')+1:]
}

func (s *Stats) add(name string, n int64) {
	if i, ok := s.index[name]; ok {
		s.entries[i].Count += n
		return
	}
	// name points into the source line; clone so the line can be collected.
	name = strings.Clone(name)
	s.index[name] = len(s.entries)
	s.entries = append(s.entries, Entry{Package: name, Count: n})
}

// Merge adds other's counts into s. Packages new to s are appended in
// other's insertion order, so merging shards in a fixed order yields a
// deterministic ranking.
func (s *Stats) Merge(other *Stats) error {
	if s.finalized {
		return ErrFinalized
	}
	for _, e := range other.entries {
		s.add(e.Package, e.Count)
	}
	return nil
}

// Finalize stops further accumulation. Rank keeps working.
func (s *Stats) Finalize() {
	s.finalized = true
}

// Finalized reports whether Finalize was called.
func (s *Stats) Finalized() bool {
	return s.finalized
}

// Rank returns packages ordered by file count, highest first, truncated to
// limit entries. Ties keep first-insertion order. A limit <= 0 returns every
// package. Rank does not modify s.
func (s *Stats) Rank(limit int) []Entry {
	start := time.Now()

	ranked := slices.Clone(s.entries)
	slices.SortStableFunc(ranked, func(a, b Entry) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if limit > 0 && limit < len(ranked) {
		ranked = slices.Clip(ranked[:limit])
	}

	if s.hook != nil {
		s.hook("rank", time.Since(start))
	}
	return ranked
}

// Len returns the number of distinct packages.
func (s *Stats) Len() int {
	return len(s.entries)
}

// Count returns the file count for a package, or 0 if it was never seen.
func (s *Stats) Count(name string) int64 {
	if i, ok := s.index[name]; ok {
		return s.entries[i].Count
	}
	return 0
}

// Total returns the sum of all counts.
func (s *Stats) Total() int64 {
	var total int64
	for _, e := range s.entries {
		total += e.Count
	}
	return total
}
