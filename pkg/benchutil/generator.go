// Package benchutil generates synthetic Contents indices for benchmarks and
// tests.
package benchutil

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"testing"
)

// BenchmarkSeed is the default seed for reproducible data.
const BenchmarkSeed = 42

// BenchmarkSizes are line counts for quick runs.
var BenchmarkSizes = []int{10_000, 100_000, 1_000_000}

// Sections used for qualified package names.
var sections = []string{"admin", "devel", "doc", "libs", "net", "python", "utils", "x11", "non-free/games", "contrib/science"}

// GeneratorConfig configures synthetic data generation.
type GeneratorConfig struct {
	// NumLines is the number of index lines to generate.
	NumLines int
	// NumPackages is the number of distinct package names.
	NumPackages int
	// MaxDepth is the maximum directory depth of file paths.
	MaxDepth int
	// MultiPackageRate is the fraction of lines listing two packages.
	MultiPackageRate float64
	// Seed for reproducible generation. 0 uses BenchmarkSeed.
	Seed uint64
}

// DefaultConfig returns a config shaped like a real amd64 index.
func DefaultConfig(numLines int) GeneratorConfig {
	return GeneratorConfig{
		NumLines:         numLines,
		NumPackages:      max(numLines/50, 1),
		MaxDepth:         6,
		MultiPackageRate: 0.02,
		Seed:             BenchmarkSeed,
	}
}

// Generator produces index lines. Package popularity is Zipf distributed so
// a few packages own most files, as in real archives.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	zipf *rand.Zipf
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	cfg.NumPackages = max(cfg.NumPackages, 1)
	cfg.MaxDepth = max(cfg.MaxDepth, 1)
	rng := rand.New(rand.NewPCG(seed, seed))
	return &Generator{
		cfg:  cfg,
		rng:  rng,
		zipf: rand.NewZipf(rng, 1.2, 1, uint64(cfg.NumPackages-1)),
	}
}

// PackageName returns the qualified name of package i.
func PackageName(i int) string {
	return fmt.Sprintf("%s/pkg%d", sections[i%len(sections)], i)
}

func (g *Generator) pkg() string {
	return PackageName(int(g.zipf.Uint64()))
}

// Line returns the n-th line. Lines must be requested in order for the
// output to be reproducible.
func (g *Generator) Line(n int) string {
	var b strings.Builder
	depth := 1 + g.rng.IntN(g.cfg.MaxDepth)
	b.WriteString("usr")
	for d := range depth {
		fmt.Fprintf(&b, "/d%d_%d", d, g.rng.IntN(20))
	}
	fmt.Fprintf(&b, "/file%d", n)

	b.WriteString("    ")
	b.WriteString(g.pkg())
	if g.rng.Float64() < g.cfg.MultiPackageRate {
		b.WriteByte(',')
		b.WriteString(g.pkg())
	}
	return b.String()
}

// WriteTo writes NumLines lines to w.
func (g *Generator) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 256*1024)
	var total int64
	for n := range g.cfg.NumLines {
		k, err := bw.WriteString(g.Line(n) + "\n")
		total += int64(k)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// Generate returns NumLines lines as one string.
func (g *Generator) Generate() string {
	var b strings.Builder
	g.WriteTo(&b)
	return b.String()
}

// SkipIfNoLongBench skips b unless DEBPKGSTATS_LONG_BENCH is set.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("DEBPKGSTATS_LONG_BENCH") == "" {
		b.Skip("set DEBPKGSTATS_LONG_BENCH=1 to run scaling benchmark")
	}
}
