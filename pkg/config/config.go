// Package config loads debpkgstats settings from an optional YAML file with
// environment-variable overrides. Command-line flags are applied on top by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/debpkgstats/internal/logctx"
	"github.com/eunmann/debpkgstats/pkg/mirror"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvArch       = "DEBPKGSTATS_ARCH"
	EnvMirrorURL  = "DEBPKGSTATS_MIRROR_URL"
	EnvComponents = "DEBPKGSTATS_COMPONENTS"
	EnvLocalPath  = "DEBPKGSTATS_LOCAL_PATH"
	EnvTop        = "DEBPKGSTATS_TOP"
	EnvVerbose    = "DEBPKGSTATS_VERBOSE"
)

// DefaultMirrorURL is the dists base of the default Debian mirror.
const DefaultMirrorURL = "http://ftp.uk.debian.org/debian/dists/stable"

// Config is the full run configuration.
type Config struct {
	Arch        string     `yaml:"arch"`
	MirrorURL   string     `yaml:"mirrorURL"`
	Components  []string   `yaml:"components"`
	LocalPath   string     `yaml:"localPath"`
	Keep        bool       `yaml:"keep"`
	Top         int        `yaml:"top"`
	Verbose     bool       `yaml:"verbose"`
	LogFormat   string     `yaml:"logFormat"`
	ParquetOut  string     `yaml:"parquetOut"`
	MetricsFile string     `yaml:"metricsFile"`
	HTTP        HTTPConfig `yaml:"http"`
	S3          S3Config   `yaml:"s3"`
}

// HTTPConfig controls HTTP mirror downloads.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// RetryConfig controls download retries.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
}

// S3Config controls s3:// mirror downloads.
type S3Config struct {
	Region      string `yaml:"region"`
	Concurrency int    `yaml:"concurrency"`
	PartSize    int64  `yaml:"partSize"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	retry := mirror.DefaultRetryConfig()
	s3 := mirror.DefaultS3Options()
	return &Config{
		Arch:       mirror.DefaultArchitecture,
		MirrorURL:  DefaultMirrorURL,
		Components: []string{"main"},
		LocalPath:  "./tmp",
		Top:        10,
		LogFormat:  logctx.FormatConsole,
		HTTP: HTTPConfig{
			Timeout: 10 * time.Minute,
			Retry: RetryConfig{
				MaxAttempts:  retry.MaxAttempts,
				InitialDelay: retry.InitialDelay,
				MaxDelay:     retry.MaxDelay,
			},
		},
		S3: S3Config{
			Concurrency: s3.Concurrency,
			PartSize:    s3.PartSize,
		},
	}
}

// Load returns defaults overlaid with the YAML file at path (if non-empty)
// and then with environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvArch); v != "" {
		cfg.Arch = v
	}
	if v := os.Getenv(EnvMirrorURL); v != "" {
		cfg.MirrorURL = v
	}
	if v := os.Getenv(EnvComponents); v != "" {
		cfg.Components = SplitList(v)
	}
	if v := os.Getenv(EnvLocalPath); v != "" {
		cfg.LocalPath = v
	}
	if v := os.Getenv(EnvTop); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTop, err)
		}
		cfg.Top = n
	}
	if v := os.Getenv(EnvVerbose); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVerbose, err)
		}
		cfg.Verbose = b
	}
	return nil
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if err := mirror.ValidArchitecture(c.Arch); err != nil {
		errs = append(errs, err)
	}
	if c.MirrorURL == "" {
		errs = append(errs, errors.New("mirror URL is required"))
	}
	if len(c.Components) == 0 {
		errs = append(errs, errors.New("at least one component is required"))
	}
	seen := make(map[string]bool, len(c.Components))
	for _, comp := range c.Components {
		if comp == "" || strings.ContainsAny(comp, " \t") || strings.Contains(comp, "..") {
			errs = append(errs, fmt.Errorf("invalid component %q", comp))
		}
		if seen[comp] {
			errs = append(errs, fmt.Errorf("duplicate component %q", comp))
		}
		seen[comp] = true
	}
	if c.Top <= 0 {
		errs = append(errs, fmt.Errorf("top must be positive, got %d", c.Top))
	}
	if c.LocalPath == "" {
		errs = append(errs, errors.New("local path is required"))
	}
	if err := logctx.ValidateFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RetryConfig converts the retry settings for the mirror package.
func (c *Config) RetryConfig() mirror.RetryConfig {
	r := mirror.DefaultRetryConfig()
	r.MaxAttempts = c.HTTP.Retry.MaxAttempts
	r.InitialDelay = c.HTTP.Retry.InitialDelay
	r.MaxDelay = c.HTTP.Retry.MaxDelay
	return r
}

// SourceOptions converts the transport settings for the mirror package.
func (c *Config) SourceOptions() mirror.SourceOptions {
	return mirror.SourceOptions{
		HTTPTimeout: c.HTTP.Timeout,
		S3: mirror.S3Options{
			Region:      c.S3.Region,
			Concurrency: c.S3.Concurrency,
			PartSize:    c.S3.PartSize,
		},
	}
}
