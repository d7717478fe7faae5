// Package config loads server configuration from CLI flags and environment variables.
//
// CLI flags choose the listen address and whether the submission archive runs
// against an in-memory S3 (--no-s3, --test). Environment variables carry the
// catalog path, rate limits and storage credentials.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/country-form/internal/ratelimit"
)

const (
	defaultListenAddr    = ":8080"
	defaultArchiveRegion = "auto"
	inMemoryBucketName   = "submissions"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string
	TrustProxy bool   // Take client IPs from X-Forwarded-For
	LogLevel   string // debug, info, warn, error

	// CountriesFile overrides the embedded country catalog when non-empty.
	CountriesFile string

	RateLimitConfig ratelimit.Config

	// Submission archive
	NoS3               bool // Use an in-memory S3 (--no-s3)
	ArchiveBucket      string
	AWSEndpointS3      string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSUsePathStyle    bool
}

// Flags are the values parsed from the command line.
type Flags struct {
	NoS3 bool
	Addr string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses --no-s3, --test and --addr from args.
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	var f Flags
	var testMode bool

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&f.NoS3, "no-s3", false, "Archive submissions in an in-memory S3")
	fs.BoolVar(&testMode, "test", false, "Shorthand for --no-s3")
	fs.StringVar(&f.Addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	if testMode {
		f.NoS3 = true
	}
	return f, nil
}

// Load builds a Config from environment variables and parsed flags.
func Load(f Flags) (*Config, error) {
	return load(f, os.Getenv)
}

func load(f Flags, getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}
	cfg := &Config{NoS3: f.NoS3}

	cfg.ListenAddr = env.stringOr("LISTEN_ADDR", defaultListenAddr)
	if f.Addr != "" {
		cfg.ListenAddr = f.Addr
	}
	cfg.TrustProxy = env.boolOr("TRUST_PROXY", false)
	cfg.LogLevel = env.stringOr("LOG_LEVEL", "info")
	cfg.CountriesFile = strings.TrimSpace(getenv("COUNTRIES_FILE"))

	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             env.float64Or("RATE_LIMIT_RPS", ratelimit.DefaultConfig.RPS),
		Burst:           env.intOr("RATE_LIMIT_BURST", ratelimit.DefaultConfig.Burst),
		CleanupInterval: env.durationOr("RATE_LIMIT_CLEANUP_INTERVAL", ratelimit.DefaultConfig.CleanupInterval),
	}

	cfg.ArchiveBucket = strings.TrimSpace(getenv("ARCHIVE_BUCKET"))
	if cfg.NoS3 && cfg.ArchiveBucket == "" {
		cfg.ArchiveBucket = inMemoryBucketName
	}
	cfg.AWSEndpointS3 = strings.TrimSpace(getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = env.stringOr("AWS_REGION", defaultArchiveRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSUsePathStyle = env.boolOr("AWS_S3_USE_PATH_STYLE", false)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.ListenAddr == "" {
		errs = append(errs, "LISTEN_ADDR must not be empty")
	}

	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}
	if c.RateLimitConfig.CleanupInterval <= 0 {
		errs = append(errs, "RATE_LIMIT_CLEANUP_INTERVAL must be positive")
	}

	// A real bucket needs credentials; the in-memory one does not.
	if c.ArchiveBucket != "" && !c.NoS3 {
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when ARCHIVE_BUCKET is set (or use --no-s3)")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when ARCHIVE_BUCKET is set (or use --no-s3)")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ArchiveEnabled reports whether submissions are archived.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// PrintStartupSummary prints a human-readable summary of the configuration.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "country-form server starting...")

	if c.CountriesFile != "" {
		fmt.Fprintf(w, "  Catalog: %s\n", c.CountriesFile)
	} else {
		fmt.Fprintln(w, "  Catalog: embedded")
	}

	switch {
	case !c.ArchiveEnabled():
		fmt.Fprintln(w, "  Archive: disabled")
	case c.NoS3:
		fmt.Fprintln(w, "  Archive: in-memory S3 (--no-s3)")
	default:
		fmt.Fprintf(w, "  Archive: s3://%s (endpoint: %s)\n", c.ArchiveBucket, c.AWSEndpointS3)
	}

	fmt.Fprintf(w, "  Limits:  %.1f req/s, burst %d\n", c.RateLimitConfig.RPS, c.RateLimitConfig.Burst)
	fmt.Fprintf(w, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintln(w, "")
}

// Helpers for parsing environment variables. Unparseable values fall back to the default.

type envReader struct {
	getenv func(string) string
}

func (e envReader) stringOr(key, defaultValue string) string {
	if value := strings.TrimSpace(e.getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) intOr(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(e.getenv(key)))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e envReader) float64Or(key string, defaultValue float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(e.getenv(key)), 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e envReader) boolOr(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(e.getenv(key)))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e envReader) durationOr(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(e.getenv(key)))
	if err != nil {
		return defaultValue
	}
	return parsed
}
