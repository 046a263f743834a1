// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and GRANTFEAT_ env vars over the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
)

// Output formats accepted by OutputFormat.
const (
	FormatCSV   = "csv"
	FormatArrow = "arrow"
)

// MaxCodeSlots is the number of code/percentage slots present in the raw table.
const MaxCodeSlots = 5

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// InputPath is the raw wide-format grant table.
	InputPath string `koanf:"input_path"`

	// OutputPath receives the feature table. Empty skips export.
	OutputPath string `koanf:"output_path"`

	// OutputFormat is csv or arrow.
	OutputFormat string `koanf:"output_format"`

	// MetricsPath receives a Prometheus textfile after the run. Empty skips it.
	MetricsPath string `koanf:"metrics_path"`

	// JoinPolicy is inner (record drops) or strict (fail on drops).
	JoinPolicy string `koanf:"join_policy"`

	// CodeSlots limits how many RFCD/SEO slots are aggregated.
	CodeSlots int `koanf:"code_slots"`

	// KeepZeroBucket keeps the bucket-0 column in the code aggregates.
	KeepZeroBucket bool `koanf:"keep_zero_bucket"`

	// ServeAddr, when set, serves the feature store over HTTP after the run
	// until the process is signalled, e.g. ":9080".
	ServeAddr string `koanf:"serve_addr"`

	// MaxPageLimit caps GET /applications?limit.
	MaxPageLimit int `koanf:"max_page_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		OutputFormat: FormatCSV,
		JoinPolicy:   "inner",
		CodeSlots:    MaxCodeSlots,
		MaxPageLimit: 1000,
	}
}

// Validate reports the first invalid field, wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("%w: input_path must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.OutputFormat) {
	case FormatCSV, FormatArrow:
	default:
		return fmt.Errorf("%w: output_format %q", ErrInvalidConfig, c.OutputFormat)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch strings.ToLower(c.JoinPolicy) {
	case "", "inner", "strict":
	default:
		return fmt.Errorf("%w: join_policy %q", ErrInvalidConfig, c.JoinPolicy)
	}
	if c.CodeSlots < 1 || c.CodeSlots > MaxCodeSlots {
		return fmt.Errorf("%w: code_slots must be within 1..%d, got %d", ErrInvalidConfig, MaxCodeSlots, c.CodeSlots)
	}
	if c.MaxPageLimit < 1 {
		return fmt.Errorf("%w: max_page_limit must be positive, got %d", ErrInvalidConfig, c.MaxPageLimit)
	}
	return nil
}
