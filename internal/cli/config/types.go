// Package config loads the layerlint CLI settings.
//
// Settings are layered with koanf: built-in defaults, then layerlint.yaml,
// then LAYERLINT_* environment variables, then flags that were explicitly
// set on the command line. The depfile sections of the same YAML file
// (layers, ruleset, skip_violations) are not read here; see internal/config.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Config holds all CLI settings.
type Config struct {
	Depfile         string `koanf:"depfile"`
	Graph           string `koanf:"graph"`
	Workers         int    `koanf:"workers"`
	ReportUntracked bool   `koanf:"report_untracked"`
	OutputFormat    string `koanf:"output"`
	Verbose         bool   `koanf:"verbose"`
	LogLevel        string `koanf:"log_level"`
	StatePath       string `koanf:"state_path"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultStateFile = ".layerlint/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
	DefaultGraphFile = "graph.yaml"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks the settings that can be checked without touching the filesystem.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.OutputFormat != "" && !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (expected one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the level the CLI logger should use.
// Verbose always wins over log_level.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	lvl, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// ParseLogLevel maps a log_level setting to a slog level. Empty means warn.
func ParseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return lvl, nil
}
