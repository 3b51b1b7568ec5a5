package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Failure policies for per-file errors
const (
	// PolicySkip logs a failing file and leaves it out of the output.
	PolicySkip = "skip"
	// PolicyAbort stops the run at the first failing file.
	PolicyAbort = "abort"
)

// Config represents minrow configuration options
type Config struct {
	// Threads is the worker pool size for the load and reduce stages
	Threads int `yaml:"threads"`

	// MaxFiles caps the number of discovered files processed (0 = all)
	MaxFiles int `yaml:"max_files"`

	// Extension is the file extension matched during discovery
	Extension string `yaml:"extension"`

	// Prefix restricts discovery to entries whose names start with it
	Prefix string `yaml:"prefix"`

	// PrefixDepth is how many levels below root are searched for prefixed entries
	PrefixDepth int `yaml:"prefix_depth"`

	// Column is the 1-based column reduced by arg-min
	Column int `yaml:"column"`

	// Delimiter separates fields in input files
	Delimiter string `yaml:"delimiter"`

	// InferRows is the number of leading rows used to infer column kinds (0 = all)
	InferRows int `yaml:"infer_rows"`

	// OutputFormat is csv or joined
	OutputFormat string `yaml:"output_format"`

	// FailurePolicy is skip (lenient) or abort (strict)
	FailurePolicy string `yaml:"failure_policy"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir enables a run log file in this directory when set
	LogDir string `yaml:"log_dir"`

	// HistoryDB records each run in a SQLite database when set
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Threads:       2,
		MaxFiles:      0, // All files
		Extension:     "csv",
		Prefix:        "",
		PrefixDepth:   1,
		Column:        3,
		Delimiter:     ",",
		InferRows:     100,
		OutputFormat:  "csv",
		FailurePolicy: PolicySkip,
		LogLevel:      "info",
		LogDir:        "",
		HistoryDB:     "",
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decode onto the defaults so keys missing from the file keep their
	// default values while keys present (even as zero) override them.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .minrow/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, HomeDirName, "config.yaml"))
}

// FlagOverrides holds CLI flag values. Nil fields were not set on the
// command line and leave the configuration unchanged.
type FlagOverrides struct {
	Threads       *int
	MaxFiles      *int
	Extension     *string
	Prefix        *string
	PrefixDepth   *int
	Column        *int
	Delimiter     *string
	InferRows     *int
	OutputFormat  *string
	FailurePolicy *string
	LogLevel      *string
	LogDir        *string
	HistoryDB     *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if f.Threads != nil {
		c.Threads = *f.Threads
	}
	if f.MaxFiles != nil {
		c.MaxFiles = *f.MaxFiles
	}
	if f.Extension != nil {
		c.Extension = *f.Extension
	}
	if f.Prefix != nil {
		c.Prefix = *f.Prefix
	}
	if f.PrefixDepth != nil {
		c.PrefixDepth = *f.PrefixDepth
	}
	if f.Column != nil {
		c.Column = *f.Column
	}
	if f.Delimiter != nil {
		c.Delimiter = *f.Delimiter
	}
	if f.InferRows != nil {
		c.InferRows = *f.InferRows
	}
	if f.OutputFormat != nil {
		c.OutputFormat = *f.OutputFormat
	}
	if f.FailurePolicy != nil {
		c.FailurePolicy = *f.FailurePolicy
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.HistoryDB != nil {
		c.HistoryDB = *f.HistoryDB
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be > 0, got %d", c.Threads)
	}
	if c.MaxFiles < 0 {
		return fmt.Errorf("max_files must be >= 0, got %d", c.MaxFiles)
	}
	if strings.Trim(c.Extension, ". ") == "" {
		return fmt.Errorf("extension cannot be empty")
	}
	if c.PrefixDepth < 1 {
		return fmt.Errorf("prefix_depth must be >= 1, got %d", c.PrefixDepth)
	}
	if c.Column < 1 {
		return fmt.Errorf("column must be >= 1, got %d", c.Column)
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	if d := c.DelimiterRune(); d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError {
		return fmt.Errorf("invalid delimiter %q", c.Delimiter)
	}
	if c.InferRows < 0 {
		return fmt.Errorf("infer_rows must be >= 0, got %d", c.InferRows)
	}

	validFormats := map[string]bool{"csv": true, "joined": true}
	if !validFormats[c.OutputFormat] {
		return fmt.Errorf("invalid output_format %q, must be one of: csv, joined", c.OutputFormat)
	}

	if c.FailurePolicy != PolicySkip && c.FailurePolicy != PolicyAbort {
		return fmt.Errorf("invalid failure_policy %q, must be one of: skip, abort", c.FailurePolicy)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// DelimiterRune returns the configured delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// ColumnIndex returns the 0-based index of the reduced column.
func (c *Config) ColumnIndex() int {
	return c.Column - 1
}

// Strict reports whether the first per-file failure aborts the run.
func (c *Config) Strict() bool {
	return c.FailurePolicy == PolicyAbort
}

// LogLevelForVerbosity maps a repeated --debug count to a log level:
// 0 info, 1 debug, 2 or more trace.
func LogLevelForVerbosity(count int) string {
	switch {
	case count <= 0:
		return "info"
	case count == 1:
		return "debug"
	default:
		return "trace"
	}
}
