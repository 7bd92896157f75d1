// Package config loads codebundle settings from a YAML file.
//
// The file is named by the --config flag or the CODEBUNDLE_CONFIG
// environment variable. Command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "CODEBUNDLE_CONFIG"

// Config is the codebundle configuration.
type Config struct {
	// Extensions is the source-code extension allow-list. Empty means the
	// built-in list.
	Extensions []string `yaml:"extensions"`

	// IgnoreFile overrides <root>/.gitignore.
	IgnoreFile string `yaml:"ignore_file"`

	// MaxSize is the ceiling for the eligible files, e.g. "50MB" or
	// "200MiB". Empty or "0" means unbounded.
	MaxSize string `yaml:"max_size"`

	// Workers is the number of concurrent archive readers.
	Workers int `yaml:"workers"`

	// BatchSize is the number of files per read task.
	BatchSize int `yaml:"batch_size"`

	// CompressionLevel is the deflate level, 1 (fastest) to 9 (smallest).
	// Zero keeps the compressor's default.
	CompressionLevel int `yaml:"compression_level"`

	// TempDir is where archives are written.
	TempDir string `yaml:"temp_dir"`

	// Debug enables development logging.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxSize:   "200MB",
		BatchSize: 50,
	}
}

// Load reads path over the defaults. An empty path falls back to
// CODEBUNDLE_CONFIG; when both are empty the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. Every problem found is reported; use
// multierr.Errors to list them.
func (c *Config) Validate() error {
	var err error
	if c.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.BatchSize < 0 {
		err = multierr.Append(err, fmt.Errorf("batch_size must not be negative, got %d", c.BatchSize))
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		err = multierr.Append(err, fmt.Errorf("compression_level must be between 0 and 9, got %d", c.CompressionLevel))
	}
	if _, sizeErr := c.MaxBytes(); sizeErr != nil {
		err = multierr.Append(err, sizeErr)
	}
	return err
}

// MaxBytes parses MaxSize. Zero means unbounded.
func (c *Config) MaxBytes() (int64, error) {
	return ParseSize(c.MaxSize)
}

// ParseSize parses a human-readable size such as "50MB" or "1.5GiB".
// An empty string or "0" yields zero.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("max_size %q: %w", s, err)
	}
	if n > uint64(1<<62) {
		return 0, fmt.Errorf("max_size %q is too large", s)
	}
	return int64(n), nil
}
