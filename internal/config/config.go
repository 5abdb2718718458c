// Package config loads fieldctl settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvConfigFile  = "FIELDCTL_CONFIG"
	EnvBaseFile    = "FIELDCTL_BASE_FILE"
	EnvLogLevel    = "FIELDCTL_LOG_LEVEL"
	EnvLogFormat   = "FIELDCTL_LOG_FORMAT"
	EnvLanguage    = "FIELDCTL_LANG"
	EnvConcurrency = "FIELDCTL_CONCURRENCY"
)

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

const (
	dirName        = ".fieldctl"
	configFileName = "config.yaml"
	baseFileName   = "base.yaml"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the fieldctl configuration.
type Config struct {
	Base     BaseConfig    `yaml:"base"`
	Logging  LoggingConfig `yaml:"logging"`
	Language string        `yaml:"language"`
	// Concurrency caps in-flight field operations per batch; 0 means no cap.
	Concurrency int `yaml:"concurrency"`
}

// BaseConfig locates the base file.
type BaseConfig struct {
	File string `yaml:"file"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Dir returns the fieldctl home directory, ~/.fieldctl.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// DefaultPath returns the config file location, honoring FIELDCTL_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	return filepath.Join(Dir(), configFileName)
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		Base: BaseConfig{
			File: filepath.Join(Dir(), baseFileName),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: FormatConsole,
		},
		Language: "en",
	}
}

// Load reads the config at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvBaseFile); ok && v != "" {
		c.Base.File = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv(EnvLogFormat); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := lookupEnv(EnvLanguage); ok && v != "" {
		c.Language = v
	}
	if v, ok := lookupEnv(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvConcurrency, v)
		}
		c.Concurrency = n
	}
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Base.File == "" {
		return fmt.Errorf("%w: base.file is empty", ErrInvalidConfig)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be >= 0, got %d", ErrInvalidConfig, c.Concurrency)
	}
	switch c.Logging.Format {
	case "", FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Language != "" {
		if _, err := language.Parse(c.Language); err != nil {
			return fmt.Errorf("%w: language %q: %w", ErrInvalidConfig, c.Language, err)
		}
	}
	return nil
}
