// Package config handles client configuration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Defaults for unset fields.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRetries      = 10
	DefaultRetryDelay      = 2 * time.Second
	DefaultLocale          = "en"
)

// Environment variables that override the backend origin, highest priority first.
var backendURLEnvVars = []string{"TODOAPP_BACKEND_URL", "BACKEND_URL"}

// RetryConfig holds the API client retry policy
type RetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	Delay      string `yaml:"delay"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Verbose           bool   `yaml:"verbose"`
	BackgroundEnabled *bool  `yaml:"background_enabled"` // Controls background log file creation (default: true)
	File              string `yaml:"file"`
}

// Config represents the client configuration
type Config struct {
	BackendURL      string        `yaml:"backend_url"`
	RefreshInterval string        `yaml:"refresh_interval"` // e.g. "30s", "1m"
	RequestTimeout  string        `yaml:"request_timeout"`
	Locale          string        `yaml:"locale"`
	Retry           RetryConfig   `yaml:"retry"`
	Logging         LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	maxRetries := DefaultMaxRetries
	enabled := true
	return &Config{
		RefreshInterval: DefaultRefreshInterval.String(),
		RequestTimeout:  DefaultRequestTimeout.String(),
		Retry: RetryConfig{
			MaxRetries: &maxRetries,
			Delay:      DefaultRetryDelay.String(),
		},
		Logging: LoggingConfig{
			BackgroundEnabled: &enabled,
		},
	}
}

// DefaultPath returns the config file path under the XDG config directory.
func DefaultPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it is created from the documented sample.
// Environment overrides are applied after the file is read.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}
	configPath = ExpandPath(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeSample(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Parse decodes YAML config data and applies defaults for unset fields.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.RefreshInterval == "" {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.Retry.MaxRetries == nil {
		c.Retry.MaxRetries = d.Retry.MaxRetries
	}
	if c.Retry.Delay == "" {
		c.Retry.Delay = d.Retry.Delay
	}
	if c.Logging.BackgroundEnabled == nil {
		c.Logging.BackgroundEnabled = d.Logging.BackgroundEnabled
	}
	if c.Logging.File != "" {
		c.Logging.File = ExpandPath(c.Logging.File)
	}
}

// writeSample writes the embedded sample config to path
func writeSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	for _, name := range backendURLEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			c.BackendURL = v
			return
		}
	}
}

// ApplyFlags applies CLI flag overrides. Empty values leave the config unchanged.
func (c *Config) ApplyFlags(backendURL string, verbose bool) {
	if backendURL != "" {
		c.BackendURL = backendURL
	}
	if verbose {
		c.Logging.Verbose = true
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend_url must be an http(s) origin, got %q", c.BackendURL))
		}
	}

	for _, f := range []struct {
		key   string
		value string
	}{
		{"refresh_interval", c.RefreshInterval},
		{"request_timeout", c.RequestTimeout},
		{"retry.delay", c.Retry.Delay},
	} {
		d, err := time.ParseDuration(f.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", f.key, f.value))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %q", f.key, f.value))
		}
	}

	if c.Retry.MaxRetries != nil && (*c.Retry.MaxRetries < 1 || *c.Retry.MaxRetries > 100) {
		errs = append(errs, fmt.Errorf("retry.max_retries must be between 1 and 100, got %d", *c.Retry.MaxRetries))
	}

	return errors.Join(errs...)
}

// GetBackendURL returns the configured backend origin ("" means the client default).
func (c *Config) GetBackendURL() string {
	return strings.TrimRight(c.BackendURL, "/")
}

// GetRefreshInterval returns the background refresh period.
func (c *Config) GetRefreshInterval() time.Duration {
	return parseDurationOr(c.RefreshInterval, DefaultRefreshInterval)
}

// GetRequestTimeout returns the per-request timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDurationOr(c.RequestTimeout, DefaultRequestTimeout)
}

// GetRetryDelay returns the pause between retries.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDurationOr(c.Retry.Delay, DefaultRetryDelay)
}

// GetMaxRetries returns the retry budget per call.
func (c *Config) GetMaxRetries() int {
	if c.Retry.MaxRetries == nil || *c.Retry.MaxRetries < 1 {
		return DefaultMaxRetries
	}
	return *c.Retry.MaxRetries
}

// GetLocale returns the collation locale: the configured value, else LC_ALL
// or LANG, else DefaultLocale.
func (c *Config) GetLocale() string {
	if c.Locale != "" {
		return c.Locale
	}
	for _, name := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(name); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return DefaultLocale
}

// IsBackgroundLoggingEnabled returns whether the TUI writes logs to a file.
func (c *Config) IsBackgroundLoggingEnabled() bool {
	if c.Logging.BackgroundEnabled == nil {
		return true
	}
	return *c.Logging.BackgroundEnabled
}

// GetLogFile returns the TUI log file path ("" means the default temp path).
func (c *Config) GetLogFile() string {
	return c.Logging.File
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// getXDGDir returns the todoapp directory under an XDG base directory
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "todoapp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "todoapp")
	}
	return filepath.Join(home, fallbackPath, "todoapp")
}

// GetConfigDir returns the XDG config directory for todoapp
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the XDG data directory for todoapp
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ExpandPath expands ~ and environment variables in path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
