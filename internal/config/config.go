// Package config loads the aggregator's configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GroupRule maps a raw group-title pattern to a canonical bucket name.
type GroupRule struct {
	Pattern string `yaml:"pattern"`
	Bucket  string `yaml:"bucket"`
}

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// Data storage settings
	Data struct {
		DBPath   string `yaml:"db_path"`
		CacheDir string `yaml:"cache_dir"`
	} `yaml:"data"`

	// Refresh cycle settings
	Refresh struct {
		Interval     time.Duration `yaml:"interval"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
	} `yaml:"refresh"`

	// Probe settings
	Probe struct {
		Timeout        time.Duration `yaml:"timeout"`
		Concurrency    int           `yaml:"concurrency"`
		TestAllSources bool          `yaml:"test_all_sources"`
	} `yaml:"probe"`

	// Channel matching settings
	Match struct {
		Policy    string  `yaml:"policy"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"match"`

	// Group mapping rules; empty means the built-in defaults
	Groups []GroupRule `yaml:"groups"`

	// Extra live-platform URL patterns for the prober
	Platforms []string `yaml:"platforms"`

	// Circuit breaker settings for subscription fetches
	Breaker struct {
		FailureThreshold int           `yaml:"failure_threshold"`
		Timeout          time.Duration `yaml:"timeout"`
		HalfOpenRequests int           `yaml:"half_open_requests"`
	} `yaml:"breaker"`

	// Logging settings
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}

	if c.Data.DBPath == "" {
		errors = append(errors, "Database path is required")
	}
	if c.Data.CacheDir == "" {
		errors = append(errors, "Cache directory is required")
	}

	if c.Refresh.Interval <= 0 {
		errors = append(errors, "Refresh interval must be positive")
	}
	if c.Refresh.FetchTimeout <= 0 {
		errors = append(errors, "Fetch timeout must be positive")
	}

	if c.Probe.Timeout <= 0 {
		errors = append(errors, "Probe timeout must be positive")
	}
	if c.Probe.Concurrency <= 0 {
		errors = append(errors, "Probe concurrency must be positive")
	}

	switch c.Match.Policy {
	case "tvg_id", "name", "both":
	default:
		errors = append(errors, fmt.Sprintf("Match policy must be one of tvg_id, name, both; got %q", c.Match.Policy))
	}
	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		errors = append(errors, "Match threshold must be in (0, 1]")
	}

	for i, g := range c.Groups {
		if g.Pattern == "" {
			errors = append(errors, fmt.Sprintf("Group rule %d: pattern is required", i))
		}
		if g.Bucket == "" {
			errors = append(errors, fmt.Sprintf("Group rule %d: bucket is required", i))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("Log level must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.HTTP.Address = "127.0.0.1"
	cfg.HTTP.Port = "8080"

	cfg.Data.DBPath = "aggregator.db"
	cfg.Data.CacheDir = "cache"

	cfg.Refresh.Interval = 6 * time.Hour
	cfg.Refresh.FetchTimeout = 30 * time.Second

	cfg.Probe.Timeout = 10 * time.Second
	cfg.Probe.Concurrency = 10
	cfg.Probe.TestAllSources = false

	cfg.Match.Policy = "both"
	cfg.Match.Threshold = 0.85

	cfg.Breaker.FailureThreshold = 5
	cfg.Breaker.Timeout = 30 * time.Second
	cfg.Breaker.HalfOpenRequests = 1

	cfg.Log.Level = "info"

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from a file (if provided) and applies environment variable overrides
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	// Try to load from file if it exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		// File doesn't exist, use defaults
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("HTTP_ADDRESS"); val != "" {
		cfg.HTTP.Address = val
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		cfg.HTTP.Port = val
	}

	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.Data.DBPath = val
	}
	if val := os.Getenv("CACHE_DIR"); val != "" {
		absPath, err := normalizeDir(val)
		if err != nil {
			return err
		}
		cfg.Data.CacheDir = absPath
	}

	if val := os.Getenv("REFRESH_INTERVAL"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid REFRESH_INTERVAL format (expected duration like '6h', '30m'): %w", err)
		}
		if duration <= 0 {
			return fmt.Errorf("REFRESH_INTERVAL must be positive, got: %s", val)
		}
		cfg.Refresh.Interval = duration
	}
	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
		}
		if duration <= 0 {
			return fmt.Errorf("FETCH_TIMEOUT must be positive")
		}
		cfg.Refresh.FetchTimeout = duration
	}

	if val := os.Getenv("PROBE_TIMEOUT"); val != "" {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid PROBE_TIMEOUT: %w", err)
		}
		if duration <= 0 {
			return fmt.Errorf("PROBE_TIMEOUT must be positive")
		}
		cfg.Probe.Timeout = duration
	}
	if val := os.Getenv("PROBE_CONCURRENCY"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid PROBE_CONCURRENCY: %w", err)
		}
		if n <= 0 {
			return fmt.Errorf("PROBE_CONCURRENCY must be positive")
		}
		cfg.Probe.Concurrency = n
	}
	if val := os.Getenv("PROBE_TEST_ALL_SOURCES"); val != "" {
		cfg.Probe.TestAllSources = val == "true" || val == "1"
	}

	if val := os.Getenv("MATCH_POLICY"); val != "" {
		cfg.Match.Policy = val
	}
	if val := os.Getenv("MATCH_THRESHOLD"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid MATCH_THRESHOLD: %w", err)
		}
		cfg.Match.Threshold = f
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}

	return nil
}

// normalizeDir validates and normalizes a directory path to absolute form
func normalizeDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("directory cannot be empty")
	}

	if !filepath.IsAbs(dir) {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		return absPath, nil
	}

	return dir, nil
}
