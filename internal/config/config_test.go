package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() config does not validate: %v", err)
	}
	if cfg.Probe.Concurrency != 10 {
		t.Errorf("default probe concurrency = %d, want 10", cfg.Probe.Concurrency)
	}
	if cfg.Match.Policy != "both" {
		t.Errorf("default match policy = %q, want both", cfg.Match.Policy)
	}
	if cfg.Refresh.Interval != 6*time.Hour {
		t.Errorf("default refresh interval = %v, want 6h", cfg.Refresh.Interval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing http port",
			mutate:  func(c *Config) { c.HTTP.Port = "" },
			wantErr: "HTTP port is required",
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Data.DBPath = "" },
			wantErr: "Database path is required",
		},
		{
			name:    "non-positive refresh interval",
			mutate:  func(c *Config) { c.Refresh.Interval = 0 },
			wantErr: "Refresh interval must be positive",
		},
		{
			name:    "unknown match policy",
			mutate:  func(c *Config) { c.Match.Policy = "exact" },
			wantErr: "Match policy must be one of",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Match.Threshold = 1.5 },
			wantErr: "Match threshold must be in (0, 1]",
		},
		{
			name:    "group rule without bucket",
			mutate:  func(c *Config) { c.Groups = []GroupRule{{Pattern: "cctv"}} },
			wantErr: "bucket is required",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "Log level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Port = ""
	cfg.Probe.Timeout = 0
	cfg.Match.Policy = "bogus"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"HTTP port", "Probe timeout", "Match policy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error is missing %q: %v", want, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
http:
  address: 0.0.0.0
  port: "9090"
refresh:
  interval: 1h
probe:
  concurrency: 4
match:
  policy: name
  threshold: 0.9
groups:
  - pattern: "(?i)cctv"
    bucket: CCTV
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() unexpected error = %v", err)
	}

	if cfg.HTTP.Port != "9090" {
		t.Errorf("HTTP.Port = %q, want 9090", cfg.HTTP.Port)
	}
	if cfg.Refresh.Interval != time.Hour {
		t.Errorf("Refresh.Interval = %v, want 1h", cfg.Refresh.Interval)
	}
	if cfg.Probe.Concurrency != 4 {
		t.Errorf("Probe.Concurrency = %d, want 4", cfg.Probe.Concurrency)
	}
	if cfg.Match.Policy != "name" {
		t.Errorf("Match.Policy = %q, want name", cfg.Match.Policy)
	}
	// Unset fields keep their defaults.
	if cfg.Probe.Timeout != 10*time.Second {
		t.Errorf("Probe.Timeout = %v, want default 10s", cfg.Probe.Timeout)
	}
	if len(cfg.Groups) != 1 || cfg.Groups[0].Bucket != "CCTV" {
		t.Errorf("Groups = %v, want the single CCTV rule", cfg.Groups)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("PROBE_CONCURRENCY", "25")
	t.Setenv("REFRESH_INTERVAL", "30m")
	t.Setenv("PROBE_TEST_ALL_SOURCES", "true")

	cfg := Default()
	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() unexpected error = %v", err)
	}

	if cfg.HTTP.Port != "7070" {
		t.Errorf("HTTP.Port = %q, want 7070", cfg.HTTP.Port)
	}
	if cfg.Probe.Concurrency != 25 {
		t.Errorf("Probe.Concurrency = %d, want 25", cfg.Probe.Concurrency)
	}
	if cfg.Refresh.Interval != 30*time.Minute {
		t.Errorf("Refresh.Interval = %v, want 30m", cfg.Refresh.Interval)
	}
	if !cfg.Probe.TestAllSources {
		t.Error("Probe.TestAllSources = false, want true")
	}
}

func TestEnvOverrides_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad refresh interval", "REFRESH_INTERVAL", "soon"},
		{"negative refresh interval", "REFRESH_INTERVAL", "-1h"},
		{"bad probe concurrency", "PROBE_CONCURRENCY", "many"},
		{"zero probe concurrency", "PROBE_CONCURRENCY", "0"},
		{"bad match threshold", "MATCH_THRESHOLD", "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if err := applyEnvOverrides(Default()); err == nil {
				t.Errorf("applyEnvOverrides() expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
