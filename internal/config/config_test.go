package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reposift/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnvToken(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GITHUB_TOKEN", " env-token ")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "reposift")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.OwnedFile != filepath.Join(wantData, "repos_list.json") {
		t.Fatalf("unexpected owned file: %q", cfg.Paths.OwnedFile)
	}
	if cfg.Paths.GreenListFile != filepath.Join(wantData, "filtered_repos.json") {
		t.Fatalf("unexpected green list file: %q", cfg.Paths.GreenListFile)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Fatalf("expected GitHub token from env, got %q", cfg.GitHub.Token)
	}
	if cfg.Languages.Threshold != 75 {
		t.Fatalf("expected default threshold 75, got %v", cfg.Languages.Threshold)
	}
	if cfg.Languages.Target != "Python" {
		t.Fatalf("expected default target language Python, got %q", cfg.Languages.Target)
	}
	if cfg.Benchmark.Enabled {
		t.Fatal("expected benchmark stage disabled by default")
	}
	if len(cfg.Fetcher.UserAgents) == 0 {
		t.Fatal("expected default user agent pool")
	}
	if got := cfg.LockPath(); got != filepath.Join(wantData, "reposift.lock") {
		t.Fatalf("unexpected lock path %q", got)
	}
}

func TestLoadPlaceholderTokenIsIgnored(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "YOUR_GITHUB_TOKEN")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.GitHub.Token != "" {
		t.Fatalf("expected placeholder token to be dropped, got %q", cfg.GitHub.Token)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BENCHMARK_COOKIE", "session=abc")
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")

	content := Config{
		Paths: map[string]any{
			"data_dir":        dataDir,
			"owned_file":      "owned.json",
			"green_list_file": filepath.Join(dir, "elsewhere", "green.json"),
		},
		Languages: map[string]any{"target": "Go", "threshold": 60.0},
		Benchmark: map[string]any{"enabled": true, "base_url": "https://bench.example.com/repos/"},
		Fetcher: map[string]any{
			"min_delay_seconds":  0.5,
			"max_delay_seconds":  1.5,
			"long_pause_seconds": 30.0,
			"user_agents":        []string{" agent-a ", "agent-a", "agent-b"},
		},
	}
	path := filepath.Join(dir, "reposift.toml")
	writeTOML(t, path, content)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to exist, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Paths.OwnedFile != filepath.Join(dataDir, "owned.json") {
		t.Fatalf("unexpected owned file %q", cfg.Paths.OwnedFile)
	}
	if cfg.Paths.GreenListFile != filepath.Join(dir, "elsewhere", "green.json") {
		t.Fatalf("unexpected green list file %q", cfg.Paths.GreenListFile)
	}
	if cfg.Languages.Target != "Go" || cfg.Languages.Threshold != 60 {
		t.Fatalf("unexpected languages section %+v", cfg.Languages)
	}
	if cfg.Benchmark.Cookie != "session=abc" {
		t.Fatalf("expected benchmark cookie from env, got %q", cfg.Benchmark.Cookie)
	}
	if len(cfg.Fetcher.UserAgents) != 2 {
		t.Fatalf("expected user agents to be deduplicated, got %v", cfg.Fetcher.UserAgents)
	}
	timings := cfg.Fetcher.Timings()
	if timings.MinDelay != 500*time.Millisecond || timings.MaxDelay != 1500*time.Millisecond {
		t.Fatalf("unexpected delay timings %+v", timings)
	}
	if timings.LongPause != 30*time.Second {
		t.Fatalf("unexpected long pause %v", timings.LongPause)
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"threshold", func(c *config.Config) { c.Languages.Threshold = 101 }, "languages.threshold"},
		{"delays", func(c *config.Config) { c.Fetcher.MinDelaySeconds = 10; c.Fetcher.MaxDelaySeconds = 1 }, "min_delay_seconds"},
		{"per page", func(c *config.Config) { c.Search.PerPage = 500 }, "search.per_page"},
		{"pages", func(c *config.Config) { c.Search.StartPage = 5; c.Search.EndPage = 2 }, "search.end_page"},
		{"benchmark url", func(c *config.Config) { c.Benchmark.Enabled = true }, "benchmark.base_url"},
		{"retries", func(c *config.Config) { c.Fetcher.MaxRetries = -1 }, "max_retries"},
		{"status", func(c *config.Config) { c.Fetcher.RetryStatuses = []int{42} }, "retry_statuses"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected sample config to exist: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to be found")
	}
	if cfg.Search.PerPage != 100 {
		t.Fatalf("unexpected per_page %d", cfg.Search.PerPage)
	}
}

// Config mirrors the TOML layout loosely so tests can write partial files.
type Config struct {
	Paths     map[string]any `toml:"paths,omitempty"`
	Languages map[string]any `toml:"languages,omitempty"`
	Benchmark map[string]any `toml:"benchmark,omitempty"`
	Fetcher   map[string]any `toml:"fetcher,omitempty"`
}

func writeTOML(t *testing.T, path string, value any) {
	t.Helper()
	data, err := toml.Marshal(value)
	if err != nil {
		t.Fatalf("marshal toml: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
}
