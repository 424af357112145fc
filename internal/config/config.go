package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and durable file configuration. File names that are
// not absolute are resolved relative to DataDir.
type Paths struct {
	DataDir                string `toml:"data_dir"`
	LogDir                 string `toml:"log_dir"`
	OwnedFile              string `toml:"owned_file"`
	LanguageRejectedFile   string `toml:"language_rejected_file"`
	BenchmarkBlacklistFile string `toml:"benchmark_blacklist_file"`
	GreenListFile          string `toml:"green_list_file"`
	JournalPath            string `toml:"journal_path"`
}

// Search contains configuration for the upstream repository search.
type Search struct {
	Query             string `toml:"query"`
	PerPage           int    `toml:"per_page"`
	StartPage         int    `toml:"start_page"`
	EndPage           int    `toml:"end_page"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// GitHub contains credentials and endpoints for the GitHub API.
type GitHub struct {
	Token   string `toml:"token"`
	BaseURL string `toml:"base_url"`
}

// Languages contains configuration for the language-composition stage.
type Languages struct {
	Enabled   bool    `toml:"enabled"`
	Target    string  `toml:"target"`
	Threshold float64 `toml:"threshold"`
}

// Benchmark contains configuration for the benchmark-validity stage.
type Benchmark struct {
	Enabled      bool   `toml:"enabled"`
	BaseURL      string `toml:"base_url"`
	FilterParams string `toml:"filter_params"`
	Token        string `toml:"token"`
	Cookie       string `toml:"cookie"`
	// BlacklistOnError also blacklists candidates whose check failed because of
	// credentials or exhausted retries instead of skipping them for this run.
	BlacklistOnError bool `toml:"blacklist_on_error"`
}

// Fetcher contains retry and courtesy-throttle settings for outbound page fetches.
type Fetcher struct {
	MaxRetries             int      `toml:"max_retries"`
	BackoffFactor          float64  `toml:"backoff_factor"`
	MaxBackoffSeconds      float64  `toml:"max_backoff_seconds"`
	RetryStatuses          []int    `toml:"retry_statuses"`
	MinDelaySeconds        float64  `toml:"min_delay_seconds"`
	MaxDelaySeconds        float64  `toml:"max_delay_seconds"`
	MaxConsecutiveRequests int      `toml:"max_consecutive_requests"`
	LongPauseSeconds       float64  `toml:"long_pause_seconds"`
	RequestTimeoutSeconds  int      `toml:"request_timeout_seconds"`
	UserAgents             []string `toml:"user_agents"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reposift.
//
// Configuration sections by subsystem:
//   - Paths: data directory and the durable disposition files
//   - Search: upstream query expression and pagination bounds
//   - GitHub: API token and base URL
//   - Languages: target language and acceptance threshold
//   - Benchmark: benchmark-validity page location and credentials
//   - Fetcher: retries, backoff, delays, and long pauses
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Search    Search    `toml:"search"`
	GitHub    GitHub    `toml:"github"`
	Languages Languages `toml:"languages"`
	Benchmark Benchmark `toml:"benchmark"`
	Fetcher   Fetcher   `toml:"fetcher"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reposift/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reposift.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the path of the run lock file guarding against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reposift.lock")
}

// FetcherTimings converts the fetcher's second-based settings into durations.
type FetcherTimings struct {
	MaxBackoff     time.Duration
	MinDelay       time.Duration
	MaxDelay       time.Duration
	LongPause      time.Duration
	RequestTimeout time.Duration
}

// Timings returns the fetcher durations.
func (f Fetcher) Timings() FetcherTimings {
	return FetcherTimings{
		MaxBackoff:     seconds(f.MaxBackoffSeconds),
		MinDelay:       seconds(f.MinDelaySeconds),
		MaxDelay:       seconds(f.MaxDelaySeconds),
		LongPause:      seconds(f.LongPauseSeconds),
		RequestTimeout: time.Duration(f.RequestTimeoutSeconds) * time.Second,
	}
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
