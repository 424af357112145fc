package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSearch()
	c.normalizeGitHub()
	c.normalizeLanguages()
	c.normalizeBenchmark()
	c.normalizeFetcher()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
			return fmt.Errorf("paths.log_dir: %w", err)
		}
	}

	files := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.owned_file", &c.Paths.OwnedFile, defaultOwnedFile},
		{"paths.language_rejected_file", &c.Paths.LanguageRejectedFile, defaultLanguageRejectedFile},
		{"paths.benchmark_blacklist_file", &c.Paths.BenchmarkBlacklistFile, defaultBenchmarkBlacklistFile},
		{"paths.green_list_file", &c.Paths.GreenListFile, defaultGreenListFile},
		{"paths.journal_path", &c.Paths.JournalPath, defaultJournalFile},
	}
	for _, file := range files {
		resolved, err := c.resolveDataFile(*file.value, file.fallback)
		if err != nil {
			return fmt.Errorf("%s: %w", file.key, err)
		}
		*file.value = resolved
	}
	return nil
}

// resolveDataFile places bare file names inside the data directory and expands
// explicit paths.
func (c *Config) resolveDataFile(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	if strings.HasPrefix(value, "~") || filepath.IsAbs(value) {
		return expandPath(value)
	}
	return expandPath(filepath.Join(c.Paths.DataDir, value))
}

func (c *Config) normalizeSearch() {
	c.Search.Query = strings.TrimSpace(c.Search.Query)
	if c.Search.Query == "" {
		c.Search.Query = defaultSearchQuery
	}
	if c.Search.PerPage == 0 {
		c.Search.PerPage = defaultPerPage
	}
	if c.Search.StartPage == 0 {
		c.Search.StartPage = defaultStartPage
	}
	if c.Search.EndPage == 0 {
		c.Search.EndPage = defaultEndPage
	}
	if c.Search.RequestsPerMinute <= 0 {
		c.Search.RequestsPerMinute = defaultRequestsPerMinute
	}
}

func (c *Config) normalizeGitHub() {
	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)
	if c.GitHub.Token == "" {
		if value, ok := os.LookupEnv("GITHUB_TOKEN"); ok {
			c.GitHub.Token = strings.TrimSpace(value)
		}
	}
	if c.GitHub.Token == "YOUR_GITHUB_TOKEN" {
		c.GitHub.Token = ""
	}
	c.GitHub.BaseURL = strings.TrimSpace(c.GitHub.BaseURL)
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = defaultGitHubBaseURL
	}
	if !strings.HasSuffix(c.GitHub.BaseURL, "/") {
		c.GitHub.BaseURL += "/"
	}
}

func (c *Config) normalizeLanguages() {
	c.Languages.Target = strings.TrimSpace(c.Languages.Target)
	if c.Languages.Target == "" {
		c.Languages.Target = defaultTargetLanguage
	}
}

func (c *Config) normalizeBenchmark() {
	c.Benchmark.BaseURL = strings.TrimSpace(c.Benchmark.BaseURL)
	c.Benchmark.FilterParams = strings.TrimSpace(c.Benchmark.FilterParams)
	c.Benchmark.Token = strings.TrimSpace(c.Benchmark.Token)
	if c.Benchmark.Token == "" {
		if value, ok := os.LookupEnv("BENCHMARK_TOKEN"); ok {
			c.Benchmark.Token = strings.TrimSpace(value)
		}
	}
	c.Benchmark.Cookie = strings.TrimSpace(c.Benchmark.Cookie)
	if c.Benchmark.Cookie == "" {
		if value, ok := os.LookupEnv("BENCHMARK_COOKIE"); ok {
			c.Benchmark.Cookie = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeFetcher() {
	if len(c.Fetcher.RetryStatuses) == 0 {
		c.Fetcher.RetryStatuses = append([]int(nil), defaultRetryStatuses...)
	}
	if c.Fetcher.RequestTimeoutSeconds <= 0 {
		c.Fetcher.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	agents := make([]string, 0, len(c.Fetcher.UserAgents))
	seen := make(map[string]struct{}, len(c.Fetcher.UserAgents))
	for _, agent := range c.Fetcher.UserAgents {
		agent = strings.TrimSpace(agent)
		if agent == "" {
			continue
		}
		if _, exists := seen[agent]; exists {
			continue
		}
		seen[agent] = struct{}{}
		agents = append(agents, agent)
	}
	if len(agents) == 0 {
		agents = append(agents, defaultUserAgents...)
	}
	c.Fetcher.UserAgents = agents
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
