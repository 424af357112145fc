package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateBenchmark(); err != nil {
		return err
	}
	if err := c.validateFetcher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.PerPage < 1 || c.Search.PerPage > 100 {
		return errors.New("search.per_page must be between 1 and 100")
	}
	if c.Search.StartPage < 1 {
		return errors.New("search.start_page must be at least 1")
	}
	if c.Search.EndPage < c.Search.StartPage {
		return fmt.Errorf("search.end_page (%d) must not be before search.start_page (%d)", c.Search.EndPage, c.Search.StartPage)
	}
	if _, err := url.Parse(c.GitHub.BaseURL); err != nil {
		return fmt.Errorf("github.base_url: %w", err)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if c.Languages.Threshold < 0 || c.Languages.Threshold > 100 {
		return errors.New("languages.threshold must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateBenchmark() error {
	if !c.Benchmark.Enabled {
		return nil
	}
	if c.Benchmark.BaseURL == "" {
		return errors.New("benchmark.base_url must be set when benchmark.enabled is true")
	}
	parsed, err := url.Parse(c.Benchmark.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("benchmark.base_url %q is not an absolute URL", c.Benchmark.BaseURL)
	}
	return nil
}

func (c *Config) validateFetcher() error {
	f := c.Fetcher
	if f.MaxRetries < 0 {
		return errors.New("fetcher.max_retries must not be negative")
	}
	if f.BackoffFactor < 0 {
		return errors.New("fetcher.backoff_factor must not be negative")
	}
	if f.MinDelaySeconds < 0 || f.MaxDelaySeconds < 0 {
		return errors.New("fetcher delays must not be negative")
	}
	if f.MinDelaySeconds > f.MaxDelaySeconds {
		return fmt.Errorf("fetcher.min_delay_seconds (%g) must not exceed fetcher.max_delay_seconds (%g)", f.MinDelaySeconds, f.MaxDelaySeconds)
	}
	if f.MaxConsecutiveRequests < 0 {
		return errors.New("fetcher.max_consecutive_requests must not be negative")
	}
	if f.LongPauseSeconds < 0 {
		return errors.New("fetcher.long_pause_seconds must not be negative")
	}
	for _, status := range f.RetryStatuses {
		if status < 100 || status > 599 {
			return fmt.Errorf("fetcher.retry_statuses contains invalid HTTP status %d", status)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
