package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reposift/internal/benchmark"
	"reposift/internal/config"
	"reposift/internal/fetcher"
	"reposift/internal/githubapi"
	"reposift/internal/journal"
	"reposift/internal/languages"
	"reposift/internal/logging"
	"reposift/internal/pipeline"
	"reposift/internal/setstore"
	"reposift/internal/stage"
)

// runtime holds the components assembled for one invocation.
type runtime struct {
	pipeline *pipeline.Pipeline
	stages   []stage.Stage
	journal  *journal.Store
}

func (r *runtime) Close() {
	if r.journal != nil {
		_ = r.journal.Close()
	}
}

func newFetcher(cfg *config.Config, logger *slog.Logger) *fetcher.Fetcher {
	timings := cfg.Fetcher.Timings()
	return fetcher.New(fetcher.Options{
		MaxRetries:     cfg.Fetcher.MaxRetries,
		BackoffFactor:  cfg.Fetcher.BackoffFactor,
		MaxBackoff:     timings.MaxBackoff,
		RetryStatuses:  cfg.Fetcher.RetryStatuses,
		MinDelay:       timings.MinDelay,
		MaxDelay:       timings.MaxDelay,
		MaxConsecutive: cfg.Fetcher.MaxConsecutiveRequests,
		LongPause:      timings.LongPause,
		RequestTimeout: timings.RequestTimeout,
		UserAgents:     cfg.Fetcher.UserAgents,
	}, logger)
}

func newGitHubClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*githubapi.Client, error) {
	return githubapi.New(ctx, githubapi.Options{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.BaseURL,
		PerPage:           cfg.Search.PerPage,
		StartPage:         cfg.Search.StartPage,
		EndPage:           cfg.Search.EndPage,
		RequestsPerMinute: cfg.Search.RequestsPerMinute,
		Retry:             githubRetry(cfg),
	}, logger)
}

// githubRetry applies the fetcher's retry count and backoff schedule to API
// calls. Zero retries is kept as zero rather than the client default.
func githubRetry(cfg *config.Config) githubapi.RetryConfig {
	retries := cfg.Fetcher.MaxRetries
	if retries == 0 {
		retries = -1
	}
	return githubapi.RetryConfig{
		MaxRetries:        retries,
		InitialBackoff:    time.Duration(cfg.Fetcher.BackoffFactor * float64(time.Second)),
		MaxBackoff:        cfg.Fetcher.Timings().MaxBackoff,
		BackoffMultiplier: 2,
	}
}

// buildStages returns the enabled stages in pipeline order.
func buildStages(cfg *config.Config, gh *githubapi.Client, store *setstore.Store, logger *slog.Logger) ([]stage.Stage, error) {
	var stages []stage.Stage
	if cfg.Languages.Enabled {
		stages = append(stages, languages.New(languages.Options{
			Target:    cfg.Languages.Target,
			Threshold: cfg.Languages.Threshold,
			SetPath:   cfg.Paths.LanguageRejectedFile,
		}, gh, store, logger))
	}
	if cfg.Benchmark.Enabled {
		checker, err := benchmark.NewChecker(
			cfg.Benchmark.BaseURL,
			cfg.Benchmark.FilterParams,
			cfg.Benchmark.Token,
			cfg.Benchmark.Cookie,
			newFetcher(cfg, logger),
		)
		if err != nil {
			return nil, fmt.Errorf("benchmark checker: %w", err)
		}
		stages = append(stages, benchmark.New(benchmark.Options{
			SetPath:          cfg.Paths.BenchmarkBlacklistFile,
			BlacklistOnError: cfg.Benchmark.BlacklistOnError,
		}, checker, store, logger))
	}
	return stages, nil
}

// buildRuntime wires the pipeline from config. A journal that cannot be
// opened is logged and the run proceeds without one.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	gh, err := newGitHubClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store := setstore.New(logger)
	stages, err := buildStages(cfg, gh, store, logger)
	if err != nil {
		return nil, err
	}

	rt := &runtime{stages: stages}
	var sink pipeline.Journal
	if j, err := journal.Open(ctx, cfg.Paths.JournalPath); err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_open_failed",
			logging.Error(err),
			logging.String("path", cfg.Paths.JournalPath),
			logging.String(logging.FieldImpact, "this run will not be recorded in history"),
		)
	} else {
		rt.journal = j
		sink = j
	}

	settings := pipeline.Settings{
		Query:         cfg.Search.Query,
		OwnedPath:     cfg.Paths.OwnedFile,
		GreenListPath: cfg.Paths.GreenListFile,
		DispositionPaths: []string{
			cfg.Paths.LanguageRejectedFile,
			cfg.Paths.BenchmarkBlacklistFile,
		},
		LockPath: cfg.LockPath(),
	}
	rt.pipeline = pipeline.New(settings, gh, stages, store, sink, logger)
	return rt, nil
}
