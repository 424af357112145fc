package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reposift/internal/candidate"
	"reposift/internal/logging"
	"reposift/internal/services"
	"reposift/internal/setstore"
	"reposift/internal/stage"
)

// Name identifies the stage in logs, results, and the journal.
const Name = "benchmark"

// Options configures the stage.
type Options struct {
	// SetPath is the durable blacklist for this stage.
	SetPath string
	// BlacklistOnError blacklists candidates whose check failed because of
	// credentials or exhausted retries instead of skipping them.
	BlacklistOnError bool
}

// Stage is the benchmark-validity filter.
type Stage struct {
	opts    Options
	checker *Checker
	pages   PageFetcher
	runner  stage.Runner
	logger  *slog.Logger
}

// New constructs the stage. The checker's fetcher also paces the stage.
func New(opts Options, checker *Checker, store *setstore.Store, logger *slog.Logger) *Stage {
	logger = logging.NewComponentLogger(logger, Name)
	var pages PageFetcher
	if checker != nil {
		pages = checker.pages
	}
	return &Stage{
		opts:    opts,
		checker: checker,
		pages:   pages,
		logger:  logger,
		runner:  stage.Runner{Name: Name, Store: store, SetPath: opts.SetPath, Logger: logger},
	}
}

// Name returns the stage name.
func (s *Stage) Name() string { return Name }

// Apply checks each candidate against the benchmark site.
func (s *Stage) Apply(ctx context.Context, candidates []candidate.Record) (stage.Result, error) {
	if s.checker == nil {
		return stage.Result{}, errors.New("benchmark: checker not configured")
	}
	return s.runner.Run(ctx, candidates, s.evaluate)
}

// HealthCheck reports whether the stage is configured to run.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.checker == nil {
		return stage.Unhealthy(Name, "benchmark base url not configured")
	}
	if !s.checker.Authenticated() {
		return stage.Health{Name: Name, Ready: true, Detail: "no credentials; requests are anonymous"}
	}
	return stage.Healthy(Name)
}

func (s *Stage) evaluate(ctx context.Context, record candidate.Record, last bool) stage.Outcome {
	name, err := record.Repository()
	if err != nil {
		return stage.Outcome{Verdict: stage.Reject, Record: record, Reason: "no repository name", Err: err}
	}

	count, err := s.checker.Check(ctx, name)
	if paceErr := s.pages.Pace(ctx, last); paceErr != nil && ctx.Err() == nil {
		s.logger.Debug("pace interrupted", logging.Error(paceErr))
	}
	if err != nil {
		return s.classify(ctx, record, err)
	}
	if count == 0 {
		return stage.Outcome{Verdict: stage.Reject, Record: record, Reason: "no qualifying rows"}
	}
	s.logger.Debug("benchmark rows found", logging.Candidate(record.Identity()), logging.Int("rows", count))
	return stage.Outcome{Verdict: stage.Accept, Record: record.WithBenchmarkMatches(count)}
}

func (s *Stage) classify(ctx context.Context, record candidate.Record, err error) stage.Outcome {
	if ctx.Err() != nil {
		return stage.Outcome{Verdict: stage.Skip, Record: record, Reason: "cancelled", Err: err}
	}
	kind := services.Classify(err)
	if kind == services.FailurePermanent || s.opts.BlacklistOnError {
		return stage.Outcome{
			Verdict: stage.Reject,
			Record:  record,
			Reason:  fmt.Sprintf("%s check failure: %v", kind, err),
			Err:     err,
		}
	}
	return stage.Outcome{
		Verdict: stage.Skip,
		Record:  record,
		Reason:  fmt.Sprintf("%s check failure", kind),
		Err:     err,
	}
}
