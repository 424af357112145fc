// Package languages implements the language-composition filter stage: a
// candidate passes when the target language accounts for at least the
// configured share of its source bytes.
package languages

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/cases"

	"reposift/internal/candidate"
	"reposift/internal/logging"
	"reposift/internal/setstore"
	"reposift/internal/stage"
)

// Name identifies the stage in logs, results, and the journal.
const Name = "languages"

// Oracle returns the byte count per language for a repository.
type Oracle interface {
	Languages(ctx context.Context, fullName string) (map[string]int, error)
}

// Options configures the stage.
type Options struct {
	Target    string
	Threshold float64
	// SetPath is the durable rejection set for this stage.
	SetPath string
}

// Stage is the language-composition filter.
type Stage struct {
	opts   Options
	oracle Oracle
	runner stage.Runner
	logger *slog.Logger
}

// New constructs the stage.
func New(opts Options, oracle Oracle, store *setstore.Store, logger *slog.Logger) *Stage {
	logger = logging.NewComponentLogger(logger, Name)
	return &Stage{
		opts:   opts,
		oracle: oracle,
		logger: logger,
		runner: stage.Runner{Name: Name, Store: store, SetPath: opts.SetPath, Logger: logger},
	}
}

// Name returns the stage name.
func (s *Stage) Name() string { return Name }

// Apply classifies candidates by language share.
func (s *Stage) Apply(ctx context.Context, candidates []candidate.Record) (stage.Result, error) {
	return s.runner.Run(ctx, candidates, s.evaluate)
}

// HealthCheck reports whether the stage is configured to run.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	switch {
	case s.oracle == nil:
		return stage.Unhealthy(Name, "language oracle not configured")
	case strings.TrimSpace(s.opts.Target) == "":
		return stage.Unhealthy(Name, "target language not set")
	default:
		return stage.Healthy(Name)
	}
}

func (s *Stage) evaluate(ctx context.Context, record candidate.Record, _ bool) stage.Outcome {
	name, err := record.Repository()
	if err != nil {
		return stage.Outcome{Verdict: stage.Skip, Reason: "no repository name", Err: err}
	}
	breakdown, err := s.oracle.Languages(ctx, name)
	if err != nil {
		return stage.Outcome{Verdict: stage.Skip, Reason: "language lookup failed", Err: err}
	}
	percent := Percentage(breakdown, s.opts.Target)
	if percent >= s.opts.Threshold {
		return stage.Outcome{Verdict: stage.Accept, Record: record.WithLanguagePercent(round2(percent))}
	}
	return stage.Outcome{
		Verdict: stage.Reject,
		Record:  record,
		Reason:  fmt.Sprintf("%s share %.2f%% below %.2f%%", s.opts.Target, percent, s.opts.Threshold),
	}
}

// Percentage returns the share of target bytes in breakdown, 0 when the
// breakdown is empty. Language names are compared case-insensitively.
func Percentage(breakdown map[string]int, target string) float64 {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(target))
	var total, matched int64
	for lang, bytes := range breakdown {
		if bytes < 0 {
			continue
		}
		total += int64(bytes)
		if fold.String(lang) == want {
			matched += int64(bytes)
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total) * 100
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
