package stage

import (
	"context"
	"log/slog"

	"reposift/internal/candidate"
	"reposift/internal/logging"
	"reposift/internal/services"
	"reposift/internal/setstore"
)

// EvaluateFunc classifies one candidate. last is true for the final
// candidate of the batch so the evaluator can skip its trailing delay.
type EvaluateFunc func(ctx context.Context, record candidate.Record, last bool) Outcome

// Runner drives an EvaluateFunc over a batch and owns the stage's durable
// rejection set.
type Runner struct {
	Name    string
	Store   *setstore.Store
	SetPath string
	Logger  *slog.Logger
}

// Run evaluates candidates in order. Candidates already present in the
// rejection set are dropped without evaluation. Each rejection is merged into
// the set as soon as it is decided.
func (r Runner) Run(ctx context.Context, candidates []candidate.Record, evaluate EvaluateFunc) (Result, error) {
	ctx = services.WithStage(ctx, r.Name)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "stage"))
	result := Result{Stage: r.Name}

	pending := candidates
	if r.Store != nil && r.SetPath != "" {
		known := r.Store.Load(r.SetPath)
		pending = make([]candidate.Record, 0, len(candidates))
		for _, record := range candidates {
			if known.Has(record.Identity()) {
				result.Known++
				continue
			}
			pending = append(pending, record)
		}
	}

	for i, record := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome := evaluate(ctx, record, i == len(pending)-1)
		if outcome.Record.Identity() == "" {
			outcome.Record = record
		}
		switch outcome.Verdict {
		case Accept:
			result.Accepted = append(result.Accepted, outcome.Record)
			logger.Debug("candidate accepted", logging.Candidate(record.Identity()))
		case Reject:
			result.Rejected = append(result.Rejected, outcome.Record)
			logger.Info("candidate rejected",
				logging.Candidate(record.Identity()),
				logging.String("reason", outcome.Reason),
			)
			if err := r.persist(outcome.Record); err != nil {
				result.PersistFailures++
				logging.ErrorWithContext(logger, "failed to persist rejection", "stage_persist_failed",
					logging.Candidate(record.Identity()),
					logging.String("path", r.SetPath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check permissions on the data directory"),
				)
			}
		default:
			result.Skipped = append(result.Skipped, Skipped{Record: outcome.Record, Reason: outcome.Reason, Err: outcome.Err})
			logging.WarnWithContext(logger, "candidate skipped", "stage_candidate_skipped",
				logging.Candidate(record.Identity()),
				logging.String("reason", outcome.Reason),
				logging.Error(outcome.Err),
				logging.String(logging.FieldImpact, "candidate will be retried on the next run"),
			)
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	logger.Info("stage complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("accepted", len(result.Accepted)),
		logging.Int("rejected", len(result.Rejected)),
		logging.Int("skipped", len(result.Skipped)),
		logging.Int("known", result.Known),
	)
	return result, nil
}

func (r Runner) persist(record candidate.Record) error {
	if r.Store == nil || r.SetPath == "" {
		return nil
	}
	return r.Store.Merge(r.SetPath, setstore.NewIdentitySet(record.Identity()))
}
