package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"reposift/internal/candidate"
	"reposift/internal/journal"
	"reposift/internal/logging"
	"reposift/internal/ranking"
	"reposift/internal/services"
	"reposift/internal/setstore"
	"reposift/internal/stage"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another run is in progress")

// Settings is the immutable configuration of a pipeline.
type Settings struct {
	Query         string
	OwnedPath     string
	GreenListPath string
	// DispositionPaths are the stage rejection sets folded into the
	// ignore-set, including sets of stages disabled for this run.
	DispositionPaths []string
	LockPath         string
}

// Source produces raw candidates for a query, leaving out excluded
// identities where it can.
type Source interface {
	Search(ctx context.Context, query string, exclude candidate.Excluder) ([]candidate.RawItem, error)
}

// Journal records completed runs.
type Journal interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Pipeline wires a source, stages, and the durable store together.
type Pipeline struct {
	settings Settings
	source   Source
	stages   []stage.Stage
	store    *setstore.Store
	journal  Journal
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Pipeline. journal may be nil.
func New(settings Settings, source Source, stages []stage.Stage, store *setstore.Store, j Journal, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		settings: settings,
		source:   source,
		stages:   stages,
		store:    store,
		journal:  j,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		now:      time.Now,
	}
}

// Run executes one pass. The returned Summary is populated as far as the
// run got, even when an error is returned.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), StartedAt: p.now()}

	unlock, err := p.acquireLock()
	if err != nil {
		return summary, err
	}
	defer unlock()

	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("pipeline run started", logging.String("query", p.settings.Query))

	runErr := p.run(ctx, logger, &summary)
	summary.FinishedAt = p.now()
	p.record(ctx, logger, summary, runErr)

	if runErr != nil {
		logging.ErrorWithContext(logger, "pipeline run failed", "pipeline_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "check permissions and free space in the data directory"),
		)
		return summary, runErr
	}
	logger.Info("pipeline run complete",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("fetched", summary.Fetched),
		logging.Int("new_candidates", summary.NewCandidates),
		logging.Int("accepted", summary.Accepted),
		logging.Int("green_total", summary.GreenTotal),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, summary *Summary) error {
	owned := p.store.Load(p.settings.OwnedPath)
	dispositions := make([]setstore.IdentitySet, 0, len(p.settings.DispositionPaths))
	for _, path := range p.settings.DispositionPaths {
		dispositions = append(dispositions, p.store.Load(path))
	}

	previous := p.store.LoadRecords(p.settings.GreenListPath)
	green, removed := ranking.Reconcile(previous, owned)
	summary.Previous = len(previous)
	summary.Reconciled = removed
	if removed > 0 {
		logger.Info("removed owned entries from green list", logging.Int("removed", removed))
	}

	ignore := owned.Union(dispositions...).Union(setstore.NewIdentitySet(candidate.Identities(previous)...))
	summary.Ignored = ignore.Len()

	raw, err := p.source.Search(ctx, p.settings.Query, ignore)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.SourceErr = err
		logging.WarnWithContext(logger, "upstream search failed; continuing with no new candidates", "search_failed",
			logging.Error(err),
			logging.Int("discarded", len(raw)),
			logging.String(logging.FieldErrorHint, "check network access and the github token"),
			logging.String(logging.FieldImpact, "no new candidates this run"),
		)
		raw = nil
	}
	summary.Fetched = len(raw)

	survivors := candidate.Normalize(raw, ignore)
	summary.NewCandidates = len(survivors)

	for _, st := range p.stages {
		if len(survivors) == 0 {
			break
		}
		result, err := st.Apply(ctx, survivors)
		if result.Stage == "" {
			result.Stage = st.Name()
		}
		summary.Stages = append(summary.Stages, result)
		if err != nil {
			return fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		survivors = result.Accepted
	}
	summary.Accepted = len(survivors)

	final := ranking.Merge(green, survivors)
	if err := p.store.ReplaceRecords(p.settings.GreenListPath, final); err != nil {
		return services.Wrap(services.ErrPersistence, "pipeline", "write green list", p.settings.GreenListPath, err)
	}
	summary.GreenTotal = len(final)
	return nil
}

func (p *Pipeline) acquireLock() (func(), error) {
	if p.settings.LockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(p.settings.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(p.settings.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunInProgress, p.settings.LockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, summary Summary, runErr error) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Record(context.WithoutCancel(ctx), summary.JournalEntry(p.settings.Query, runErr)); err != nil {
		logging.WarnWithContext(logger, "failed to record run in journal", "journal_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is missing from history"),
		)
	}
}
