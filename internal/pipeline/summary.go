package pipeline

import (
	"time"

	"reposift/internal/journal"
	"reposift/internal/stage"
)

// Summary reports the counts of one run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Previous is the green-list size before reconciliation.
	Previous int
	// Reconciled counts green entries dropped because they are now owned.
	Reconciled int
	// Ignored is the size of the ignore-set handed to the source.
	Ignored       int
	Fetched       int
	NewCandidates int
	Accepted      int
	GreenTotal    int
	Stages        []stage.Result
	// SourceErr is the upstream error, if the search failed.
	SourceErr error
}

// Skipped returns the number of candidates skipped across all stages.
func (s Summary) Skipped() int {
	total := 0
	for _, r := range s.Stages {
		total += len(r.Skipped)
	}
	return total
}

// JournalEntry converts the summary into a journal row.
func (s Summary) JournalEntry(query string, runErr error) journal.Entry {
	entry := journal.Entry{
		RunID:         s.RunID,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		Query:         query,
		Status:        journal.StatusSucceeded,
		Fetched:       s.Fetched,
		NewCandidates: s.NewCandidates,
		Reconciled:    s.Reconciled,
		Accepted:      s.Accepted,
		GreenTotal:    s.GreenTotal,
	}
	switch {
	case runErr != nil:
		entry.Status = journal.StatusFailed
		entry.Error = runErr.Error()
	case s.SourceErr != nil:
		entry.Status = journal.StatusDegraded
		entry.Error = s.SourceErr.Error()
	}
	for _, r := range s.Stages {
		entry.Stages = append(entry.Stages, journal.StageCounts{
			Stage:           r.Stage,
			Accepted:        len(r.Accepted),
			Rejected:        len(r.Rejected),
			Skipped:         len(r.Skipped),
			Known:           r.Known,
			PersistFailures: r.PersistFailures,
		})
	}
	return entry
}
