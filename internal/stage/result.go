package stage

import (
	"reposift/internal/candidate"
	"reposift/internal/setstore"
)

// Verdict is the outcome of evaluating one candidate.
type Verdict int

const (
	// Accept passes the candidate to the next stage.
	Accept Verdict = iota
	// Reject records the candidate in the stage's durable set.
	Reject
	// Skip drops the candidate for this run without classifying it.
	Skip
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// Outcome is the verdict for a single candidate. Record carries any
// annotations added by the stage.
type Outcome struct {
	Verdict Verdict
	Record  candidate.Record
	Reason  string
	Err     error
}

// Skipped describes a candidate dropped for this run only.
type Skipped struct {
	Record candidate.Record
	Reason string
	Err    error
}

// Result partitions the candidates given to a stage.
type Result struct {
	Stage    string
	Accepted []candidate.Record
	Rejected []candidate.Record
	Skipped  []Skipped
	// Known counts candidates dropped because the stage had already
	// rejected them in an earlier run.
	Known int
	// PersistFailures counts rejections that could not be written.
	PersistFailures int
}

// RejectedIdentities returns the identities rejected in this result.
func (r Result) RejectedIdentities() setstore.IdentitySet {
	return setstore.NewIdentitySet(candidate.Identities(r.Rejected)...)
}
