package stage

import (
	"context"

	"reposift/internal/candidate"
)

// Stage is one sequential validation step. Apply classifies every candidate
// as accepted, rejected, or skipped. Rejections are persisted by the stage
// before Apply returns. Apply only returns an error when ctx is done; the
// partial Result is still valid in that case.
type Stage interface {
	Name() string
	Apply(context.Context, []candidate.Record) (Result, error)
	HealthCheck(context.Context) Health
}
