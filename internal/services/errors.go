package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransient         = errors.New("transient failure")
	ErrPermanent         = errors.New("permanent failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedState    = errors.New("malformed persisted state")
	ErrStructureMismatch = errors.New("expected structure not found")
	ErrConfiguration     = errors.New("configuration error")
	ErrPersistence       = errors.New("persistence failure")
)

// FailureKind groups per-candidate failures by how a stage should treat them.
type FailureKind string

const (
	// FailureTransient failures may succeed on a later run and are never persisted.
	FailureTransient FailureKind = "transient"
	// FailureUnauthorized failures come from credentials rather than the candidate.
	FailureUnauthorized FailureKind = "unauthorized"
	// FailurePermanent failures describe the candidate itself.
	FailurePermanent FailureKind = "permanent"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a per-candidate error to the failure kind a stage uses to
// decide between skipping and rejecting the candidate.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return FailureUnauthorized
	case errors.Is(err, ErrPermanent), errors.Is(err, ErrStructureMismatch):
		return FailurePermanent
	default:
		return FailureTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
