package services_test

import (
	"errors"
	"strings"
	"testing"

	"reposift/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrPersistence, "pipeline", "save green list", "write failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"pipeline", "save green list", "write failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.FailureKind
	}{
		{"unauthorized", services.Wrap(services.ErrUnauthorized, "benchmark", "fetch", "401", nil), services.FailureUnauthorized},
		{"permanent", services.Wrap(services.ErrPermanent, "benchmark", "fetch", "404", nil), services.FailurePermanent},
		{"structure", services.ErrStructureMismatch, services.FailurePermanent},
		{"transient", services.Wrap(services.ErrTransient, "benchmark", "fetch", "503", nil), services.FailureTransient},
		{"unknown", errors.New("connection reset"), services.FailureTransient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}
