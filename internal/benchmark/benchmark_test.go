package benchmark

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"reposift/internal/candidate"
	"reposift/internal/fetcher"
	"reposift/internal/services"
	"reposift/internal/setstore"
)

const passingPage = `<html><body><table>
<tbody class="bg-white divide-y divide-gray-200">
  <tr class="hover:bg-gray-50 cursor-pointer"><td>batch 1</td></tr>
  <tr class="hover:bg-gray-50 cursor-pointer"><td>batch 2</td></tr>
  <tr class="header"><td>ignored</td></tr>
</tbody></table></body></html>`

const emptyTablePage = `<table><tbody class="bg-white divide-y divide-gray-200"></tbody></table>`

const noTablePage = `<html><body><p>nothing here</p></body></html>`

func TestCountRows(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		want     int
		mismatch bool
	}{
		{name: "rows", page: passingPage, want: 2},
		{name: "empty table", page: emptyTablePage, want: 0},
		{name: "no table", page: noTablePage, mismatch: true},
		{name: "wrong table class", page: `<table><tbody class="bg-white"><tr class="hover:bg-gray-50 cursor-pointer"></tr></tbody></table>`, mismatch: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountRows([]byte(tt.page))
			if tt.mismatch {
				if !errors.Is(err, services.ErrStructureMismatch) {
					t.Fatalf("expected structure mismatch, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("CountRows = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestLookupKeyAndURL(t *testing.T) {
	if got := LookupKey("owner/repo"); got != "owner__repo" {
		t.Fatalf("LookupKey = %q", got)
	}
	c, err := NewChecker("https://bench.example/repos/", "?status=valid", "", "", &fetcher.Fetcher{})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.URL("owner/repo"); got != "https://bench.example/repos/owner__repo?status=valid" {
		t.Fatalf("URL = %q", got)
	}
}

func TestNewCheckerRequiresBaseURL(t *testing.T) {
	if _, err := NewChecker(" ", "", "", "", &fetcher.Fetcher{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type harness struct {
	stage  *Stage
	store  *setstore.Store
	path   string
	sleeps []time.Duration
}

func newHarness(t *testing.T, handler http.HandlerFunc, opts Options) *harness {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	h := &harness{store: setstore.New(nil), path: filepath.Join(t.TempDir(), "blacklist.json")}
	pages := fetcher.New(fetcher.Options{
		MaxRetries:     1,
		RetryStatuses:  []int{503},
		MinDelay:       time.Second,
		MaxDelay:       time.Second,
		MaxConsecutive: 100,
		Sleep: func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
	}, nil)
	checker, err := NewChecker(server.URL+"/repos/", "?f=1", "tok", "session=abc", pages)
	if err != nil {
		t.Fatal(err)
	}
	opts.SetPath = h.path
	h.stage = New(opts, checker, h.store, nil)
	return h
}

func rec(name string) candidate.Record {
	return candidate.Record{FullName: name, HTMLURL: "https://github.com/" + name}
}

func TestStageClassifiesCandidates(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("Cookie") != "session=abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("f") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/repos/") {
		case "o__pass":
			_, _ = w.Write([]byte(passingPage))
		case "o__empty":
			_, _ = w.Write([]byte(emptyTablePage))
		case "o__plain":
			_, _ = w.Write([]byte(noTablePage))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, Options{})

	result, err := h.stage.Apply(context.Background(), []candidate.Record{
		rec("o/pass"), rec("o/empty"), rec("o/plain"), rec("o/missing"),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Accepted) != 1 || *result.Accepted[0].BenchmarkMatches != 2 {
		t.Fatalf("accepted = %+v", result.Accepted)
	}
	wantRejected := []string{"https://github.com/o/empty", "https://github.com/o/plain", "https://github.com/o/missing"}
	if got := candidate.Identities(result.Rejected); !slices.Equal(got, wantRejected) {
		t.Fatalf("rejected = %v", got)
	}
	if got := h.store.Load(h.path).Sorted(); len(got) != 3 {
		t.Fatalf("blacklist = %v", got)
	}
	// One delay between each of the four candidates, none after the last.
	if len(h.sleeps) != 3 {
		t.Fatalf("expected 3 pacing delays, got %v", h.sleeps)
	}
}

func TestStageSkipsAuthFailuresByDefault(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, Options{})

	result, err := h.stage.Apply(context.Background(), []candidate.Record{rec("o/a")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Skipped) != 1 || len(result.Rejected) != 0 {
		t.Fatalf("expected skip, got %+v", result)
	}
	if h.store.Load(h.path).Len() != 0 {
		t.Fatal("auth failure must not be blacklisted")
	}
}

func TestStageSkipsExhaustedTransientFailures(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Options{})

	result, err := h.stage.Apply(context.Background(), []candidate.Record{rec("o/a")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected skip, got %+v", result)
	}
}

func TestStageBlacklistOnErrorConflatesFailures(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, Options{BlacklistOnError: true})

	result, err := h.stage.Apply(context.Background(), []candidate.Record{rec("o/a")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("expected rejection, got %+v", result)
	}
	if !h.store.Load(h.path).Has("https://github.com/o/a") {
		t.Fatal("expected blacklisted identity")
	}
}

func TestHealthCheckWithoutChecker(t *testing.T) {
	s := New(Options{}, nil, setstore.New(nil), nil)
	if s.HealthCheck(context.Background()).Ready {
		t.Fatal("expected not ready without checker")
	}
	if _, err := s.Apply(context.Background(), nil); err == nil {
		t.Fatal("expected error applying unconfigured stage")
	}
}
