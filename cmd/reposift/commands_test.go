package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"reposift/internal/candidate"
	"reposift/internal/journal"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Languages stage: yes")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(path, []byte("[languages]\nthreshold = 120.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err == nil || !strings.Contains(err.Error(), "threshold") {
		t.Fatalf("expected threshold error, got %v", err)
	}
}

func TestGreenCommand(t *testing.T) {
	env := setupCLITestEnv(t, "")
	env.writeDataFile(t, "filtered_repos.json", `[
  {"full_name": "o/a", "html_url": "https://github.com/o/a", "stars": 10, "language": "Python", "description": "", "pushed_at": "2024-12-01T00:00:00Z", "language_percent": 91.5},
  {"full_name": "o/b", "html_url": "https://github.com/o/b", "stars": 5, "language": null, "description": ""}
]`)

	out, _, err := runCLI(t, []string{"green"}, env.configPath)
	if err != nil {
		t.Fatalf("green: %v", err)
	}
	requireContains(t, out, "o/a")
	requireContains(t, out, "91.50")
	requireContains(t, out, "o/b")

	out, _, err = runCLI(t, []string{"green", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("green --json: %v", err)
	}
	var records []candidate.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].FullName != "o/a" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestGreenCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, []string{"green", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("green --json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty array, got %q", out)
	}
}

func TestSetsCommands(t *testing.T) {
	env := setupCLITestEnv(t, "")
	env.writeDataFile(t, "repos_list.json", `["https://github.com/o/a"]`)

	out, _, err := runCLI(t, []string{"sets", "add", "owned", "https://github.com/o/c", "https://github.com/o/a"}, env.configPath)
	if err != nil {
		t.Fatalf("sets add: %v", err)
	}
	requireContains(t, out, "Added 1 new identities to owned (2 total)")

	out, _, err = runCLI(t, []string{"sets"}, env.configPath)
	if err != nil {
		t.Fatalf("sets: %v", err)
	}
	requireContains(t, out, "owned")
	requireContains(t, out, "language-rejected")

	out, _, err = runCLI(t, []string{"sets", "show", "owned"}, env.configPath)
	if err != nil {
		t.Fatalf("sets show: %v", err)
	}
	if out != "https://github.com/o/a\nhttps://github.com/o/c\n" {
		t.Fatalf("unexpected identities %q", out)
	}

	if _, _, err := runCLI(t, []string{"sets", "show", "nope"}, env.configPath); err == nil {
		t.Fatal("expected unknown set error")
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func newFakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	repo := func(name string, stars int) map[string]any {
		return map[string]any{
			"full_name":        name,
			"html_url":         "https://github.com/" + name,
			"stargazers_count": stars,
			"pushed_at":        "2024-12-01T10:00:00Z",
		}
	}
	languages := map[string]map[string]int{
		"o/c": {"Python": 90, "Shell": 10},
		"o/d": {"Python": 10, "Go": 90},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count": 3,
			"items":       []map[string]any{repo("o/a", 1), repo("o/c", 3), repo("o/d", 4)},
		})
	})
	mux.HandleFunc("/repos/o/{name}/languages", func(w http.ResponseWriter, r *http.Request) {
		breakdown, ok := languages["o/"+r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(breakdown)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunCommandEndToEnd(t *testing.T) {
	server := newFakeGitHub(t)
	env := setupCLITestEnv(t, server.URL)
	env.writeDataFile(t, "repos_list.json", `["https://github.com/o/a"]`)

	out, _, err := runCLI(t, []string{"run", "--skip-preflight", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary summaryView
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Fetched != 2 || summary.NewCandidates != 2 || summary.Accepted != 1 || summary.GreenTotal != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Stages) != 1 || summary.Stages[0].Rejected != 1 {
		t.Fatalf("unexpected stage counts %+v", summary.Stages)
	}

	out, _, err = runCLI(t, []string{"sets", "show", "language-rejected"}, env.configPath)
	if err != nil {
		t.Fatalf("sets show: %v", err)
	}
	if out != "https://github.com/o/d\n" {
		t.Fatalf("unexpected rejected set %q", out)
	}

	out, _, err = runCLI(t, []string{"green", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("green: %v", err)
	}
	var records []candidate.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode green: %v", err)
	}
	if len(records) != 1 || records[0].FullName != "o/c" || records[0].LanguagePercent == nil || *records[0].LanguagePercent != 90 {
		t.Fatalf("unexpected green list %+v", records)
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []journal.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != journal.StatusSucceeded || entries[0].Accepted != 1 {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestRunCommandTablePrintsCounts(t *testing.T) {
	server := newFakeGitHub(t)
	env := setupCLITestEnv(t, server.URL)

	out, _, err := runCLI(t, []string{"run", "--skip-preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "New candidates")
	requireContains(t, out, "languages")
}

func TestRunCommandReportsHeldLockOnce(t *testing.T) {
	server := newFakeGitHub(t)
	env := setupCLITestEnv(t, server.URL)
	lockPath := filepath.Join(env.dataDir, "reposift.lock")
	if err := os.MkdirAll(env.dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(lockPath)
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer held.Unlock()

	out, _, err := runCLI(t, []string{"run", "--skip-preflight"}, env.configPath)
	if err == nil {
		t.Fatal("expected error while another run holds the lock")
	}
	if n := strings.Count(err.Error(), lockPath); n != 1 {
		t.Fatalf("lock path appears %d times in %q", n, err.Error())
	}
	if out != "" {
		t.Fatalf("expected no summary for a run that never started, got %q", out)
	}
}

func TestRunCommandCancelledStillPrintsSummary(t *testing.T) {
	server := newFakeGitHub(t)
	env := setupCLITestEnv(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "run", "--skip-preflight"})

	err := cmd.ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	requireContains(t, stdout.String(), "New candidates")
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("GitHub API", statusWarn, "rate limited", false)
	if line != "  GitHub API:            [WARN] rate limited" {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("x", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}
