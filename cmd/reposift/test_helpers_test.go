package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	configPath string
}

// setupCLITestEnv writes a config rooted in a temp directory. githubURL may be
// empty when the command under test never talks to the API.
func setupCLITestEnv(t *testing.T, githubURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("GITHUB_TOKEN", "")

	if githubURL == "" {
		githubURL = "http://127.0.0.1:1/"
	}
	env := &cliTestEnv{
		baseDir:    base,
		dataDir:    filepath.Join(base, "data"),
		configPath: filepath.Join(base, "reposift.toml"),
	}
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[search]
query = "language:Python"
per_page = 10
start_page = 1
end_page = 1
requests_per_minute = 600

[github]
base_url = %q

[languages]
enabled = true
target = "Python"
threshold = 75.0

[fetcher]
min_delay_seconds = 0
max_delay_seconds = 0
long_pause_seconds = 0

[logging]
level = "error"
`, env.dataDir, filepath.Join(base, "logs"), githubURL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) dataFile(name string) string {
	return filepath.Join(e.dataDir, name)
}

func (e *cliTestEnv) writeDataFile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.MkdirAll(e.dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	if err := os.WriteFile(e.dataFile(name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
