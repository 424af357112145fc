package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reposift/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckGitHub verifies the API is reachable and, when a token is set, that it
// is accepted. The rate_limit endpoint does not count against the quota.
func CheckGitHub(ctx context.Context, baseURL, token string) Result {
	const name = "GitHub API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/rate_limit", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	token = strings.TrimSpace(token)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload struct {
			Resources struct {
				Core struct {
					Limit     int `json:"limit"`
					Remaining int `json:"remaining"`
				} `json:"core"`
			} `json:"resources"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		core := payload.Resources.Core
		mode := "authenticated"
		if token == "" {
			mode = "unauthenticated"
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable, %s (%d/%d requests left)", mode, core.Remaining, core.Limit)}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckBenchmarkCredentials reports whether the benchmark stage has a page
// location and credentials.
func CheckBenchmarkCredentials(cfg config.Benchmark) Result {
	const name = "Benchmark site"

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	hasToken := strings.TrimSpace(cfg.Token) != ""
	hasCookie := strings.TrimSpace(cfg.Cookie) != ""
	switch {
	case hasToken && hasCookie:
		return Result{Name: name, Passed: true, Detail: "token and cookie configured"}
	case hasToken:
		return Result{Name: name, Passed: true, Detail: "token configured"}
	case hasCookie:
		return Result{Name: name, Passed: true, Detail: "cookie configured"}
	default:
		return Result{Name: name, Detail: "no token or cookie (set BENCHMARK_TOKEN or BENCHMARK_COOKIE)"}
	}
}
