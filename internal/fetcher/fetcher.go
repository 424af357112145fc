package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"reposift/internal/logging"
	"reposift/internal/services"
)

const (
	defaultUserAgent = "reposift/dev"
	maxBodyBytes     = 16 << 20
)

// Options configures a Fetcher. Zero durations disable the corresponding wait.
type Options struct {
	MaxRetries     int
	BackoffFactor  float64
	MaxBackoff     time.Duration
	RetryStatuses  []int
	MinDelay       time.Duration
	MaxDelay       time.Duration
	MaxConsecutive int
	LongPause      time.Duration
	RequestTimeout time.Duration
	UserAgents     []string

	// HTTPClient overrides the default client built from RequestTimeout.
	HTTPClient *http.Client
	// Sleep overrides SleepWithContext, mainly for tests.
	Sleep func(context.Context, time.Duration) error
	// Rand overrides the package-level random source.
	Rand *rand.Rand
}

// Response is a fully read successful response.
type Response struct {
	StatusCode int
	URL        string
	Header     http.Header
	Body       []byte
	Attempts   int
}

// Fetcher performs rate-limited page fetches.
type Fetcher struct {
	opts   Options
	client *http.Client
	sleep  func(context.Context, time.Duration) error
	logger *slog.Logger

	mu          sync.Mutex
	rng         *rand.Rand
	consecutive int
}

// New constructs a Fetcher.
func New(opts Options, logger *slog.Logger) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.RequestTimeout}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Fetcher{
		opts:   opts,
		client: client,
		sleep:  sleep,
		rng:    opts.Rand,
		logger: logging.NewComponentLogger(logger, "fetcher"),
	}
}

// Fetch performs one logical GET request, retrying configured statuses and
// network failures with exponential backoff.
func (f *Fetcher) Fetch(ctx context.Context, target string, headers http.Header) (*Response, error) {
	if f == nil {
		return nil, errors.New("fetcher: nil fetcher")
	}
	attempts := f.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := f.backoff(attempt-1, lastErr)
			f.logger.Debug("retrying request",
				logging.String("url", target),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", wait),
				logging.Error(lastErr),
			)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		resp, retry, err := f.attempt(ctx, target, headers, attempt)
		if err == nil {
			f.mu.Lock()
			f.consecutive++
			f.mu.Unlock()
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if !retry {
			break
		}
	}

	f.mu.Lock()
	f.consecutive = 0
	f.mu.Unlock()

	var httpErr *HTTPError
	if errors.As(lastErr, &httpErr) {
		return nil, httpErr
	}
	return nil, services.Wrap(services.ErrTransient, "fetcher", "fetch",
		fmt.Sprintf("giving up on %s after %d attempts", target, attempts), lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, target string, headers http.Header, attempt int) (*Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, services.Wrap(services.ErrPermanent, "fetcher", "build request", target, err)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("User-Agent", f.userAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, URL: target, Attempts: attempt}
		return nil, f.retryable(resp.StatusCode), &retryAfterError{HTTPError: httpErr, after: retryAfter(resp.Header)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		URL:        target,
		Header:     resp.Header.Clone(),
		Body:       body,
		Attempts:   attempt,
	}, false, nil
}

func (f *Fetcher) retryable(status int) bool {
	return slices.Contains(f.opts.RetryStatuses, status)
}

// backoff returns BackoffFactor * 2^(retry-1) seconds, raised to any
// Retry-After hint and capped at MaxBackoff.
func (f *Fetcher) backoff(retry int, lastErr error) time.Duration {
	seconds := f.opts.BackoffFactor * math.Pow(2, float64(retry-1))
	wait := time.Duration(seconds * float64(time.Second))
	var hinted *retryAfterError
	if errors.As(lastErr, &hinted) && hinted.after > wait {
		wait = hinted.after
	}
	if f.opts.MaxBackoff > 0 && wait > f.opts.MaxBackoff {
		wait = f.opts.MaxBackoff
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (f *Fetcher) userAgent() string {
	if len(f.opts.UserAgents) == 0 {
		return defaultUserAgent
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.UserAgents[f.intN(len(f.opts.UserAgents))]
}

// intN and float64 must be called with mu held.
func (f *Fetcher) intN(n int) int {
	if f.rng != nil {
		return f.rng.IntN(n)
	}
	return rand.IntN(n)
}

func (f *Fetcher) float64() float64 {
	if f.rng != nil {
		return f.rng.Float64()
	}
	return rand.Float64()
}

// retryAfterError carries a server-provided Retry-After hint alongside the
// HTTP error.
type retryAfterError struct {
	*HTTPError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.HTTPError }

func retryAfter(header http.Header) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
