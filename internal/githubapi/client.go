package githubapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"reposift/internal/candidate"
	"reposift/internal/fetcher"
	"reposift/internal/logging"
	"reposift/internal/services"
)

// Options configures the client.
type Options struct {
	Token             string
	BaseURL           string
	PerPage           int
	StartPage         int
	EndPage           int
	RequestsPerMinute int
	Retry             RetryConfig

	// HTTPClient is the transport used for API calls; the token, when set,
	// is layered on top of it.
	HTTPClient *http.Client
	// Sleep overrides the retry wait, mainly for tests.
	Sleep func(context.Context, time.Duration) error
}

// Client talks to the GitHub API.
type Client struct {
	gh      *github.Client
	opts    Options
	limiter *rate.Limiter
	sleep   func(context.Context, time.Duration) error
	logger  *slog.Logger
}

// New builds a Client. Without a token requests are unauthenticated and
// subject to much lower rate limits.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	logger = logging.NewComponentLogger(logger, "github")

	httpClient := opts.HTTPClient
	if token := strings.TrimSpace(opts.Token); token != "" {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		logger.Debug("using github token for authentication")
	} else {
		logging.WarnWithContext(logger, "no github token configured", "github_unauthenticated",
			logging.String(logging.FieldErrorHint, "set github.token or export GITHUB_TOKEN"),
			logging.String(logging.FieldImpact, "requests are unauthenticated and subject to stricter rate limits"),
		)
	}

	gh := github.NewClient(httpClient)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "github", "parse base url", base, err)
		}
		gh.BaseURL = parsed
	}

	if opts.PerPage <= 0 || opts.PerPage > 100 {
		opts.PerPage = 100
	}
	if opts.StartPage <= 0 {
		opts.StartPage = 1
	}
	if opts.EndPage < opts.StartPage {
		opts.EndPage = opts.StartPage
	}
	opts.Retry.ApplyDefaults()

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = fetcher.SleepWithContext
	}

	return &Client{
		gh:      gh,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleep,
		logger:  logger,
	}, nil
}

// Search pages through repository search results for query, from StartPage
// to EndPage, stopping early at an empty or short page. Items whose identity
// is excluded are dropped. On a page error the items gathered so far are
// returned together with the error.
func (c *Client) Search(ctx context.Context, query string, exclude candidate.Excluder) ([]candidate.RawItem, error) {
	var items []candidate.RawItem
	excluded := 0
	for page := c.opts.StartPage; page <= c.opts.EndPage; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return items, err
		}
		var result *github.RepositoriesSearchResult
		opts := &github.SearchOptions{ListOptions: github.ListOptions{Page: page, PerPage: c.opts.PerPage}}
		_, err := c.retry(ctx, "search repositories", func() (*github.Response, error) {
			var resp *github.Response
			var err error
			result, resp, err = c.gh.Search.Repositories(ctx, query, opts)
			return resp, err
		})
		if err != nil {
			return items, fmt.Errorf("search page %d: %w", page, err)
		}

		repos := result.Repositories
		c.logger.Debug("fetched search page",
			logging.Int("page", page),
			logging.Int("items", len(repos)),
		)
		for _, repo := range repos {
			item := toRawItem(repo)
			if exclude != nil && exclude.Has(item.HTMLURL) {
				excluded++
				continue
			}
			items = append(items, item)
		}
		if len(repos) < c.opts.PerPage {
			break
		}
	}

	c.logger.Info("search complete",
		logging.String("query", query),
		logging.Int("items", len(items)),
		logging.Int("excluded", excluded),
	)
	return items, nil
}

// Languages returns the byte count per language for owner/name.
func (c *Client) Languages(ctx context.Context, fullName string) (map[string]int, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || repo == "" {
		return nil, services.Wrap(services.ErrPermanent, "github", "list languages",
			fmt.Sprintf("invalid repository name %q", fullName), nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var languages map[string]int
	_, err := c.retry(ctx, "list languages", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		languages, resp, err = c.gh.Repositories.ListLanguages(ctx, owner, repo)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return languages, nil
}

// Authenticated reports whether a token is configured.
func (c *Client) Authenticated() bool {
	return strings.TrimSpace(c.opts.Token) != ""
}

func toRawItem(repo *github.Repository) candidate.RawItem {
	item := candidate.RawItem{
		FullName:    repo.GetFullName(),
		HTMLURL:     repo.GetHTMLURL(),
		Stars:       repo.StargazersCount,
		Forks:       repo.ForksCount,
		Watchers:    repo.WatchersCount,
		OpenIssues:  repo.OpenIssuesCount,
		Language:    repo.Language,
		Description: repo.Description,
		CreatedAt:   timestamp(repo.CreatedAt),
		UpdatedAt:   timestamp(repo.UpdatedAt),
		PushedAt:    timestamp(repo.PushedAt),
	}
	if repo.License != nil && repo.License.Name != nil {
		name := repo.License.GetName()
		item.License = &name
	}
	return item
}

func timestamp(ts *github.Timestamp) *string {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	value := ts.Time.UTC().Format(time.RFC3339)
	return &value
}

// classify tags a final API error with the services markers.
func classify(operation string, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var marker error
	switch status := statusCode(resp); {
	case status == http.StatusUnauthorized:
		marker = services.ErrUnauthorized
	case status == http.StatusForbidden && !isRateLimited(resp):
		marker = services.ErrUnauthorized
	case status == http.StatusTooManyRequests, status >= 500, status == 0, isRateLimited(resp):
		marker = services.ErrTransient
	default:
		marker = services.ErrPermanent
	}
	return services.Wrap(marker, "github", operation, "", err)
}
