package benchmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reposift/internal/fetcher"
	"reposift/internal/services"
)

var (
	tableClasses = []string{"bg-white", "divide-y", "divide-gray-200"}
	rowClasses   = []string{"hover:bg-gray-50", "cursor-pointer"}
)

// PageFetcher is the subset of fetcher.Fetcher the stage relies on.
type PageFetcher interface {
	Fetch(ctx context.Context, target string, headers http.Header) (*fetcher.Response, error)
	Pace(ctx context.Context, last bool) error
}

// Checker queries the benchmark site for a repository.
type Checker struct {
	baseURL      string
	filterParams string
	headers      http.Header
	pages        PageFetcher
}

// NewChecker builds a Checker. token is sent as a bearer token and cookie as
// a Cookie header when non-empty.
func NewChecker(baseURL, filterParams, token, cookie string, pages PageFetcher) (*Checker, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "benchmark", "new checker", "base url is required", nil)
	}
	if pages == nil {
		return nil, errors.New("benchmark: page fetcher is required")
	}
	headers := http.Header{}
	headers.Set("Accept", "text/html,application/xhtml+xml")
	if token = strings.TrimSpace(token); token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}
	if cookie = strings.TrimSpace(cookie); cookie != "" {
		headers.Set("Cookie", cookie)
	}
	return &Checker{
		baseURL:      baseURL,
		filterParams: strings.TrimSpace(filterParams),
		headers:      headers,
		pages:        pages,
	}, nil
}

// Authenticated reports whether the checker sends credentials.
func (c *Checker) Authenticated() bool {
	return c.headers.Get("Authorization") != "" || c.headers.Get("Cookie") != ""
}

// LookupKey converts an owner/name into the benchmark site's key.
func LookupKey(fullName string) string {
	return strings.ReplaceAll(strings.TrimSpace(fullName), "/", "__")
}

// URL returns the page address for a repository.
func (c *Checker) URL(fullName string) string {
	return c.baseURL + LookupKey(fullName) + c.filterParams
}

// Check fetches the repository page and returns the number of qualifying
// rows. A page without the results table yields ErrStructureMismatch.
func (c *Checker) Check(ctx context.Context, fullName string) (int, error) {
	resp, err := c.pages.Fetch(ctx, c.URL(fullName), c.headers)
	if err != nil {
		return 0, err
	}
	return CountRows(resp.Body)
}

// CountRows parses an HTML page and counts qualifying rows in the results
// table.
func CountRows(page []byte) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return 0, services.Wrap(services.ErrStructureMismatch, "benchmark", "parse page", "", err)
	}
	table := doc.Find("tbody").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return hasClasses(s, tableClasses)
	}).First()
	if table.Length() == 0 {
		return 0, services.Wrap(services.ErrStructureMismatch, "benchmark", "parse page",
			fmt.Sprintf("no tbody.%s", strings.Join(tableClasses, ".")), nil)
	}
	rows := table.Find("tr").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return hasClasses(s, rowClasses)
	})
	return rows.Length(), nil
}

func hasClasses(s *goquery.Selection, classes []string) bool {
	for _, class := range classes {
		if !s.HasClass(class) {
			return false
		}
	}
	return true
}
