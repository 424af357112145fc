package candidate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// RawItem is a repository as returned by the upstream search. Any field the
// source omitted is nil.
type RawItem struct {
	FullName    string
	HTMLURL     string
	Stars       *int
	Forks       *int
	Watchers    *int
	OpenIssues  *int
	Language    *string
	Description *string
	CreatedAt   *string
	UpdatedAt   *string
	PushedAt    *string
	License     *string
}

// Record is the canonical candidate persisted in the green list. HTMLURL is
// the identity and never changes once assigned. The annotation fields are set
// by stages and are only ever added.
type Record struct {
	FullName    string  `json:"full_name"`
	HTMLURL     string  `json:"html_url"`
	Stars       *int    `json:"stars"`
	Forks       *int    `json:"forks"`
	Watchers    *int    `json:"watchers"`
	OpenIssues  *int    `json:"open_issues"`
	Language    *string `json:"language"`
	Description string  `json:"description"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
	PushedAt    *string `json:"pushed_at"`
	License     *string `json:"license"`

	LanguagePercent  *float64 `json:"language_percent,omitempty"`
	BenchmarkMatches *int     `json:"benchmark_match_count,omitempty"`
}

// Identity returns the record's deduplication key.
func (r Record) Identity() string {
	return strings.TrimSpace(r.HTMLURL)
}

// Repository returns the owner/name of the record, deriving it from the
// identity URL when FullName is empty.
func (r Record) Repository() (string, error) {
	if name := strings.TrimSpace(r.FullName); name != "" {
		return name, nil
	}
	parsed, err := url.Parse(r.Identity())
	if err != nil {
		return "", fmt.Errorf("parse identity %q: %w", r.Identity(), err)
	}
	name := strings.Trim(parsed.Path, "/")
	if name == "" || strings.Count(name, "/") != 1 {
		return "", errors.New("identity does not name an owner/repository")
	}
	return name, nil
}

// StarCount returns the star count, treating a missing value as zero.
func (r Record) StarCount() int {
	if r.Stars == nil {
		return 0
	}
	return *r.Stars
}

// WithLanguagePercent returns a copy annotated with the measured language share.
func (r Record) WithLanguagePercent(percent float64) Record {
	r.LanguagePercent = &percent
	return r
}

// WithBenchmarkMatches returns a copy annotated with the benchmark match count.
func (r Record) WithBenchmarkMatches(count int) Record {
	r.BenchmarkMatches = &count
	return r
}

// Identities returns the identities of records in order.
func Identities(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.Identity())
	}
	return out
}
