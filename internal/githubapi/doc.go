// Package githubapi wraps the GitHub REST API as the upstream candidate
// source (repository search) and the language-breakdown oracle used by the
// language stage. Search pages and language lookups share one token-bucket
// limiter and every call retries rate limits and server errors with backoff.
package githubapi
