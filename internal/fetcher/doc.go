// Package fetcher issues outbound page requests with bounded retries,
// exponential backoff, user-agent rotation, and a courtesy throttle that
// spaces logical requests with random delays and periodic long pauses.
//
// A Fetcher is owned by a single stage for the duration of a run. Fetch
// performs one logical request (including its retries); Pace is called by
// the caller after each logical request so that delays are applied between
// items rather than between retry attempts.
package fetcher
