// Package journal records one row per pipeline run, with per-stage counts, in
// a local SQLite database. The journal is informational: callers log journal
// failures and carry on.
package journal
