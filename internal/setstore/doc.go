// Package setstore persists disposition sets (JSON arrays of identities) and
// the green list (a JSON array of candidate records).
//
// Loads are tolerant: a missing, empty, unreadable, or malformed file yields an
// empty value and a warning. Set writes merge with what is already on disk so
// sets only grow; the green list is replaced wholesale. Every write goes
// through a temp file and rename.
package setstore
