// Package benchmark implements the benchmark-validity filter stage. For each
// candidate it fetches the repository's page from the benchmark site and
// counts qualifying rows in the expected results table. Candidates with at
// least one qualifying row pass; everything else is blacklisted, except
// credential failures and exhausted retries which are skipped for the run
// unless BlacklistOnError is set.
package benchmark
