// Package preflight provides readiness checks for the filesystem paths and
// external services reposift depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before the pipeline starts and logs any
//     failures; a failed check does not stop the run.
//   - The CLI "reposift check" command renders every result.
//
// Checks for disabled stages are skipped.
package preflight
