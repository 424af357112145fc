// Package services defines shared utilities consumed by the filter stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper and Classify, which let a
//     stage decide whether a failed candidate is rejected durably or skipped
//     until the next run.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
