// Package logging builds the slog loggers used across reposift.
//
// Two handlers are available: a JSON handler with short keys for machine
// consumption and a console handler that prefixes each line with the
// component and stage and leads with the candidate under evaluation.
// WithContext copies the run id, stage, and correlation id carried by a
// context onto a logger.
package logging
