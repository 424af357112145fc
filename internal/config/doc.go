// Package config loads, normalizes, and validates reposift configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GITHUB_TOKEN and BENCHMARK_COOKIE. Disposition file names are resolved
// against the data directory so every durable set lives in one place.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
