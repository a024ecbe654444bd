// Package config loads, normalizes, and validates inkreel's process-level
// configuration.
//
// It supplies built-in defaults, expands user paths (including tilde
// shortcuts), reads a TOML file if one exists, and leaves provider API keys
// out of the picture entirely — those are read straight from the environment
// by the provider registry. The Config type centralizes the knobs the CLI and
// watcher need: working directories, retry/timeout tuning, and the default
// stage settings a new job's Configuration snapshot is built from.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
