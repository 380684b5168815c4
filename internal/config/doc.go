// Package config loads, normalizes, and validates histoflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HISTOFLOW_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need, allowing data directories, bench layout, and event fan-out targets
// to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
