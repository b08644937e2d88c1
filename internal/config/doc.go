// Package config loads, normalizes, and validates voxnote configuration data.
//
// It supplies defaults, resolves relative paths against the directory that
// holds the config file, reads TOML (or legacy YAML) files, loads an optional
// .env file next to the config, and honours environment overrides such as
// VOXNOTE_LLM_MODEL. The Config type centralizes every knob the pipeline and
// CLI need, including the state directory where ledgers and caches live.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical extensions, and clear validation errors.
package config
