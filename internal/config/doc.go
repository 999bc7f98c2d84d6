// Package config loads, normalizes, and validates hackyplayer configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HACKYPLAYER_NTFY_TOPIC. The Config type centralizes every knob the daemon,
// the pipelines, and the CLI need: output/temp/log directories, external tool
// binaries, the fixed build parameters, watch folders, and worker timing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
