// Package config loads, normalizes, and validates Sentinel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML (or YAML) files, and honours the environment variables
// the original container deployment used (GRAYLOG_API_URL, OLLAMA_HOST,
// CHECK_INTERVAL_SECONDS, ...) as fallbacks for fields the file leaves empty.
// The Config type centralizes every knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical URLs, and clear validation errors. A loaded Config
// is treated as immutable; components copy the values they need at
// construction time.
package config
