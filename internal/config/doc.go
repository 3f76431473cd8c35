// Package config loads, normalizes, and validates videoforge configuration.
//
// Settings come from a TOML file (see CreateSample) and may be overridden by
// VIDEOFORGE_* environment variables. Durations accept Go duration strings
// ("2s", "500ms") and sizes accept human strings ("200MB").
//
// Always obtain settings through Load so downstream code receives expanded
// paths and clear validation errors.
package config
