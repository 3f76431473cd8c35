// Package logging assembles structured slog loggers and formatting helpers used
// across videoforge.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scheduler and API code can
// tag log lines with task IDs, video IDs and correlation IDs. A no-op logger
// is provided for tests and wiring code that cannot fail.
package logging
