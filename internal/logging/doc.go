// Package logging assembles structured slog loggers and formatting helpers used
// across storyboard.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so batch and generation code can
// tag log lines with row IDs, operation names, and batch IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
