// Package logging assembles structured slog loggers and formatting helpers
// used across the commentary collection tool.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so phase code can tag log lines
// with item IDs, phases, batch numbers, and run IDs. The package also provides
// a no-op logger for tests and a time-based progress sampler.
package logging
