// Package services defines shared utilities consumed by the run phases and the
// Plex integration.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, phase names, batch numbers, and run
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers decide
//     between retrying, skipping a unit, or aborting the run.
//
// Use these helpers when wiring new phase logic so error handling and
// observability stay uniform across the run.
package services
