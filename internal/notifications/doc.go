// Package notifications publishes scan results to ntfy.
//
// A topic URL in config.toml enables delivery; without one NewService returns
// a no-op so callers never need to check. Messages are plain text with ntfy
// Title/Tags/Priority headers.
package notifications
