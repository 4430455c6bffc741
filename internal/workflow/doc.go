// Package workflow runs one scan end to end.
//
// A Runner checks connectivity by resolving the configured library section,
// lists its items, fetches metadata in batches of at most 50 keys strictly in
// listing order, classifies every item into a catalog.State and reconciles
// the commentary collection. When discovery is enabled it then surfaces
// likely candidates, adds the accepted ones through the same reconciler and
// flushes the ignore list once. Failures of a single batch or item are
// logged and counted; only the initial connectivity check and the section
// listing abort a run. Every run yields a Summary, even a failed one.
package workflow
