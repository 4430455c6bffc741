// Package discovery nominates items that probably carry an unlabelled
// commentary track and records what the operator decided about each one.
//
// Eligibility is evaluated per media version: a version qualifies when it has
// at least two audio tracks, more than one of them English or untagged, and
// (with the channel filter on) at least one stereo track. How an answer is
// obtained is left to a Decider so the same loop runs against a console, a
// scripted answer list or a report-only pass.
package discovery
