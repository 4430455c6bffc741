// Package ignorelist persists the item ids an operator chose to ignore during
// commentary discovery.
//
// The file holds one rating key per line; blank lines and lines starting with
// '#' are skipped on read. Writes replace the file atomically while holding
// an advisory lock on "<path>.lock", so a concurrent run never observes a
// half-written list.
package ignorelist
