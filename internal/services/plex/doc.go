// Package plex is the remote item source: a small JSON client for the Plex
// library endpoints used to inventory a section and rewrite collection tags.
//
// Every request carries the X-Plex-Token and runs under a Retrier that
// repeats transport and server failures (3 attempts, 1s apart) and gives up
// immediately on auth or decode failures. Errors are tagged with the
// services markers so callers can decide whether to abort the run or skip a
// single batch or item.
package plex
