// Package main hosts the commentarycollection CLI entrypoint and command
// graph.
//
// The Cobra command tree resolves configuration (file, environment, then
// flags), builds the structured logger and Plex client, and hands off to
// internal/workflow for scans. Smaller commands list library sections,
// manage the discovery ignore list, show the run history ledger and scaffold
// a configuration file.
package main
