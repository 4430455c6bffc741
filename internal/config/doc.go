// Package config loads, normalizes, and validates configuration data.
//
// It supplies repository defaults, resolves XDG locations for the config file,
// ignore list, and run history, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the PLEX_TOKEN and PLEX_URL
// environment overrides.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, normalized keywords, and clear validation errors.
package config
