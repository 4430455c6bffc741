package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizePlex()
	c.normalizeCollection()
	if err := c.normalizeDiscovery(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	return nil
}

// applyEnv lets PLEX_TOKEN and PLEX_URL replace file values when set.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("PLEX_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Plex.Token = value
	}
	if value, ok := os.LookupEnv("PLEX_URL"); ok && strings.TrimSpace(value) != "" {
		c.Plex.URL = value
	}
}

func (c *Config) normalizePlex() {
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	if c.Plex.URL == "" {
		c.Plex.URL = defaultPlexURL
	}
	c.Plex.Section = strings.TrimSpace(c.Plex.Section)
	if c.Plex.Section == "" {
		c.Plex.Section = defaultPlexSection
	}
	if c.Plex.TimeoutSeconds <= 0 {
		c.Plex.TimeoutSeconds = defaultPlexTimeoutSeconds
	}
}

func (c *Config) normalizeCollection() {
	c.Collection.Name = strings.TrimSpace(c.Collection.Name)
	c.Collection.Keywords = NormalizeKeywords(c.Collection.Keywords)
}

// NormalizeKeywords trims, drops empties, and removes case-insensitive
// duplicates while keeping first-seen order and spelling.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, keyword := range keywords {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func (c *Config) normalizeDiscovery() error {
	var err error
	if strings.TrimSpace(c.Discovery.IgnorePath) == "" {
		c.Discovery.IgnorePath = defaultIgnorePath()
	}
	if c.Discovery.IgnorePath, err = expandPath(c.Discovery.IgnorePath); err != nil {
		return fmt.Errorf("discovery.ignore_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath()
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
