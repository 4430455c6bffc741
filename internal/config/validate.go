package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateCollection(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePlex() error {
	if c.Plex.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/" + appName + "/config.toml"
		}
		return fmt.Errorf("plex.token is required. Set PLEX_TOKEN env var or edit %s (create with '%s config init')", defaultPath, appName)
	}
	parsed, err := url.Parse(c.Plex.URL)
	if err != nil {
		return fmt.Errorf("plex.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("plex.url must use http or https, got %q", c.Plex.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("plex.url must include a host, got %q", c.Plex.URL)
	}
	if c.Plex.Section == "" {
		return errors.New("plex.section must be set")
	}
	return nil
}

func (c *Config) validateCollection() error {
	if strings.TrimSpace(c.Collection.Name) == "" {
		return errors.New("collection.name must be set")
	}
	if len(c.Collection.Keywords) == 0 {
		return errors.New("collection.keywords must include at least one keyword")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}
