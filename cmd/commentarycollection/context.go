package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"commentarycollection/internal/config"
	"commentarycollection/internal/logging"
	"commentarycollection/internal/services/plex"
)

type globalFlags struct {
	configPath string
	verbose    bool
	url        string
	token      string
	section    string
	collection string
	keywords   []string
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.configPath), c.flags.override)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// override applies flags that were set on the command line.
func (f *globalFlags) override(cfg *config.Config) {
	if v := strings.TrimSpace(f.url); v != "" {
		cfg.Plex.URL = v
	}
	if v := strings.TrimSpace(f.token); v != "" {
		cfg.Plex.Token = v
	}
	if v := strings.TrimSpace(f.section); v != "" {
		cfg.Plex.Section = v
	}
	if v := strings.TrimSpace(f.collection); v != "" {
		cfg.Collection.Name = v
	}
	if len(f.keywords) > 0 {
		cfg.Collection.Keywords = append([]string(nil), f.keywords...)
	}
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, c.flags.verbose)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) plexClient() (*plex.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return plex.NewClient(cfg.Plex.URL, cfg.Plex.Token,
		plex.WithTimeout(cfg.RequestTimeout()),
		plex.WithLogger(logging.NewComponentLogger(logger, "plex")),
	), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
