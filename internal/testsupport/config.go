package testsupport

import (
	"path/filepath"
	"testing"

	"commentarycollection/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config whose file paths live in a per-test temp
// directory. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Plex.Token = "test-token"
	cfgVal.Discovery.IgnorePath = filepath.Join(base, "data", "ignore.txt")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.Logging.File = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPlexURL points the config at a (usually fake) server.
func WithPlexURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plex.URL = url
	}
}

// WithSection sets the library section key.
func WithSection(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plex.Section = key
	}
}

// WithDiscovery enables discovery with the given channel filter.
func WithDiscovery(channelFilter bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discovery.Enabled = true
		b.cfg.Discovery.ChannelFilter = channelFilter
	}
}

// WithKeywords replaces the commentary keywords.
func WithKeywords(keywords ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collection.Keywords = keywords
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Discovery.IgnorePath))
}
