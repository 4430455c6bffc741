package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	appName                   = "commentarycollection"
	defaultPlexURL            = "http://localhost:32400"
	defaultPlexSection        = "1"
	defaultPlexTimeoutSeconds = 30
	defaultCollectionName     = "Commentary Collection"
	defaultKeyword            = "commentary"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNtfyTimeoutSeconds = 10
	ignoreFileName            = "ignore.txt"
	historyFileName           = "history.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Plex: Plex{
			URL:            defaultPlexURL,
			Section:        defaultPlexSection,
			TimeoutSeconds: defaultPlexTimeoutSeconds,
		},
		Collection: Collection{
			Name:     defaultCollectionName,
			Keywords: []string{defaultKeyword},
		},
		Discovery: Discovery{
			IgnoreList:  true,
			IgnorePath:  defaultIgnorePath(),
			Interactive: true,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}

func defaultIgnorePath() string {
	return filepath.Join(xdg.DataHome, appName, ignoreFileName)
}

func defaultHistoryPath() string {
	return filepath.Join(xdg.StateHome, appName, historyFileName)
}
