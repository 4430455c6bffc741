package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"commentarycollection/internal/config"
	"commentarycollection/internal/services/plex"
	"commentarycollection/internal/testsupport"
)

type cliTestEnv struct {
	fake       *testsupport.FakePlex
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()))

	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("PLEX_TOKEN", "")
	t.Setenv("PLEX_URL", "")

	configPath := filepath.Join(home, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{fake: fake, cfg: cfg, configPath: configPath}
}

func seedLibrary(fake *testsupport.FakePlex) {
	fake.AddSection("1", "Movies", "movie")
	fake.AddSection("2", "Music", "artist")

	alien := testsupport.Movie("101", "Alien",
		testsupport.Audio("English", "eng", 6),
		testsupport.Audio("Commentary by Ridley Scott", "eng", 2),
	)
	alien.Collection = []plex.Tag{{Tag: "Sci-Fi"}}
	heat := testsupport.Movie("102", "Heat", testsupport.Audio("Director's Commentary", "eng", 2))
	heat.Collection = []plex.Tag{{Tag: "Commentary Collection"}}
	brazil := testsupport.Movie("103", "Brazil",
		testsupport.Audio("English", "eng", 6),
		testsupport.Audio("", "", 2),
	)
	amelie := testsupport.Movie("104", "Amelie", testsupport.Audio("Francais", "fra", 6))

	for _, md := range []plex.Metadata{alien, heat, brazil, amelie} {
		fake.AddItem("1", md)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[plex]
url = %q
token = %q
section = %q

[collection]
name = %q

[discovery]
enabled = %t
ignore_path = %q

[history]
path = %q

[logging]
level = "warn"
`,
		cfg.Plex.URL,
		cfg.Plex.Token,
		cfg.Plex.Section,
		cfg.Collection.Name,
		cfg.Discovery.Enabled,
		cfg.Discovery.IgnorePath,
		cfg.History.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
