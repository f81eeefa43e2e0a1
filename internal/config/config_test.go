package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hammamikhairi/distype/internal/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", WithDotenv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendSQL || cfg.Speech.Provider != ProviderYandex {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Speech.PreferOnline || cfg.Speech.Slots != 5 {
		t.Fatalf("unexpected speech defaults: %+v", cfg.Speech)
	}
	if cfg.Level() != logger.LevelNormal {
		t.Fatalf("expected normal log level, got %s", cfg.Level())
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeFile(t, "distype.toml", `
LogLevel = "verbose"

[Store]
Backend = "doc"
Path = "/tmp/phrases.json"

[Speech]
Provider = "azure"
PreferOnline = false

[Cache]
LimitMB = 8
`)
	t.Setenv("DISTYPE_CACHE_LIMIT_MB", "16")
	t.Setenv("AZURE_SPEECH_KEY", "k")
	t.Setenv("AZURE_SPEECH_REGION", "westeurope")

	cfg, err := Load(path, WithDotenv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Level() != logger.LevelVerbose {
		t.Fatalf("expected verbose, got %s", cfg.Level())
	}
	if cfg.Store.Backend != BackendDocument || cfg.Store.Path != "/tmp/phrases.json" {
		t.Fatalf("unexpected store: %+v", cfg.Store)
	}
	if cfg.Speech.PreferOnline {
		t.Fatal("expected PreferOnline from file")
	}
	if cfg.Cache.LimitMB != 16 {
		t.Fatalf("expected env to override file, got %d", cfg.Cache.LimitMB)
	}
	// Untouched sections keep their defaults.
	if cfg.Local.Binary != "espeak-ng" || !cfg.Cache.Enabled {
		t.Fatalf("expected defaults preserved, got %+v %+v", cfg.Local, cfg.Cache)
	}
	if !cfg.RemoteConfigured() {
		t.Fatal("expected azure to be configured")
	}
}

func TestLoadDotenv(t *testing.T) {
	const key = "YANDEX_API_KEY"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	dotenv := writeFile(t, ".env", key+"=from-dotenv\n")
	cfg, err := Load("", WithDotenv(dotenv, filepath.Join(t.TempDir(), "missing.env")))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Yandex.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.Yandex.APIKey)
	}
	if !cfg.RemoteConfigured() {
		t.Fatal("expected yandex to be configured")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"backend", "[Store]\nBackend = \"redis\"\n", "store backend"},
		{"provider", "[Speech]\nProvider = \"polly\"\n", "speech provider"},
		{"level", "LogLevel = \"loud\"\n", "log level"},
		{"cache", "[Cache]\nLimitMB = -1\n", "cache limit"},
		{"syntax", "[Store\n", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.toml", tt.content), WithDotenv())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), WithDotenv()); err == nil {
		t.Fatal("expected error for a missing explicit file")
	}
}
