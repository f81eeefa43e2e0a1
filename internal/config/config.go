// Package config loads distype settings. Values are layered: built-in
// defaults, then a TOML file, then a .env file and the process
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/hammamikhairi/distype/internal/logger"
)

// DefaultFile is read when no config path is given and the file exists.
const DefaultFile = "distype.toml"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQL      = "sql"
	BackendDocument = "doc"
)

// Remote providers. ProviderNone disables the remote path.
const (
	ProviderYandex = "yandex"
	ProviderAzure  = "azure"
	ProviderGoogle = "google"
	ProviderNone   = "none"
)

type Config struct {
	LogLevel string `toml:"LogLevel" env:"DISTYPE_LOG_LEVEL"`
	LogFile  string `toml:"LogFile" env:"DISTYPE_LOG_FILE"` // "stderr" logs to the console

	Store     StoreConfig     `toml:"Store" envPrefix:"DISTYPE_STORE_"`
	Speech    SpeechConfig    `toml:"Speech" envPrefix:"DISTYPE_SPEECH_"`
	Yandex    YandexConfig    `toml:"Yandex"`
	Azure     AzureConfig     `toml:"Azure"`
	Google    GoogleConfig    `toml:"Google" envPrefix:"DISTYPE_GOOGLE_"`
	Local     LocalConfig     `toml:"Local" envPrefix:"DISTYPE_LOCAL_"`
	Cache     CacheConfig     `toml:"Cache" envPrefix:"DISTYPE_CACHE_"`
	Probe     ProbeConfig     `toml:"Probe" envPrefix:"DISTYPE_PROBE_"`
	Feedback  FeedbackConfig  `toml:"Feedback" envPrefix:"DISTYPE_FEEDBACK_"`
	Dictation DictationConfig `toml:"Dictation" envPrefix:"DISTYPE_DICTATION_"`
}

type StoreConfig struct {
	Backend string `toml:"Backend" env:"BACKEND"` // memory, sql or doc
	Path    string `toml:"Path" env:"PATH"`
	User    string `toml:"User" env:"USER"` // document store only
}

type SpeechConfig struct {
	Provider     string `toml:"Provider" env:"PROVIDER"`
	PreferOnline bool   `toml:"PreferOnline" env:"PREFER_ONLINE"`
	WordEcho     bool   `toml:"WordEcho" env:"WORD_ECHO"` // speak each finished word
	Slots        int    `toml:"Slots" env:"SLOTS"`
}

// YandexConfig reads the key from the same variable the speech package
// documents.
type YandexConfig struct {
	APIKey string `toml:"APIKey" env:"YANDEX_API_KEY"`
	Folder string `toml:"Folder" env:"YANDEX_FOLDER_ID"`
	Voice  string `toml:"Voice" env:"YANDEX_VOICE"`
	Lang   string `toml:"Lang" env:"YANDEX_LANG"`
	URL    string `toml:"URL" env:"YANDEX_URL"`
}

type AzureConfig struct {
	Key    string `toml:"Key" env:"AZURE_SPEECH_KEY"`
	Region string `toml:"Region" env:"AZURE_SPEECH_REGION"`
	Voice  string `toml:"Voice" env:"AZURE_SPEECH_VOICE"`
}

type GoogleConfig struct {
	Lang  string  `toml:"Lang" env:"LANG"`
	Speed float32 `toml:"Speed" env:"SPEED"`
}

type LocalConfig struct {
	Binary string `toml:"Binary" env:"BINARY"`
	Voice  string `toml:"Voice" env:"VOICE"`
	Rate   int    `toml:"Rate" env:"RATE"`
}

type CacheConfig struct {
	Enabled bool   `toml:"Enabled" env:"ENABLED"`
	Dir     string `toml:"Dir" env:"DIR"`
	LimitMB int    `toml:"LimitMB" env:"LIMIT_MB"`
}

type ProbeConfig struct {
	Address string `toml:"Address" env:"ADDRESS"`
	Offline bool   `toml:"Offline" env:"OFFLINE"` // skip probing, always offline
}

type FeedbackConfig struct {
	URL   string `toml:"URL" env:"URL"`
	Email string `toml:"Email" env:"EMAIL"`
}

type DictationConfig struct {
	Enabled      bool   `toml:"Enabled" env:"ENABLED"`
	WhisperBin   string `toml:"WhisperBin" env:"WHISPER_BIN"`
	Model        string `toml:"Model" env:"MODEL"`
	ChunkSeconds int    `toml:"ChunkSeconds" env:"CHUNK_SECONDS"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: logger.LevelNormal.String(),
		LogFile:  ".distype/distype.log",
		Store: StoreConfig{
			Backend: BackendSQL,
			Path:    ".distype/phrases.db",
			User:    "local",
		},
		Speech: SpeechConfig{
			Provider:     ProviderYandex,
			PreferOnline: true,
			Slots:        5,
		},
		Google: GoogleConfig{Lang: "en", Speed: 1.0},
		Local:  LocalConfig{Binary: "espeak-ng", Voice: "en", Rate: 160},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".distype/cache",
			LimitMB: 64,
		},
		Probe: ProbeConfig{Address: "1.1.1.1:53"},
		Dictation: DictationConfig{
			WhisperBin:   "whisper-cli",
			Model:        "bin/ggml-small.bin",
			ChunkSeconds: 3,
		},
	}
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	dotenv []string
}

// WithDotenv sets the .env files to read. Missing files are ignored.
func WithDotenv(paths ...string) LoadOption {
	return func(o *loadOptions) { o.dotenv = paths }
}

// Load builds the configuration. An empty path reads DefaultFile when it
// exists; an explicit path must exist.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{dotenv: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default()

	file := path
	if file == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			file = DefaultFile
		}
	}
	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", file, err)
		}
	}

	for _, p := range o.dotenv {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Store.Backend {
	case BackendMemory, BackendSQL, BackendDocument:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	switch strings.ToLower(c.Speech.Provider) {
	case ProviderYandex, ProviderAzure, ProviderGoogle, ProviderNone, "":
	default:
		return fmt.Errorf("config: unknown speech provider %q", c.Speech.Provider)
	}
	if c.Cache.LimitMB < 0 {
		return fmt.Errorf("config: cache limit must not be negative")
	}
	if c.Speech.Slots < 1 {
		return fmt.Errorf("config: at least one speech slot is required")
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logger.Level {
	l, _ := logger.ParseLevel(c.LogLevel)
	return l
}

// RemoteConfigured reports whether the selected provider has the
// credentials it needs.
func (c *Config) RemoteConfigured() bool {
	switch strings.ToLower(c.Speech.Provider) {
	case ProviderYandex:
		return c.Yandex.APIKey != ""
	case ProviderAzure:
		return c.Azure.Key != "" && c.Azure.Region != ""
	case ProviderGoogle:
		return true
	default:
		return false
	}
}
