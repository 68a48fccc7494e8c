package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Suggestions SuggestionsConfig `json:"suggestions"`
	Providers   ProvidersConfig   `json:"providers"`
	Privacy     PrivacyConfig     `json:"privacy"`
	Storage     StorageConfig     `json:"storage"`
	Logging     LoggingConfig     `json:"logging"`
	mu          sync.RWMutex
}

type SuggestionsConfig struct {
	Enabled         bool   `json:"enabled" env:"SMARTREPLY_SUGGESTIONS_ENABLED"`
	Provider        string `json:"provider" env:"SMARTREPLY_SUGGESTIONS_PROVIDER"`
	MaxSuggestions  int    `json:"max_suggestions" env:"SMARTREPLY_SUGGESTIONS_MAX"`
	ResponseDelayMs int    `json:"response_delay_ms" env:"SMARTREPLY_SUGGESTIONS_RESPONSE_DELAY_MS"`
}

type ProvidersConfig struct {
	Primary        ProviderConfig `json:"primary" envPrefix:"SMARTREPLY_PRIMARY_"`
	Secondary      ProviderConfig `json:"secondary" envPrefix:"SMARTREPLY_SECONDARY_"`
	RatePerMinute  int            `json:"rate_per_minute" env:"SMARTREPLY_PROVIDERS_RATE_PER_MINUTE"`
	TimeoutSeconds int            `json:"timeout_seconds" env:"SMARTREPLY_PROVIDERS_TIMEOUT_SECONDS"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" env:"API_KEY"`
	APIBase string `json:"api_base" env:"API_BASE"`
	Model   string `json:"model" env:"MODEL"`
}

type PrivacyConfig struct {
	RetentionDays int  `json:"retention_days" env:"SMARTREPLY_PRIVACY_RETENTION_DAYS"`
	RequireCrypto bool `json:"require_crypto" env:"SMARTREPLY_PRIVACY_REQUIRE_CRYPTO"`
}

type StorageConfig struct {
	Path string `json:"path" env:"SMARTREPLY_STORAGE_PATH"`
}

type LoggingConfig struct {
	Level string `json:"level" env:"SMARTREPLY_LOG_LEVEL"`
	JSON  bool   `json:"json" env:"SMARTREPLY_LOG_JSON"`
}

// Settings is the runtime push surface exposed to the popup/settings
// collaborator. Changes apply on the next detection cycle.
type Settings struct {
	Enabled         bool
	Provider        string
	MaxSuggestions  int
	ResponseDelayMs int
}

func DefaultConfig() *Config {
	return &Config{
		Suggestions: SuggestionsConfig{
			Enabled:         true,
			Provider:        "primary",
			MaxSuggestions:  3,
			ResponseDelayMs: 500,
		},
		Providers: ProvidersConfig{
			Primary:        ProviderConfig{APIBase: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
			Secondary:      ProviderConfig{APIBase: "https://generativelanguage.googleapis.com/v1beta", Model: "gemini-1.5-flash"},
			RatePerMinute:  60,
			TimeoutSeconds: 10,
		},
		Privacy: PrivacyConfig{RetentionDays: 30},
		Storage: StorageConfig{Path: defaultStoragePath()},
		Logging: LoggingConfig{Level: "info"},
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".smartreply", "state.db")
	}
	return filepath.Join(home, ".smartreply", "state.db")
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".smartreply", "config.json")
	}
	return filepath.Join(home, ".smartreply", "config.json")
}

// Load reads the JSON config file (if present), then overlays
// environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Suggestions.MaxSuggestions <= 0 {
		c.Suggestions.MaxSuggestions = 3
	}
	if c.Suggestions.Provider == "" {
		c.Suggestions.Provider = "primary"
	}
	if c.Providers.RatePerMinute <= 0 {
		c.Providers.RatePerMinute = 60
	}
	if c.Providers.TimeoutSeconds <= 0 {
		c.Providers.TimeoutSeconds = 10
	}
	if c.Privacy.RetentionDays <= 0 {
		c.Privacy.RetentionDays = 30
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath()
	}
}

// Apply replaces the runtime-adjustable settings. Safe to call from
// the popup push handler while the pipeline is running.
func (c *Config) Apply(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Suggestions.Enabled = s.Enabled
	if s.Provider != "" {
		c.Suggestions.Provider = s.Provider
	}
	if s.MaxSuggestions > 0 {
		c.Suggestions.MaxSuggestions = s.MaxSuggestions
	}
	if s.ResponseDelayMs >= 0 {
		c.Suggestions.ResponseDelayMs = s.ResponseDelayMs
	}
}

// Snapshot returns the current runtime settings as a consistent copy.
func (c *Config) Snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Settings{
		Enabled:         c.Suggestions.Enabled,
		Provider:        c.Suggestions.Provider,
		MaxSuggestions:  c.Suggestions.MaxSuggestions,
		ResponseDelayMs: c.Suggestions.ResponseDelayMs,
	}
}

// Save writes the config back to disk, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
