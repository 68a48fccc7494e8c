package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig_SuggestionsEnabled(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Suggestions.Enabled {
		t.Error("Suggestions should be enabled by default")
	}
	if cfg.Suggestions.MaxSuggestions != 3 {
		t.Errorf("MaxSuggestions = %d, want 3", cfg.Suggestions.MaxSuggestions)
	}
	if cfg.Suggestions.Provider != "primary" {
		t.Errorf("Provider = %q, want primary", cfg.Suggestions.Provider)
	}
}

func TestDefaultConfig_Providers(t *testing.T) {
	cfg := DefaultConfig()

	// Credentials are never baked into defaults.
	if cfg.Providers.Primary.APIKey != "" {
		t.Error("Primary API key should be empty by default")
	}
	if cfg.Providers.Secondary.APIKey != "" {
		t.Error("Secondary API key should be empty by default")
	}
	if cfg.Providers.Primary.Model == "" {
		t.Error("Primary model should have a default")
	}
	if cfg.Providers.RatePerMinute != 60 {
		t.Errorf("RatePerMinute = %d, want 60", cfg.Providers.RatePerMinute)
	}
	if cfg.Providers.TimeoutSeconds != 10 {
		t.Errorf("TimeoutSeconds = %d, want 10", cfg.Providers.TimeoutSeconds)
	}
}

func TestDefaultConfig_Privacy(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Privacy.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.Privacy.RetentionDays)
	}
	if cfg.Privacy.RequireCrypto {
		t.Error("RequireCrypto should be off by default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Suggestions.Enabled {
		t.Error("expected default suggestions enabled")
	}
}

func TestLoad_EnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("SMARTREPLY_SUGGESTIONS_MAX", "5")
	t.Setenv("SMARTREPLY_PRIMARY_API_KEY", "sk-test")
	path := filepath.Join(t.TempDir(), "missing-config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Suggestions.MaxSuggestions != 5 {
		t.Fatalf("expected env override max, got %d", cfg.Suggestions.MaxSuggestions)
	}
	if cfg.Providers.Primary.APIKey != "sk-test" {
		t.Fatalf("expected env override API key, got %q", cfg.Providers.Primary.APIKey)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"suggestions":{"enabled":true,"provider":"secondary","max_suggestions":2}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SMARTREPLY_SUGGESTIONS_MAX", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Suggestions.Provider != "secondary" {
		t.Errorf("file value lost, provider = %q", cfg.Suggestions.Provider)
	}
	if cfg.Suggestions.MaxSuggestions != 4 {
		t.Errorf("env should win over file, got %d", cfg.Suggestions.MaxSuggestions)
	}
}

func TestLoad_NormalizesBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"suggestions":{"max_suggestions":-1},"privacy":{"retention_days":0}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Suggestions.MaxSuggestions != 3 {
		t.Errorf("MaxSuggestions not normalized, got %d", cfg.Suggestions.MaxSuggestions)
	}
	if cfg.Privacy.RetentionDays != 30 {
		t.Errorf("RetentionDays not normalized, got %d", cfg.Privacy.RetentionDays)
	}
}

func TestSave_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permission bits are not enforced on Windows")
	}

	path := filepath.Join(t.TempDir(), "config.json")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file has permission %04o, want 0600", perm)
	}
}

func TestApplyAndSnapshot(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Apply(Settings{Enabled: false, Provider: "secondary", MaxSuggestions: 1, ResponseDelayMs: 0})

	s := cfg.Snapshot()
	if s.Enabled {
		t.Error("expected disabled after Apply")
	}
	if s.Provider != "secondary" {
		t.Errorf("Provider = %q", s.Provider)
	}
	if s.MaxSuggestions != 1 {
		t.Errorf("MaxSuggestions = %d", s.MaxSuggestions)
	}
	if s.ResponseDelayMs != 0 {
		t.Errorf("ResponseDelayMs = %d", s.ResponseDelayMs)
	}
}

func TestApply_IgnoresEmptyOptionalFields(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Apply(Settings{Enabled: true, ResponseDelayMs: 250})

	s := cfg.Snapshot()
	if s.Provider != "primary" {
		t.Errorf("empty provider should not clear existing, got %q", s.Provider)
	}
	if s.MaxSuggestions != 3 {
		t.Errorf("zero max should not clear existing, got %d", s.MaxSuggestions)
	}
	if s.ResponseDelayMs != 250 {
		t.Errorf("ResponseDelayMs = %d", s.ResponseDelayMs)
	}
}
