package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRequireAPI(t *testing.T) {
	if err := (Config{}).RequireAPI(); err == nil || !strings.Contains(err.Error(), EnvAPIURL) {
		t.Fatalf("expected missing-url error, got %v", err)
	}
	if err := (Config{BaseURL: "https://api.example.com"}).RequireAPI(); err == nil || !strings.Contains(err.Error(), EnvAPIKey) {
		t.Fatalf("expected missing-key error, got %v", err)
	}
	cfg := Config{BaseURL: "https://api.example.com", APIKey: "k"}
	if err := cfg.RequireAPI(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestRouterKeyFallback(t *testing.T) {
	cfg := Config{APIKey: "soko", AnthropicKey: "anthropic"}
	if cfg.RouterKey() != "anthropic" {
		t.Fatalf("expected anthropic key preferred")
	}
	cfg.AnthropicKey = ""
	if cfg.RouterKey() != "soko" {
		t.Fatalf("expected fallback to the Sokosumi key")
	}
}

func TestSaveAPIKeyReplacesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SOKOSUMI_API_URL=https://api.example.com\nSOKOSUMI_API_KEY=old\nOTHER=keep\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("seed env file: %v", err)
	}

	cfg := Config{EnvPath: path, APIKey: "old"}
	next, err := cfg.SaveAPIKey("new-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.APIKey != "new-key" {
		t.Fatalf("expected updated config value, got %q", next.APIKey)
	}
	if cfg.APIKey != "old" {
		t.Fatalf("original config must not mutate")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read env file: %v", err)
	}
	got := string(raw)
	want := "SOKOSUMI_API_URL=https://api.example.com\nSOKOSUMI_API_KEY=new-key\nOTHER=keep\n"
	if got != want {
		t.Fatalf("unexpected file content:\n%q\nwant:\n%q", got, want)
	}
}

func TestSaveAPIKeyAppendsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	cfg := Config{EnvPath: path}
	if _, err := cfg.SaveAPIKey("fresh"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "SOKOSUMI_API_KEY=fresh\n" {
		t.Fatalf("unexpected file content: %q", string(raw))
	}
}

func TestSaveAPIKeyRejectsEmpty(t *testing.T) {
	cfg := Config{EnvPath: filepath.Join(t.TempDir(), ".env")}
	if _, err := cfg.SaveAPIKey("   "); err == nil {
		t.Fatalf("expected error for blank key")
	}
}

func TestLoadSnapshotsEnvironment(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://api.example.com")
	t.Setenv(EnvAPIKey, "soko-key")
	t.Setenv(EnvAnthropicKey, "claude-key")
	t.Setenv(EnvModel, "")

	cfg := Load(filepath.Join(t.TempDir(), ".env"))
	if cfg.BaseURL != "https://api.example.com" || cfg.APIKey != "soko-key" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AnthropicKey != "claude-key" {
		t.Fatalf("unexpected anthropic key: %q", cfg.AnthropicKey)
	}
	if cfg.Model != defaultModel {
		t.Fatalf("expected default model, got %q", cfg.Model)
	}
}
