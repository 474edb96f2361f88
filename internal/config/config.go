// Package config holds the environment-sourced configuration for the
// Sokosumi CLI. A Config is an immutable value: the setup flow persists a
// new API key to the .env file and rebuilds dependents from a fresh Config
// rather than mutating one in place.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvAPIURL       = "SOKOSUMI_API_URL"
	EnvAPIKey       = "SOKOSUMI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvModel        = "ANTHROPIC_MODEL"

	defaultModel = "claude-3-5-sonnet-20240620"
)

type Config struct {
	BaseURL      string
	APIKey       string
	AnthropicKey string
	Model        string
	EnvPath      string
}

// Load reads the .env file at envPath (missing file is fine; the process
// environment may already carry everything) and snapshots the variables the
// CLI cares about.
func Load(envPath string) Config {
	if strings.TrimSpace(envPath) == "" {
		envPath = ".env"
	}
	_ = godotenv.Load(envPath)
	return Config{
		BaseURL:      strings.TrimSpace(os.Getenv(EnvAPIURL)),
		APIKey:       strings.TrimSpace(os.Getenv(EnvAPIKey)),
		AnthropicKey: strings.TrimSpace(os.Getenv(EnvAnthropicKey)),
		Model:        envOr(EnvModel, defaultModel),
		EnvPath:      envPath,
	}
}

func (c Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// RequireAPI reports whether the marketplace API is callable. It fails fast
// before any network attempt so misconfiguration surfaces as a clear message
// rather than a connection error.
func (c Config) RequireAPI() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%s is not set in the environment (.env)", EnvAPIURL)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%s is not set in the environment (.env)", EnvAPIKey)
	}
	return nil
}

// RouterKey is the credential for the intent router: ANTHROPIC_API_KEY with
// a fallback to the Sokosumi key. Empty means routing degrades to unknown.
func (c Config) RouterKey() string {
	if c.AnthropicKey != "" {
		return c.AnthropicKey
	}
	return c.APIKey
}

// SaveAPIKey writes the key to the .env file, replacing an existing
// SOKOSUMI_API_KEY line in place or appending one, and returns the updated
// Config. The file keeps one KEY=VALUE per line with a trailing newline;
// unrelated lines are left untouched.
func (c Config) SaveAPIKey(key string) (Config, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return c, fmt.Errorf("API key must not be empty")
	}
	keyLine := EnvAPIKey + "=" + key

	var lines []string
	if raw, err := os.ReadFile(c.EnvPath); err == nil {
		lines = strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	}
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, EnvAPIKey+"=") {
			lines[i] = keyLine
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, keyLine)
	}
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	content := strings.Join(kept, "\n") + "\n"
	if err := os.WriteFile(c.EnvPath, []byte(content), 0o600); err != nil {
		return c, fmt.Errorf("write %s: %w", c.EnvPath, err)
	}

	next := c
	next.APIKey = key
	return next, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
