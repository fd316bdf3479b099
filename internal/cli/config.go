// Package cli implements the arfactl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultAPIURL returns the API base URL, overridable via ARFA_API_URL.
func DefaultAPIURL() string {
	if url := os.Getenv("ARFA_API_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// Config is the local CLI state stored in ~/.config/arfactl/config.json.
// SyncTokens caches the last sync token per agent so unchanged pulls are
// cheap on both sides.
type Config struct {
	APIURL     string            `json:"api_url"`
	Token      string            `json:"token,omitempty"`
	Email      string            `json:"email,omitempty"`
	SyncTokens map[string]string `json:"sync_tokens,omitempty"`
}

// ConfigManager loads and stores the CLI config file.
type ConfigManager struct {
	path string
}

func NewConfigManager() (*ConfigManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewConfigManagerWithPath(filepath.Join(home, ".config", "arfactl", "config.json")), nil
}

// NewConfigManagerWithPath is used by tests and the --config flag.
func NewConfigManagerWithPath(path string) *ConfigManager {
	return &ConfigManager{path: path}
}

func (m *ConfigManager) Path() string { return m.path }

// Load returns an empty config when the file does not exist yet.
func (m *ConfigManager) Load() (*Config, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config with owner-only permissions, the file holds a
// bearer token.
func (m *ConfigManager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
