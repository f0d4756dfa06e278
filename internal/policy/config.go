package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the keyword sets the engine matches against. Keywords
// are injected at construction — there is no package-level mutable
// set — so tests can vary them per case without leakage.
type Config struct {
	DestructiveKeywords []string `yaml:"destructive_keywords"`
	HighRiskKeywords    []string `yaml:"high_risk_keywords"`
	MediumRiskKeywords  []string `yaml:"medium_risk_keywords"`
}

// DefaultConfig returns the built-in keyword sets.
func DefaultConfig() *Config {
	return &Config{
		DestructiveKeywords: []string{
			"format",
			"rm -rf",
			"delete system",
			"registry",
			"powershell remove-item",
			"shutdown /s",
			"del /s",
			"mkfs",
			"diskpart clean",
		},
		HighRiskKeywords: []string{
			"cmd.exe",
			"powershell",
			"bash",
			".exe",
			".bat",
			".ps1",
			"reg add",
			"reg delete",
			"schtasks",
			"netsh",
			"curl",
			"wget",
		},
		MediumRiskKeywords: []string{
			"install",
			"download",
			"open browser",
			"upload",
			"move",
			"copy",
		},
	}
}

// LoadConfig loads keyword sets from a YAML file. Empty path falls back
// to ~/.deskbridge/policy.yaml. Missing file returns defaults. Invalid
// YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = filepath.Join(home, ".deskbridge", "policy.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read policy config: %w", err)
	}

	// Start with defaults; YAML overwrites only specified sets.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse policy config: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithHash loads keyword sets and returns the SHA-256 of the
// raw YAML bytes, recorded into audit payloads so a decision can be
// tied to the exact rule set that produced it. When no file exists the
// hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), emptyHash(), nil
		}
		path = filepath.Join(home, ".deskbridge", "policy.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("read policy config: %w", err)
	}

	h := sha256.Sum256(data)

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("parse policy config: %w", err)
	}

	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}
