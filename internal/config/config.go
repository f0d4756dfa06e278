// Package config loads the bridge-wide YAML configuration and watches
// it for changes. Policy keyword overrides live in their own file (see
// internal/policy); this file wires everything else.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/deskbridge/internal/pilot"
	"github.com/ppiankov/deskbridge/internal/provider"
	"github.com/ppiankov/deskbridge/internal/vbox"
)

// Config is the full bridge configuration.
type Config struct {
	Mode        string        `yaml:"mode"`
	DryRun      bool          `yaml:"dry_run"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	Allowlist   []string      `yaml:"allowlist"`
	PolicyPath  string        `yaml:"policy_path"`
	AuditPath   string        `yaml:"audit_path"`
	SessionDir  string        `yaml:"session_dir"`
	Cadence     time.Duration `yaml:"cadence"`

	Tesseract string `yaml:"tesseract"`

	Providers   ProvidersConfig   `yaml:"providers"`
	VM          vbox.Config       `yaml:"vm"`
	Calibration pilot.Calibration `yaml:"calibration"`

	PII PIIConfig `yaml:"pii"`
}

// ProvidersConfig names the model backends per role. Empty sections
// fall back to the static offline provider.
type ProvidersConfig struct {
	Vision   ProviderRef `yaml:"vision"`
	Reasoner ProviderRef `yaml:"reasoner"`
	Executor ProviderRef `yaml:"executor"`
}

// ProviderRef selects one backend. Exactly one of HTTP or Bedrock
// should be set; both empty means static.
type ProviderRef struct {
	HTTP    *provider.HTTPConfig    `yaml:"http"`
	Bedrock *provider.BedrockConfig `yaml:"bedrock"`
}

// PIIConfig carries extra detection patterns beyond the built-in set.
type PIIConfig struct {
	Patterns []PatternConfig `yaml:"patterns"`
}

type PatternConfig struct {
	ID    string `yaml:"id"`
	Regex string `yaml:"regex"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".deskbridge")
	return &Config{
		Mode:        "normal",
		SettleDelay: 500 * time.Millisecond,
		AuditPath:   filepath.Join(base, "audit.log"),
		SessionDir:  filepath.Join(base, "sessions"),
		Cadence:     time.Second,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "deskbridge.yaml"
	}
	return filepath.Join(home, ".deskbridge", "config.yaml")
}

// Load reads the config at path, falling back to defaults when the
// file is missing. Invalid YAML is an error, never a silent default.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash additionally returns a sha256 fingerprint of the raw
// file, recorded into the audit log at startup so a verifier can tell
// which configuration produced a given run.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), "default", nil
		}
		return nil, "", fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, "", fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, "", fmt.Errorf("config %s: %w", path, err)
	}

	sum := sha256.Sum256(raw)
	return cfg, fmt.Sprintf("sha256:%x", sum), nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case "", "normal", "game", "sandbox":
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if c.Cadence < 0 {
		return fmt.Errorf("cadence must not be negative")
	}
	return nil
}
