// Package policy is the safety core: a deterministic, pure decision
// function from (mode, rationale, allowlist) to a PolicyDecision.
package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/deskbridge/internal/model"
)

// Engine evaluates proposed actions against the keyword rules. The
// rule set can be swapped at runtime by the config reloader.
type Engine struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewEngine creates an engine. A nil config uses the defaults.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// SetConfig replaces the keyword rules. Evaluations already in flight
// keep the rules they started with; a nil config restores defaults.
func (e *Engine) SetConfig(cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Engine) config() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Evaluate produces the verdict for one action attempt. Matching is
// case-insensitive substring over the rationale text, in strict
// precedence order (first match wins):
//
//  1. Destructive-keyword block — absolute veto, any mode
//  2. Path-allowlist check — deny paths outside the allowlist
//  3. Risk scoring — HIGH, then MEDIUM, default LOW
//  4. Mode-sensitive confirmation gating
//
// When several keywords of the same severity match, any one of them may
// be the one cited in Reason.
func (e *Engine) Evaluate(mode model.Mode, rationale string, allowlistPaths []string) model.PolicyDecision {
	cfg := e.config()
	lowered := strings.ToLower(rationale)
	target := mode.Target()

	if keyword := matchAny(lowered, cfg.DestructiveKeywords); keyword != "" {
		return model.PolicyDecision{
			Allowed:              false,
			RequiresConfirmation: true,
			Risk:                 model.RiskHigh,
			Reason:               fmt.Sprintf("Blocked destructive keyword: %s", keyword),
			RuleID:               model.RuleBlockDestructive,
			Target:               target,
			Mode:                 mode,
		}
	}

	if !allowlistOK(lowered, allowlistPaths) {
		return model.PolicyDecision{
			Allowed:              false,
			RequiresConfirmation: true,
			Risk:                 model.RiskMedium,
			Reason:               "File action outside allowlist",
			RuleID:               model.RuleDenyOutsideAllowlist,
			Target:               target,
			Mode:                 mode,
		}
	}

	risk := cfg.scoreRisk(lowered)

	if mode == model.ModeNormal && risk == model.RiskHigh {
		return model.PolicyDecision{
			Allowed:              true,
			RequiresConfirmation: true,
			Risk:                 risk,
			Reason:               "High risk action requires confirmation",
			RuleID:               model.RuleConfirmHighRisk,
			Target:               target,
			Mode:                 mode,
		}
	}
	if mode == model.ModeNormal && risk == model.RiskMedium {
		return model.PolicyDecision{
			Allowed:              true,
			RequiresConfirmation: true,
			Risk:                 risk,
			Reason:               "Medium risk action requires confirmation",
			RuleID:               model.RuleConfirmMediumRisk,
			Target:               target,
			Mode:                 mode,
		}
	}
	if mode == model.ModeGame && risk == model.RiskHigh {
		return model.PolicyDecision{
			Allowed:              true,
			RequiresConfirmation: true,
			Risk:                 risk,
			Reason:               "High risk action in VM requires confirmation",
			RuleID:               model.RuleConfirmHighRiskVM,
			Target:               target,
			Mode:                 mode,
		}
	}

	return model.PolicyDecision{
		Allowed:              true,
		RequiresConfirmation: false,
		Risk:                 risk,
		Reason:               "Allowed by policy",
		RuleID:               model.RuleAllow,
		Target:               target,
		Mode:                 mode,
	}
}

// scoreRisk classifies lowered rationale text. HIGH keywords are
// checked before MEDIUM; no match means LOW.
func (cfg *Config) scoreRisk(lowered string) model.RiskLevel {
	if matchAny(lowered, cfg.HighRiskKeywords) != "" {
		return model.RiskHigh
	}
	if matchAny(lowered, cfg.MediumRiskKeywords) != "" {
		return model.RiskMedium
	}
	return model.RiskLow
}

func matchAny(lowered string, keywords []string) string {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
			return keyword
		}
	}
	return ""
}

// allowlistOK reports whether the rationale either does not reference a
// filesystem path, or references one inside the allowlist. Fragments
// are compared lower-cased with backslashes normalized to slashes.
func allowlistOK(lowered string, allowlistPaths []string) bool {
	looksLikePath := strings.Contains(lowered, `:\`) ||
		strings.Contains(lowered, "/") ||
		strings.Contains(lowered, `\`)
	if !looksLikePath {
		return true
	}
	normalized := strings.ReplaceAll(lowered, `\`, "/")
	for _, path := range allowlistPaths {
		fragment := strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
		if fragment == "" {
			continue
		}
		if strings.Contains(lowered, fragment) || strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}
