package policy

import (
	"testing"

	"github.com/ppiankov/deskbridge/internal/model"
)

func TestDestructiveVetoIsModeIndependent(t *testing.T) {
	engine := NewEngine(nil)

	for _, mode := range []model.Mode{model.ModeNormal, model.ModeGame, model.ModeSandbox} {
		t.Run(string(mode), func(t *testing.T) {
			d := engine.Evaluate(mode, "format C: drive", nil)
			if d.Allowed {
				t.Error("destructive action must not be allowed")
			}
			if d.RuleID != model.RuleBlockDestructive {
				t.Errorf("expected rule %s, got %s", model.RuleBlockDestructive, d.RuleID)
			}
			if d.Risk != model.RiskHigh {
				t.Errorf("expected high risk, got %s", d.Risk)
			}
			if !d.RequiresConfirmation {
				t.Error("destructive block must require confirmation")
			}
		})
	}
}

func TestDestructiveBeatsAllowlist(t *testing.T) {
	engine := NewEngine(nil)

	// Both rules match; the veto must win.
	d := engine.Evaluate(model.ModeNormal, `rm -rf /home/user/scratch`, []string{"Documents"})
	if d.RuleID != model.RuleBlockDestructive {
		t.Errorf("expected %s to fire before allowlist, got %s", model.RuleBlockDestructive, d.RuleID)
	}
}

func TestAllowlistEnforcement(t *testing.T) {
	engine := NewEngine(nil)

	denied := engine.Evaluate(model.ModeNormal, "delete file at /etc/shadow", []string{"Documents"})
	if denied.Allowed {
		t.Error("path outside allowlist must be denied")
	}
	if denied.RuleID != model.RuleDenyOutsideAllowlist {
		t.Errorf("expected rule %s, got %s", model.RuleDenyOutsideAllowlist, denied.RuleID)
	}
	if denied.Risk != model.RiskMedium {
		t.Errorf("expected medium risk, got %s", denied.Risk)
	}

	allowed := engine.Evaluate(model.ModeNormal, "open file in Documents/report.txt", []string{"Documents"})
	if allowed.RuleID == model.RuleDenyOutsideAllowlist {
		t.Error("allowlisted path must not be denied by the allowlist rule")
	}
}

func TestAllowlistFiresInEveryMode(t *testing.T) {
	engine := NewEngine(nil)

	for _, mode := range []model.Mode{model.ModeNormal, model.ModeGame, model.ModeSandbox} {
		d := engine.Evaluate(mode, "edit /etc/hosts now", []string{"Documents"})
		if d.RuleID != model.RuleDenyOutsideAllowlist {
			t.Errorf("mode %s: expected allowlist deny, got %s", mode, d.RuleID)
		}
	}
}

func TestAllowlistIgnoresNonPathText(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Evaluate(model.ModeNormal, "press the ok button", []string{"Documents"})
	if d.RuleID == model.RuleDenyOutsideAllowlist {
		t.Error("text with no path markers must not hit the allowlist rule")
	}
}

func TestAllowlistNormalizesBackslashes(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Evaluate(model.ModeNormal, `open c:\users\me\documents\report.txt`, []string{`Documents`})
	if d.RuleID == model.RuleDenyOutsideAllowlist {
		t.Errorf("windows-style path inside allowlist was denied: %+v", d)
	}
}

func TestModeConfirmationAsymmetry(t *testing.T) {
	engine := NewEngine(nil)

	cases := []struct {
		name      string
		mode      model.Mode
		rationale string
		allowed   bool
		confirm   bool
		rule      string
		risk      model.RiskLevel
		target    string
	}{
		{"normal high", model.ModeNormal, "run powershell script", true, true, model.RuleConfirmHighRisk, model.RiskHigh, model.TargetHost},
		{"normal medium", model.ModeNormal, "install the update", true, true, model.RuleConfirmMediumRisk, model.RiskMedium, model.TargetHost},
		{"game high", model.ModeGame, "run powershell script", true, true, model.RuleConfirmHighRiskVM, model.RiskHigh, model.TargetVM},
		{"game medium", model.ModeGame, "install the update", true, false, model.RuleAllow, model.RiskMedium, model.TargetVM},
		{"sandbox high", model.ModeSandbox, "run powershell script", true, false, model.RuleAllow, model.RiskHigh, model.TargetVM},
		{"sandbox low", model.ModeSandbox, "open notepad", true, false, model.RuleAllow, model.RiskLow, model.TargetVM},
		{"normal low", model.ModeNormal, "open notepad", true, false, model.RuleAllow, model.RiskLow, model.TargetHost},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := engine.Evaluate(tc.mode, tc.rationale, nil)
			if d.Allowed != tc.allowed {
				t.Errorf("allowed=%v, want %v", d.Allowed, tc.allowed)
			}
			if d.RequiresConfirmation != tc.confirm {
				t.Errorf("requires_confirmation=%v, want %v", d.RequiresConfirmation, tc.confirm)
			}
			if d.RuleID != tc.rule {
				t.Errorf("rule_id=%s, want %s", d.RuleID, tc.rule)
			}
			if d.Risk != tc.risk {
				t.Errorf("risk=%s, want %s", d.Risk, tc.risk)
			}
			if d.Target != tc.target {
				t.Errorf("target=%s, want %s", d.Target, tc.target)
			}
			if d.Mode != tc.mode {
				t.Errorf("mode=%s, want %s", d.Mode, tc.mode)
			}
		})
	}
}

func TestHighCheckedBeforeMedium(t *testing.T) {
	engine := NewEngine(nil)

	// Rationale matches both sets; HIGH must win.
	d := engine.Evaluate(model.ModeNormal, "download installer.exe", nil)
	if d.Risk != model.RiskHigh {
		t.Errorf("expected high risk when both sets match, got %s", d.Risk)
	}
}

func TestMultipleDestructiveKeywordsCiteSomeKeyword(t *testing.T) {
	engine := NewEngine(nil)

	d := engine.Evaluate(model.ModeSandbox, "format the disk then rm -rf everything", nil)
	if d.RuleID != model.RuleBlockDestructive {
		t.Fatalf("expected destructive block, got %s", d.RuleID)
	}
	// Any one matching keyword may be cited; only severity is pinned.
	if d.Reason == "" {
		t.Error("reason must name the cited keyword")
	}
}

func TestInjectedKeywordSets(t *testing.T) {
	cfg := &Config{
		DestructiveKeywords: []string{"obliterate"},
		HighRiskKeywords:    []string{"launch"},
		MediumRiskKeywords:  []string{"nudge"},
	}
	engine := NewEngine(cfg)

	if d := engine.Evaluate(model.ModeSandbox, "obliterate all data", nil); d.RuleID != model.RuleBlockDestructive {
		t.Errorf("custom destructive keyword not honored: %s", d.RuleID)
	}
	// Default keywords must not leak into a custom config.
	if d := engine.Evaluate(model.ModeNormal, "run powershell script", nil); d.Risk != model.RiskLow {
		t.Errorf("default keywords leaked into custom engine: %s", d.Risk)
	}
}

func TestSetConfigSwapsRulesLive(t *testing.T) {
	engine := NewEngine(&Config{DestructiveKeywords: []string{"obliterate"}})

	if d := engine.Evaluate(model.ModeNormal, "scrub the cache", nil); !d.Allowed {
		t.Fatalf("unexpected block before swap: %+v", d)
	}

	engine.SetConfig(&Config{DestructiveKeywords: []string{"scrub"}})
	if d := engine.Evaluate(model.ModeNormal, "scrub the cache", nil); d.RuleID != model.RuleBlockDestructive {
		t.Errorf("swapped keyword not honored: %s", d.RuleID)
	}
	if d := engine.Evaluate(model.ModeNormal, "obliterate all data", nil); d.RuleID == model.RuleBlockDestructive {
		t.Error("old keyword survived the swap")
	}

	// Nil restores the defaults.
	engine.SetConfig(nil)
	if d := engine.Evaluate(model.ModeNormal, "format c: /fs:ntfs", nil); d.RuleID != model.RuleBlockDestructive {
		t.Errorf("defaults not restored: %s", d.RuleID)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	engine := NewEngine(nil)

	first := engine.Evaluate(model.ModeNormal, "run powershell script", []string{"Documents"})
	second := engine.Evaluate(model.ModeNormal, "run powershell script", []string{"Documents"})
	if first != second {
		t.Errorf("evaluate not deterministic: %+v vs %+v", first, second)
	}
}
