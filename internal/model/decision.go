package model

// RiskLevel classifies how dangerous a proposed action looks.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Stable rule identifiers cited in decisions and audit records.
const (
	RuleBlockDestructive     = "block-destructive"
	RuleDenyOutsideAllowlist = "deny-outside-allowlist"
	RuleConfirmHighRisk      = "confirm-high-risk"
	RuleConfirmMediumRisk    = "confirm-medium-risk"
	RuleConfirmHighRiskVM    = "confirm-high-risk-vm"
	RuleAllow                = "allow"
	RuleCancelled            = "cancelled"
)

// PolicyDecision is the single authoritative verdict for one action
// attempt. Immutable; one per evaluation. A denial is a value, never
// an error — expected, frequent, fully recoverable.
type PolicyDecision struct {
	Allowed              bool      `json:"allowed"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	Risk                 RiskLevel `json:"risk"`
	Reason               string    `json:"reason"`
	RuleID               string    `json:"rule_id"`
	Target               string    `json:"target"`
	Mode                 Mode      `json:"mode"`
}

// Cancelled is the synthetic decision returned when the kill switch has
// fired. It pre-empts policy evaluation entirely.
func Cancelled(mode Mode) PolicyDecision {
	return PolicyDecision{
		Allowed:              false,
		RequiresConfirmation: true,
		Risk:                 RiskHigh,
		Reason:               "Cancelled by user input",
		RuleID:               RuleCancelled,
		Target:               mode.Target(),
		Mode:                 mode,
	}
}
