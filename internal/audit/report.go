package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Summary aggregates a session log for the audit report tool.
type Summary struct {
	ModeCounts     map[string]int `json:"mode_counts"`
	TargetCounts   map[string]int `json:"target_counts"`
	RuleCounts     map[string]int `json:"rule_counts"`
	HashChainValid bool           `json:"hash_chain_valid"`
	LastHash       string         `json:"last_hash,omitempty"`
	ChainError     string         `json:"chain_error,omitempty"`
}

// Report verifies the chain and counts evaluated actions by mode,
// routing target, and firing rule.
func Report(path string) (*Summary, error) {
	summary := &Summary{
		ModeCounts:   make(map[string]int),
		TargetCounts: make(map[string]int),
		RuleCounts:   make(map[string]int),
	}

	verify := Verify(path)
	summary.HashChainValid = verify.Valid
	summary.LastHash = verify.LastHash
	if !verify.Valid {
		summary.ChainError = verify.Error
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record struct {
			Event   string `json:"event"`
			Payload struct {
				Decision struct {
					Mode   string `json:"mode"`
					Target string `json:"target"`
					RuleID string `json:"rule_id"`
				} `json:"decision"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue // counting is best-effort; verification already flagged it
		}
		if record.Event != "action_eval" {
			continue
		}
		summary.ModeCounts[orUnknown(record.Payload.Decision.Mode)]++
		summary.TargetCounts[orUnknown(record.Payload.Decision.Target)]++
		summary.RuleCounts[orUnknown(record.Payload.Decision.RuleID)]++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return summary, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
