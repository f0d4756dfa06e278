package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	LastHash  string `json:"last_hash,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify walks a JSONL log and validates the chain end to end. Fails
// closed: any unparseable line, broken prev_hash link, or record whose
// stored hash does not match its recomputed hash invalidates the log
// at exactly that line.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	var prevHash string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lineNum++

		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			return VerifyResult{Error: fmt.Sprintf("parse error: %v", err), ErrorLine: lineNum}
		}

		storedHash, _ := record["record_hash"].(string)
		if storedHash == "" {
			return VerifyResult{Error: "missing record_hash", ErrorLine: lineNum}
		}

		if lineNum == 1 {
			if record["prev_hash"] != nil {
				return VerifyResult{Error: "first record prev_hash is not null", ErrorLine: 1}
			}
		} else {
			linked, _ := record["prev_hash"].(string)
			if linked != prevHash {
				return VerifyResult{
					Error:     fmt.Sprintf("chain break: prev_hash %q does not match %q", linked, prevHash),
					ErrorLine: lineNum,
				}
			}
		}

		delete(record, "record_hash")
		computed, err := HashRecord(record)
		if err != nil {
			return VerifyResult{Error: err.Error(), ErrorLine: lineNum}
		}
		if computed != storedHash {
			return VerifyResult{
				Error:     fmt.Sprintf("record hash mismatch: stored %q, computed %q", storedHash, computed),
				ErrorLine: lineNum,
			}
		}

		prevHash = storedHash
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}

	return VerifyResult{Valid: true, Lines: lineNum, LastHash: prevHash}
}
