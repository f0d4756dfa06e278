package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	return l, path
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 5; i++ {
		payload := map[string]any{"step": i}
		if err := l.Record("s-1", "action_eval", payload); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestFirstRecordPrevHashIsNull(t *testing.T) {
	l, path := newTestLog(t)
	if err := l.Record("s-1", "mode_change", map[string]any{"mode": "normal"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	l.Close()

	data, _ := os.ReadFile(path)
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if record["prev_hash"] != nil {
		t.Errorf("first record prev_hash = %v, want null", record["prev_hash"])
	}
	if _, ok := record["record_hash"].(string); !ok {
		t.Error("record_hash missing")
	}
}

func TestChainLinksAcrossRecords(t *testing.T) {
	l, path := newTestLog(t)
	_ = l.Record("s-1", "a", map[string]any{})
	_ = l.Record("s-1", "b", map[string]any{})
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	var first, second map[string]any
	_ = json.Unmarshal([]byte(lines[0]), &first)
	_ = json.Unmarshal([]byte(lines[1]), &second)

	if second["prev_hash"] != first["record_hash"] {
		t.Errorf("record 2 prev_hash %v does not equal record 1 record_hash %v",
			second["prev_hash"], first["record_hash"])
	}
}

func TestVerifyDetectsInPlaceMutation(t *testing.T) {
	l, path := newTestLog(t)
	_ = l.Record("s-1", "a", map[string]any{"n": 1})
	_ = l.Record("s-1", "b", map[string]any{"n": 2})
	_ = l.Record("s-1", "c", map[string]any{"n": 3})
	l.Close()

	// Mutate a field of record 2 without recomputing its hash.
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"event":"b"`, `"event":"x"`, 1)
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ErrorLine != 2 {
		t.Fatalf("expected failure at line 2, got line %d (%s)", result.ErrorLine, result.Error)
	}
}

func TestVerifyDetectsDeletedRecord(t *testing.T) {
	l, path := newTestLog(t)
	for _, e := range []string{"a", "b", "c"} {
		_ = l.Record("s-1", e, map[string]any{})
	}
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// Drop the middle record.
	os.WriteFile(path, []byte(lines[0]+"\n"+lines[2]+"\n"), 0600)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected chain with deleted record to be invalid")
	}
	if result.ErrorLine != 2 {
		t.Fatalf("expected failure at line 2, got %d", result.ErrorLine)
	}
}

func TestOpenRecoversChainTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = l.Record("s-1", "a", map[string]any{})
	l.Close()

	// Reopen and continue the chain.
	l, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = l.Record("s-1", "b", map[string]any{})
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("chain broken across reopen: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 2 {
		t.Fatalf("expected 2 lines, got %d", result.Lines)
	}
}

func TestReportCountsDecisions(t *testing.T) {
	l, path := newTestLog(t)
	decisions := []map[string]any{
		{"mode": "normal", "target": "host", "rule_id": "allow"},
		{"mode": "normal", "target": "host", "rule_id": "confirm-high-risk"},
		{"mode": "game", "target": "vm", "rule_id": "allow"},
	}
	for _, d := range decisions {
		_ = l.Record("s-1", "action_eval", map[string]any{"decision": d})
	}
	_ = l.Record("s-1", "mode_change", map[string]any{"mode": "game"})
	l.Close()

	summary, err := Report(path)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !summary.HashChainValid {
		t.Errorf("chain reported invalid: %s", summary.ChainError)
	}
	if summary.ModeCounts["normal"] != 2 || summary.ModeCounts["game"] != 1 {
		t.Errorf("wrong mode counts: %v", summary.ModeCounts)
	}
	if summary.TargetCounts["host"] != 2 || summary.TargetCounts["vm"] != 1 {
		t.Errorf("wrong target counts: %v", summary.TargetCounts)
	}
	if summary.RuleCounts["allow"] != 2 || summary.RuleCounts["confirm-high-risk"] != 1 {
		t.Errorf("wrong rule counts: %v", summary.RuleCounts)
	}
}

func FuzzVerify(f *testing.F) {
	f.Add([]byte(`{"event":"a","prev_hash":null,"record_hash":"x"}`))
	f.Add([]byte(`not json`))
	f.Add([]byte(``))

	f.Fuzz(func(t *testing.T, data []byte) {
		path := filepath.Join(t.TempDir(), "fuzz.jsonl")
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Skip()
		}
		// Must never panic, whatever the input.
		_ = Verify(path)
	})
}
