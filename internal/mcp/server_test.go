package mcp

import (
	"context"
	"path/filepath"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/deskbridge/internal/audit"
	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/orchestrator"
)

type fakeHost struct {
	total int
}

func (h *fakeHost) Move(x, y int) error  { h.total++; return nil }
func (h *fakeHost) Click(x, y int) error { h.total++; return nil }
func (h *fakeHost) Type(s string) error  { h.total++; return nil }

func newTestServer(t *testing.T) (*Server, *fakeHost) {
	t.Helper()
	log, err := audit.Open(filepath.Join(t.TempDir(), "audit.log"))
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	host := &fakeHost{}
	orch := orchestrator.New(orchestrator.Options{
		Log:     log,
		Host:    host,
		Session: "mcp-test",
		Settle:  1,
	})
	return New(orch, nil, nil), host
}

func TestCheckReturnsDecisionWithoutDispatch(t *testing.T) {
	s, host := newTestServer(t)

	result, out, err := s.handleCheck(context.Background(), &mcpsdk.CallToolRequest{}, ActionInput{
		Kind:      "type",
		Text:      "format c:",
		Rationale: "format c: to reset the disk",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("check is a dry run, not an error")
	}
	if out.Allowed {
		t.Error("destructive rationale allowed")
	}
	if out.RuleID != model.RuleBlockDestructive {
		t.Errorf("rule = %q", out.RuleID)
	}
	if host.total != 0 {
		t.Error("check dispatched input")
	}
}

func TestExecuteAllowedDispatches(t *testing.T) {
	s, host := newTestServer(t)

	result, out, err := s.handleExecute(context.Background(), &mcpsdk.CallToolRequest{}, ExecuteInput{
		ActionInput: ActionInput{Kind: "click", X: 10, Y: 20, Rationale: "click the ok button"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success result")
	}
	if !out.Dispatched {
		t.Error("allowed action not dispatched")
	}
	if host.total != 1 {
		t.Errorf("host calls = %d, want 1", host.total)
	}
}

func TestExecuteUnconfirmedHighRiskIsErrorResult(t *testing.T) {
	s, host := newTestServer(t)

	result, out, err := s.handleExecute(context.Background(), &mcpsdk.CallToolRequest{}, ExecuteInput{
		ActionInput: ActionInput{Kind: "click", X: 1, Y: 1, Rationale: "open powershell for diagnostics"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("unconfirmed gated action should be an error result")
	}
	if !out.RequiresConfirmation {
		t.Error("output should require confirmation")
	}
	if host.total != 0 {
		t.Error("unconfirmed action dispatched")
	}
}

func TestExecuteRejectsUnknownKind(t *testing.T) {
	s, _ := newTestServer(t)

	_, _, err := s.handleExecute(context.Background(), &mcpsdk.CallToolRequest{}, ExecuteInput{
		ActionInput: ActionInput{Kind: "drag", Rationale: "drag the window"},
	})
	if err == nil {
		t.Fatal("unknown action kind accepted")
	}
}

func TestModeSwitchAndRejection(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleMode(context.Background(), &mcpsdk.CallToolRequest{}, ModeInput{Mode: "sandbox"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Mode != "sandbox" || out.Target != model.TargetVM {
		t.Errorf("mode output = %+v", out)
	}

	if _, _, err := s.handleMode(context.Background(), &mcpsdk.CallToolRequest{}, ModeInput{Mode: "yolo"}); err == nil {
		t.Fatal("unknown mode accepted")
	}
}

func TestVMStatusWithoutAdapter(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleVMStatus(context.Background(), &mcpsdk.CallToolRequest{}, VMStatusInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Available {
		t.Error("no adapter configured, status should be unavailable")
	}
}
