package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/orchestrator"
)

// --- Input/Output types ---

// CaptureInput defines parameters for the bridge_capture tool.
type CaptureInput struct {
	Prompt string `json:"prompt,omitempty" jsonschema:"optional prompt for the vision model"`
}

// CaptureOutput reports the redacted frame's metadata. The frame
// itself never crosses the protocol; only the description does.
type CaptureOutput struct {
	Degraded    bool   `json:"degraded,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	PIIBoxes    int    `json:"pii_boxes"`
	Description string `json:"description,omitempty"`
}

// ActionInput is the shared action shape for check and execute.
type ActionInput struct {
	Kind       string `json:"kind" jsonschema:"action kind (move/click/type/wait)"`
	X          int    `json:"x,omitempty" jsonschema:"x coordinate for move/click"`
	Y          int    `json:"y,omitempty" jsonschema:"y coordinate for move/click"`
	Text       string `json:"text,omitempty" jsonschema:"text payload for type"`
	DurationMS int    `json:"duration_ms,omitempty" jsonschema:"pause length for wait"`
	Rationale  string `json:"rationale" jsonschema:"what the agent intends and why"`
}

// ExecuteInput adds the confirmation flag to the action shape.
type ExecuteInput struct {
	ActionInput
	Confirmed bool `json:"confirmed,omitempty" jsonschema:"operator confirmation for gated actions"`
}

// DecisionOutput mirrors the policy decision for the agent.
type DecisionOutput struct {
	Allowed              bool   `json:"allowed"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Risk                 string `json:"risk"`
	Reason               string `json:"reason"`
	RuleID               string `json:"rule_id"`
	Target               string `json:"target"`
	Mode                 string `json:"mode"`
	Dispatched           bool   `json:"dispatched,omitempty"`
}

// ModeInput defines parameters for the bridge_mode tool.
type ModeInput struct {
	Mode string `json:"mode" jsonschema:"operating mode (normal/game/sandbox)"`
}

// ModeOutput confirms the switch.
type ModeOutput struct {
	Mode   string `json:"mode"`
	Target string `json:"target"`
}

// VMStatusInput defines parameters for the bridge_vm_status tool.
type VMStatusInput struct {
	Selfcheck bool `json:"selfcheck,omitempty" jsonschema:"run the full selfcheck"`
}

// VMStatusOutput reports adapter state and optional selfcheck results.
type VMStatusOutput struct {
	Available bool          `json:"available"`
	State     string        `json:"state,omitempty"`
	Status    string        `json:"status,omitempty"`
	Checks    []CheckResult `json:"checks,omitempty"`
}

// CheckResult is one selfcheck line.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	Fix    string `json:"fix,omitempty"`
}

// --- Handlers ---

func (s *Server) handleCapture(ctx context.Context, req *mcpsdk.CallToolRequest, input CaptureInput) (*mcpsdk.CallToolResult, CaptureOutput, error) {
	frame, err := s.orch.CaptureAndRedact(ctx)
	if err != nil {
		return nil, CaptureOutput{}, err
	}
	if frame == nil {
		return nil, CaptureOutput{Degraded: true}, nil
	}

	meta := frame.Meta()
	out := CaptureOutput{
		Width:    meta.Width,
		Height:   meta.Height,
		PIIBoxes: meta.PIIBoxCount,
	}
	if input.Prompt != "" {
		if s.router == nil {
			return nil, out, errors.New("no vision model configured")
		}
		desc, err := s.router.Describe(ctx, frame, input.Prompt, s.orch.Mode())
		if err != nil {
			return nil, out, fmt.Errorf("describe: %w", err)
		}
		out.Description = desc
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input ActionInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	action, err := input.action()
	if err != nil {
		return nil, DecisionOutput{}, err
	}
	decision := s.orch.DryRunAction(action, input.Rationale)
	return nil, decisionOutput(decision, false), nil
}

func (s *Server) handleExecute(ctx context.Context, req *mcpsdk.CallToolRequest, input ExecuteInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	action, err := input.action()
	if err != nil {
		return nil, DecisionOutput{}, err
	}

	decision, err := s.orch.ExecuteAction(ctx, action, input.Rationale, input.Confirmed)
	switch {
	case errors.Is(err, orchestrator.ErrCancelled),
		errors.Is(err, orchestrator.ErrConfirmationRequired):
		return &mcpsdk.CallToolResult{IsError: true}, decisionOutput(decision, false), nil
	case err != nil:
		return nil, decisionOutput(decision, false), err
	case !decision.Allowed:
		return &mcpsdk.CallToolResult{IsError: true}, decisionOutput(decision, false), nil
	}
	return nil, decisionOutput(decision, true), nil
}

func (s *Server) handleMode(ctx context.Context, req *mcpsdk.CallToolRequest, input ModeInput) (*mcpsdk.CallToolResult, ModeOutput, error) {
	mode, err := model.ParseMode(input.Mode)
	if err != nil {
		return nil, ModeOutput{}, err
	}
	if err := s.orch.SetMode(mode); err != nil {
		return nil, ModeOutput{}, err
	}
	return nil, ModeOutput{Mode: string(mode), Target: mode.Target()}, nil
}

func (s *Server) handleVMStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input VMStatusInput) (*mcpsdk.CallToolResult, VMStatusOutput, error) {
	if s.vm == nil {
		return nil, VMStatusOutput{}, nil
	}
	out := VMStatusOutput{
		Available: true,
		State:     s.vm.State(),
		Status:    s.vm.Status(),
	}
	if input.Selfcheck {
		for _, c := range s.vm.Selfcheck() {
			out.Checks = append(out.Checks, CheckResult{
				Name:   c.Name,
				Passed: c.Passed,
				Detail: c.Detail,
				Fix:    c.Fix,
			})
		}
	}
	return nil, out, nil
}

func (in ActionInput) action() (model.Action, error) {
	switch model.ActionKind(in.Kind) {
	case model.ActionMove:
		return model.Move(in.X, in.Y), nil
	case model.ActionClick:
		return model.Click(in.X, in.Y), nil
	case model.ActionType:
		return model.Type(in.Text), nil
	case model.ActionWait:
		return model.Wait(in.DurationMS), nil
	default:
		return model.Action{}, fmt.Errorf("unknown action kind %q", in.Kind)
	}
}

func decisionOutput(d model.PolicyDecision, dispatched bool) DecisionOutput {
	return DecisionOutput{
		Allowed:              d.Allowed,
		RequiresConfirmation: d.RequiresConfirmation,
		Risk:                 string(d.Risk),
		Reason:               d.Reason,
		RuleID:               d.RuleID,
		Target:               d.Target,
		Mode:                 string(d.Mode),
		Dispatched:           dispatched,
	}
}
