// Package orchestrator composes the bridge: capture, redaction,
// policy, cancellation, and dispatch meet here. Every action attempt
// passes through ExecuteAction exactly once and leaves a full audit
// trail regardless of outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/deskbridge/internal/audit"
	"github.com/ppiankov/deskbridge/internal/cancel"
	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/pii"
	"github.com/ppiankov/deskbridge/internal/policy"
	"github.com/ppiankov/deskbridge/internal/redact"
	"github.com/ppiankov/deskbridge/internal/vision"
)

// ErrCancelled reports that the kill switch fired before or during an
// action attempt.
var ErrCancelled = errors.New("cancelled by user input")

// ErrConfirmationRequired reports that policy allows the action only
// after explicit operator confirmation, which was not given.
var ErrConfirmationRequired = errors.New("confirmation required")

// HostInput injects input events into the physical host. Implemented
// by a platform adapter in the desktop build; tests use a fake.
type HostInput interface {
	Move(x, y int) error
	Click(x, y int) error
	Type(text string) error
}

// VMDispatcher injects input events into the isolated VM.
// *vbox.Adapter satisfies this.
type VMDispatcher interface {
	SendInput(action model.Action) error
}

// Options wires the orchestrator's collaborators. Capturer, OCR,
// Preview, Host, and VM may be nil; the corresponding stage degrades
// or errors at use.
type Options struct {
	Engine    *policy.Engine
	Token     *cancel.Token
	Monitor   cancel.InputMonitor
	Log       *audit.Log
	Recorder  *SessionRecorder
	Capturer  vision.ScreenCapturer
	OCR       vision.OCREngine
	Detector  *pii.Detector
	Preview   audit.CursorPreview
	Host      HostInput
	VM        VMDispatcher
	Allowlist []string
	DryRun    bool
	Settle    time.Duration
	Session   string
}

// Orchestrator owns the session state: the operating mode, the last
// redacted frame, and the last decision. All methods are safe for
// concurrent use.
type Orchestrator struct {
	mu           sync.Mutex
	mode         model.Mode
	lastFrame    *redact.Frame
	lastDecision *model.PolicyDecision

	engine    *policy.Engine
	token     *cancel.Token
	kill      *cancel.KillSwitch
	log       *audit.Log
	recorder  *SessionRecorder
	capturer  vision.ScreenCapturer
	ocr       vision.OCREngine
	detector  *pii.Detector
	preview   audit.CursorPreview
	host      HostInput
	vm        VMDispatcher
	allowlist []string
	dryRun    bool
	settle    time.Duration
	session   string
}

// New starts a session in NORMAL mode with the kill switch armed:
// host-facing automation must die the instant a human touches the
// physical input devices.
func New(opts Options) *Orchestrator {
	if opts.Engine == nil {
		opts.Engine = policy.NewEngine(nil)
	}
	if opts.Token == nil {
		opts.Token = cancel.NewToken()
	}
	if opts.Detector == nil {
		opts.Detector = pii.NewDetector()
	}
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}
	if opts.Session == "" && opts.Recorder != nil {
		opts.Session = opts.Recorder.Session()
	}

	o := &Orchestrator{
		mode:      model.ModeNormal,
		engine:    opts.Engine,
		token:     opts.Token,
		log:       opts.Log,
		recorder:  opts.Recorder,
		capturer:  opts.Capturer,
		ocr:       opts.OCR,
		detector:  opts.Detector,
		preview:   opts.Preview,
		host:      opts.Host,
		vm:        opts.VM,
		allowlist: opts.Allowlist,
		dryRun:    opts.DryRun,
		settle:    opts.Settle,
		session:   opts.Session,
	}
	o.kill = cancel.NewKillSwitch(opts.Token, opts.Monitor, func(reason string) {
		o.audit("cancelled", map[string]any{"reason": reason})
	})
	if err := o.kill.Arm(); err != nil {
		fmt.Fprintln(os.Stderr, "deskbridge: arm kill switch:", err)
	}
	return o
}

// Mode returns the current operating mode.
func (o *Orchestrator) Mode() model.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Session returns the session identifier used in audit records.
func (o *Orchestrator) Session() string { return o.session }

// LastFrame returns the most recent redacted frame, or nil.
func (o *Orchestrator) LastFrame() *redact.Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastFrame
}

// LastDecision returns a copy of the most recent decision, or nil.
func (o *Orchestrator) LastDecision() *model.PolicyDecision {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastDecision == nil {
		return nil
	}
	d := *o.lastDecision
	return &d
}

// SetMode switches the operating mode. The kill switch stays armed
// exactly while the mode is NORMAL; VM-facing modes disarm it because
// host input is irrelevant to an isolated guest. Returning to NORMAL
// also resets the cancellation latch so a past trip cannot block the
// next host-facing run.
func (o *Orchestrator) SetMode(mode model.Mode) error {
	o.mu.Lock()
	prev := o.mode
	o.mode = mode
	o.mu.Unlock()

	if mode == model.ModeNormal {
		o.token.Reset()
		if err := o.kill.Arm(); err != nil {
			o.mu.Lock()
			o.mode = prev
			o.mu.Unlock()
			return fmt.Errorf("arm kill switch: %w", err)
		}
	} else {
		o.kill.Disarm()
	}

	o.audit("mode_change", map[string]any{
		"from": string(prev),
		"to":   string(mode),
	})
	return nil
}

// CaptureAndRedact grabs a frame, locates PII via OCR, and blacks it
// out. The raw frame never leaves this method. Returns (nil, nil) when
// capture degraded and there is no frame this cycle.
func (o *Orchestrator) CaptureAndRedact(ctx context.Context) (*redact.Frame, error) {
	if o.capturer == nil {
		return nil, errors.New("no screen capturer configured")
	}
	img, err := o.capturer.Capture()
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if img == nil {
		o.audit("capture", map[string]any{"degraded": true})
		return nil, nil
	}

	var boxes []model.TextBox
	if o.ocr != nil {
		boxes, err = o.ocr.DetectTextBoxes(img)
		if err != nil {
			return nil, fmt.Errorf("ocr: %w", err)
		}
	}
	piiBoxes := o.detector.FindPIIBoxes(boxes)
	frame := redact.Redact(img, piiBoxes)

	o.mu.Lock()
	o.lastFrame = frame
	o.mu.Unlock()

	meta := frame.Meta()
	o.audit("capture", map[string]any{
		"width":      meta.Width,
		"height":     meta.Height,
		"text_boxes": len(boxes),
		"pii_boxes":  len(piiBoxes),
	})
	return frame, nil
}

// DryRunAction evaluates an action without dispatching it. The
// decision is recorded and the ghost cursor previews pointer actions,
// so a dry run is observable end to end.
func (o *Orchestrator) DryRunAction(action model.Action, rationale string) model.PolicyDecision {
	decision := o.evaluate(action, rationale)
	if o.preview != nil && action.HasPoint() {
		o.preview.PreviewAction(action)
	}
	return decision
}

// ExecuteAction runs the full per-action pipeline: cancellation check,
// policy evaluation with ghost-cursor preview, confirmation gate, then
// dispatch to the target
// the mode selects. The returned decision is authoritative even when
// an error is also returned.
func (o *Orchestrator) ExecuteAction(ctx context.Context, action model.Action, rationale string, confirmed bool) (model.PolicyDecision, error) {
	decision := o.DryRunAction(action, rationale)

	if decision.RuleID == model.RuleCancelled {
		return decision, ErrCancelled
	}
	if o.dryRun {
		o.audit("action_skipped", map[string]any{
			"reason": "dry_run",
			"action": actionPayload(action),
		})
		return decision, nil
	}
	if !decision.Allowed {
		o.audit("action_blocked", map[string]any{
			"rule_id": decision.RuleID,
			"action":  actionPayload(action),
		})
		return decision, nil
	}
	if decision.RequiresConfirmation && !confirmed {
		o.audit("confirmation_required", map[string]any{
			"rule_id": decision.RuleID,
			"action":  actionPayload(action),
		})
		return decision, ErrConfirmationRequired
	}

	if err := o.dispatch(ctx, action, decision); err != nil {
		o.audit("dispatch_failed", map[string]any{
			"target": decision.Target,
			"error":  err.Error(),
			"action": actionPayload(action),
		})
		return decision, err
	}

	o.audit("action_dispatched", map[string]any{
		"target": decision.Target,
		"action": actionPayload(action),
	})
	return decision, nil
}

// evaluate is the single path to a decision. Cancellation pre-empts
// the policy engine entirely; every decision is audited and recorded.
func (o *Orchestrator) evaluate(action model.Action, rationale string) model.PolicyDecision {
	o.mu.Lock()
	mode := o.mode
	o.mu.Unlock()

	var decision model.PolicyDecision
	if o.token.IsCancelled() {
		decision = model.Cancelled(mode)
	} else {
		decision = o.engine.Evaluate(mode, rationale, o.allowlist)
	}

	o.mu.Lock()
	d := decision
	o.lastDecision = &d
	o.mu.Unlock()

	o.audit("action_eval", map[string]any{
		"decision":         decisionPayload(decision),
		"action":           actionPayload(action),
		"rationale_length": len(rationale),
	})
	if o.recorder != nil {
		if err := o.recorder.Record(action, decision); err != nil {
			fmt.Fprintln(os.Stderr, "deskbridge: record action:", err)
		}
	}
	return decision
}

// dispatch sends an allowed action to its target. Host dispatch waits
// out the settle delay first so the operator's hands are off the input
// devices, and re-checks cancellation after the wait.
func (o *Orchestrator) dispatch(ctx context.Context, action model.Action, decision model.PolicyDecision) error {
	if decision.Target == model.TargetVM {
		if o.vm == nil {
			return errors.New("no VM dispatcher configured")
		}
		return o.vm.SendInput(action)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.settle):
	}
	if o.token.IsCancelled() {
		return ErrCancelled
	}

	if o.host == nil {
		return errors.New("no host input configured")
	}
	switch action.Kind {
	case model.ActionMove:
		return o.host.Move(action.X, action.Y)
	case model.ActionClick:
		return o.host.Click(action.X, action.Y)
	case model.ActionType:
		return o.host.Type(action.Text)
	case model.ActionWait:
		d := time.Duration(action.DurationMS) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	default:
		return fmt.Errorf("unsupported action kind %q", action.Kind)
	}
}

func (o *Orchestrator) audit(event string, payload map[string]any) {
	if o.log == nil {
		return
	}
	if err := o.log.Record(o.session, event, payload); err != nil {
		fmt.Fprintln(os.Stderr, "deskbridge: audit:", err)
	}
}

// actionPayload is the only serializer for actions in audit records.
// It has no field for the raw text; only the length is representable.
func actionPayload(a model.Action) map[string]any {
	p := map[string]any{"kind": string(a.Kind)}
	if a.HasPoint() {
		p["x"] = a.X
		p["y"] = a.Y
	}
	if a.Kind == model.ActionType {
		p["text_length"] = a.TextLength()
	}
	if a.Kind == model.ActionWait {
		p["duration_ms"] = a.DurationMS
	}
	return p
}

func decisionPayload(d model.PolicyDecision) map[string]any {
	return map[string]any{
		"allowed":               d.Allowed,
		"requires_confirmation": d.RequiresConfirmation,
		"risk":                  string(d.Risk),
		"reason":                d.Reason,
		"rule_id":               d.RuleID,
		"target":                d.Target,
		"mode":                  string(d.Mode),
	}
}
