// Package pilot runs the continuous VM-piloting loop: capture a frame,
// ask the planner for the next action, push it through the policy
// pipeline, repeat on a fixed cadence until cancelled.
package pilot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/deskbridge/internal/cancel"
	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/orchestrator"
	"github.com/ppiankov/deskbridge/internal/redact"
)

// Planner proposes the next action for a redacted frame. A model-backed
// planner sits behind the router; tests use a script.
type Planner interface {
	NextAction(ctx context.Context, frame *redact.Frame) (model.Action, string, error)
}

// Pilot drives one autonomous session. It never confirms actions on
// its own: anything policy gates on confirmation is skipped, because
// there is no operator in the loop to ask.
type Pilot struct {
	orch    *orchestrator.Orchestrator
	planner Planner
	token   *cancel.Token
	cadence time.Duration
	cal     Calibration
	metrics Metrics
}

func New(orch *orchestrator.Orchestrator, planner Planner, token *cancel.Token, cadence time.Duration, cal Calibration) *Pilot {
	if cadence <= 0 {
		cadence = time.Second
	}
	if cal == (Calibration{}) {
		cal = Identity
	}
	return &Pilot{orch: orch, planner: planner, token: token, cadence: cadence, cal: cal}
}

// Metrics returns the loop's rolling stage latencies.
func (p *Pilot) Metrics() Snapshot { return p.metrics.Snapshot() }

// Run executes the loop until ctx is done or the kill switch fires.
// Individual cycle failures are logged and skipped; only cancellation
// and context expiry end the loop.
func (p *Pilot) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if p.token.IsCancelled() {
			return orchestrator.ErrCancelled
		}
		if err := p.cycle(ctx); err != nil {
			if errors.Is(err, orchestrator.ErrCancelled) {
				return err
			}
			fmt.Fprintln(os.Stderr, "deskbridge: pilot cycle:", err)
		}
	}
}

func (p *Pilot) cycle(ctx context.Context) error {
	start := time.Now()
	frame, err := p.orch.CaptureAndRedact(ctx)
	p.metrics.Frame.Add(time.Since(start))
	if err != nil {
		return err
	}
	if frame == nil {
		return nil
	}

	start = time.Now()
	action, rationale, err := p.planner.NextAction(ctx, frame)
	p.metrics.Decide.Add(time.Since(start))
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	if action.HasPoint() {
		x, y := p.cal.MapPoint(action.X, action.Y)
		action.X, action.Y = x, y
	}

	start = time.Now()
	_, err = p.orch.ExecuteAction(ctx, action, rationale, false)
	p.metrics.Dispatch.Add(time.Since(start))
	if errors.Is(err, orchestrator.ErrConfirmationRequired) {
		// No operator in the loop; skip and keep going.
		return nil
	}
	return err
}
