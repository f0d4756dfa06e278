package pilot

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/deskbridge/internal/audit"
	"github.com/ppiankov/deskbridge/internal/cancel"
	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/orchestrator"
	"github.com/ppiankov/deskbridge/internal/redact"
)

type scriptedPlanner struct {
	actions []model.Action
	calls   int
}

func (p *scriptedPlanner) NextAction(_ context.Context, _ *redact.Frame) (model.Action, string, error) {
	a := p.actions[p.calls%len(p.actions)]
	p.calls++
	return a, "advance the game state", nil
}

type stubCapturer struct{}

func (stubCapturer) Capture() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

type recordingVM struct {
	sent []model.Action
}

func (v *recordingVM) SendInput(a model.Action) error {
	v.sent = append(v.sent, a)
	return nil
}

func testPilot(t *testing.T, planner Planner, token *cancel.Token, cal Calibration) (*Pilot, *recordingVM) {
	t.Helper()
	log, err := audit.Open(filepath.Join(t.TempDir(), "audit.log"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })

	vm := &recordingVM{}
	orch := orchestrator.New(orchestrator.Options{
		Token:    token,
		Log:      log,
		Capturer: stubCapturer{},
		VM:       vm,
		Session:  "pilot-test",
	})
	if err := orch.SetMode(model.ModeGame); err != nil {
		t.Fatal(err)
	}
	return New(orch, planner, token, 5*time.Millisecond, cal), vm
}

func TestRunStopsOnContextDone(t *testing.T) {
	token := cancel.NewToken()
	p, vm := testPilot(t, &scriptedPlanner{actions: []model.Action{model.Move(1, 1)}}, token, Identity)

	ctx, stop := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer stop()

	err := p.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() = %v, want deadline exceeded", err)
	}
	if len(vm.sent) == 0 {
		t.Error("no cycles completed before the deadline")
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	token := cancel.NewToken()
	p, _ := testPilot(t, &scriptedPlanner{actions: []model.Action{model.Move(1, 1)}}, token, Identity)

	go func() {
		time.Sleep(15 * time.Millisecond)
		token.Cancel()
	}()

	ctx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()

	err := p.Run(ctx)
	if !errors.Is(err, orchestrator.ErrCancelled) {
		t.Fatalf("Run() = %v, want ErrCancelled", err)
	}
}

func TestCycleAppliesCalibration(t *testing.T) {
	token := cancel.NewToken()
	cal := Calibration{ScaleX: 2, ScaleY: 2, OffsetX: 10, OffsetY: 20}
	p, vm := testPilot(t, &scriptedPlanner{actions: []model.Action{model.Click(5, 7)}}, token, cal)

	if err := p.cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(vm.sent) != 1 {
		t.Fatalf("dispatched actions = %d, want 1", len(vm.sent))
	}
	if vm.sent[0].X != 20 || vm.sent[0].Y != 34 {
		t.Errorf("mapped point = (%d, %d), want (20, 34)", vm.sent[0].X, vm.sent[0].Y)
	}
}

func TestCycleRecordsStageLatencies(t *testing.T) {
	token := cancel.NewToken()
	p, _ := testPilot(t, &scriptedPlanner{actions: []model.Action{model.Move(1, 1)}}, token, Identity)

	if err := p.cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := p.Metrics()
	if snap.Cycles != 1 {
		t.Errorf("cycles = %d, want 1", snap.Cycles)
	}
}

func TestRollingMetricWindow(t *testing.T) {
	var m RollingMetric
	for i := 0; i < metricWindow+10; i++ {
		m.Add(time.Duration(i) * time.Millisecond)
	}
	if m.Count() != metricWindow {
		t.Errorf("count = %d, want %d", m.Count(), metricWindow)
	}
	if avg := m.Average(); avg <= 0 {
		t.Errorf("average = %v, want positive", avg)
	}
}

func TestRollingMetricEmptyAverage(t *testing.T) {
	var m RollingMetric
	if avg := m.Average(); avg != 0 {
		t.Errorf("empty average = %v, want 0", avg)
	}
}

func TestComputeCalibration(t *testing.T) {
	cal, err := ComputeCalibration(800, 600, 1600, 1200)
	if err != nil {
		t.Fatal(err)
	}
	if cal.ScaleX != 2 || cal.ScaleY != 2 {
		t.Errorf("scale = (%v, %v), want (2, 2)", cal.ScaleX, cal.ScaleY)
	}
	x, y := cal.MapPoint(100, 50)
	if x != 200 || y != 100 {
		t.Errorf("MapPoint = (%d, %d), want (200, 100)", x, y)
	}

	if _, err := ComputeCalibration(0, 600, 1600, 1200); err == nil {
		t.Error("zero-width frame calibrated without error")
	}
	if _, err := ComputeCalibration(800, 0, 1600, 1200); err == nil {
		t.Error("zero-height frame calibrated without error")
	}
}
