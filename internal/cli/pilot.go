package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/orchestrator"
	"github.com/ppiankov/deskbridge/internal/pilot"
	"github.com/ppiankov/deskbridge/internal/redact"
	"github.com/ppiankov/deskbridge/internal/router"
)

var pilotGoal string

func init() {
	rootCmd.AddCommand(pilotCmd)
	pilotCmd.Flags().StringVar(&pilotGoal, "goal", "", "Goal prompt for the planning model")
}

var pilotCmd = &cobra.Command{
	Use:   "pilot",
	Short: "Run the autonomous VM-piloting loop",
	Long: "Switches to game mode and cycles capture/decide/dispatch against\n" +
		"the VM on a fixed cadence until the process is interrupted.",
	RunE: runPilot,
}

func runPilot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := buildBridge(ctx, true)
	if err != nil {
		return err
	}
	defer b.close()

	if b.vm == nil {
		return errors.New("pilot needs a VM: set vm.vm_name in the bridge config")
	}
	if err := b.orch.SetMode(model.ModeGame); err != nil {
		return err
	}
	if err := watchPolicy(ctx, b); err != nil {
		return err
	}

	planner := &routerPlanner{rtr: b.rtr, orch: b.orch, goal: pilotGoal}
	p := pilot.New(b.orch, planner, b.token, b.cfg.Cadence, b.cfg.Calibration)

	fmt.Fprintf(os.Stderr, "deskbridge: piloting %s every %s\n",
		b.cfg.VM.VMName, b.cfg.Cadence)

	err = p.Run(ctx)
	snap, _ := json.Marshal(p.Metrics())
	fmt.Fprintf(os.Stderr, "deskbridge: pilot stopped, latencies %s\n", snap)

	if errors.Is(err, orchestrator.ErrCancelled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// routerPlanner turns a redacted frame into the next action by asking
// the vision model to describe the frame and the reasoner to pick one
// move. The reply format is a single line: KIND X Y | KIND text.
type routerPlanner struct {
	rtr  *router.Router
	orch *orchestrator.Orchestrator
	goal string
}

func (p *routerPlanner) NextAction(ctx context.Context, frame *redact.Frame) (model.Action, string, error) {
	mode := p.orch.Mode()
	scene, err := p.rtr.Describe(ctx, frame, "Describe the visible UI elements and their positions.", mode)
	if err != nil {
		return model.Action{}, "", err
	}

	prompt := fmt.Sprintf(
		"Goal: %s\nScene: %s\nReply with exactly one action: MOVE x y, CLICK x y, TYPE text, or WAIT ms.",
		p.goal, scene)
	reply, err := p.rtr.Plan(ctx, prompt, mode)
	if err != nil {
		return model.Action{}, "", err
	}

	action, err := parseAction(reply)
	if err != nil {
		return model.Action{}, "", err
	}
	return action, reply, nil
}

func parseAction(reply string) (model.Action, error) {
	fields := strings.Fields(strings.TrimSpace(reply))
	if len(fields) == 0 {
		return model.Action{}, errors.New("empty plan reply")
	}
	var x, y, ms int
	switch strings.ToUpper(fields[0]) {
	case "MOVE":
		if _, err := fmt.Sscanf(strings.Join(fields[1:], " "), "%d %d", &x, &y); err != nil {
			return model.Action{}, fmt.Errorf("parse move %q: %w", reply, err)
		}
		return model.Move(x, y), nil
	case "CLICK":
		if _, err := fmt.Sscanf(strings.Join(fields[1:], " "), "%d %d", &x, &y); err != nil {
			return model.Action{}, fmt.Errorf("parse click %q: %w", reply, err)
		}
		return model.Click(x, y), nil
	case "TYPE":
		return model.Type(strings.Join(fields[1:], " ")), nil
	case "WAIT":
		if _, err := fmt.Sscanf(strings.Join(fields[1:], " "), "%d", &ms); err != nil {
			return model.Action{}, fmt.Errorf("parse wait %q: %w", reply, err)
		}
		return model.Wait(ms), nil
	default:
		return model.Action{}, fmt.Errorf("unrecognized action %q", reply)
	}
}
