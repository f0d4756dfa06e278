package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/orchestrator"
)

var (
	execKind      string
	execX         int
	execY         int
	execText      string
	execDuration  int
	execRationale string
	execConfirm   bool
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVar(&execKind, "kind", "click", "Action kind (move/click/type/wait)")
	execCmd.Flags().IntVar(&execX, "x", 0, "X coordinate for move/click")
	execCmd.Flags().IntVar(&execY, "y", 0, "Y coordinate for move/click")
	execCmd.Flags().StringVar(&execText, "text", "", "Text payload for type")
	execCmd.Flags().IntVar(&execDuration, "duration", 0, "Pause length in ms for wait")
	execCmd.Flags().StringVar(&execRationale, "rationale", "", "What this action does and why")
	execCmd.Flags().BoolVar(&execConfirm, "confirm", false, "Confirm a gated action")
	execCmd.MarkFlagRequired("rationale")
}

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute a single action through the policy pipeline",
	Long: "Evaluates one action, records the decision in the audit log, and\n" +
		"dispatches it to the target the current mode selects. Gated actions\n" +
		"need --confirm; blocked actions exit non-zero with the decision.",
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	action, err := buildAction(execKind, execX, execY, execText, execDuration)
	if err != nil {
		return err
	}

	ctx := context.Background()
	b, err := buildBridge(ctx, true)
	if err != nil {
		return err
	}
	defer b.close()

	decision, execErr := b.orch.ExecuteAction(ctx, action, execRationale, execConfirm)

	out, _ := json.MarshalIndent(decision, "", "  ")
	fmt.Println(string(out))

	switch {
	case errors.Is(execErr, orchestrator.ErrConfirmationRequired):
		fmt.Fprintln(os.Stderr, "confirmation required: re-run with --confirm")
		os.Exit(1)
	case errors.Is(execErr, orchestrator.ErrCancelled):
		fmt.Fprintln(os.Stderr, "cancelled by user input")
		os.Exit(1)
	case execErr != nil:
		return execErr
	case !decision.Allowed:
		os.Exit(1)
	}
	return nil
}

func buildAction(kind string, x, y int, text string, durationMS int) (model.Action, error) {
	switch model.ActionKind(kind) {
	case model.ActionMove:
		return model.Move(x, y), nil
	case model.ActionClick:
		return model.Click(x, y), nil
	case model.ActionType:
		if text == "" {
			return model.Action{}, errors.New("type action needs --text")
		}
		return model.Type(text), nil
	case model.ActionWait:
		return model.Wait(durationMS), nil
	default:
		return model.Action{}, fmt.Errorf("unknown action kind %q", kind)
	}
}
