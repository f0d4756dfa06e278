package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/audit"
	"github.com/ppiankov/deskbridge/internal/model"
)

var replayInterval time.Duration

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 200*time.Millisecond, "Delay between steps")
}

var replayCmd = &cobra.Command{
	Use:   "replay <session-dir>",
	Short: "Step through a recorded session's pointer events",
	Long: "Reads actions.jsonl from a session directory and plays the MOVE and\n" +
		"CLICK events through a terminal preview on a fixed timer. Recorded\n" +
		"sessions never contain text, so nothing sensitive can be replayed.",
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

// termPreview prints replayed actions one per line.
type termPreview struct {
	step int
}

func (p *termPreview) PreviewAction(a model.Action) {
	p.step++
	fmt.Printf("%4d  %-5s (%d, %d)\n", p.step, string(a.Kind), a.X, a.Y)
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := filepath.Join(args[0], "actions.jsonl")
	actions, err := audit.ReadActions(path)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		fmt.Fprintf(os.Stderr, "no pointer events in %s\n", path)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "replaying %d events every %s\n", len(actions), replayInterval)
	if err := audit.Replay(ctx, actions, &termPreview{}, replayInterval); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
