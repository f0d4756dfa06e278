package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/mcp"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge as a long-lived session",
	Long: "Wires the full pipeline, hot-reloads the config and policy files on\n" +
		"change, and serves the MCP tools over stdio until interrupted.",
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := buildBridge(ctx, true)
	if err != nil {
		return err
	}
	defer b.close()

	fmt.Fprintf(os.Stderr, "deskbridge: session %s, mode %s, audit %s\n",
		b.orch.Session(), b.orch.Mode(), b.cfg.AuditPath)

	if err := watchPolicy(ctx, b); err != nil {
		return err
	}

	srv := mcp.New(b.orch, b.rtr, b.vm)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
