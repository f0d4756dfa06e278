package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/deskbridge/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server for agent integration",
	Long: "Runs deskbridge as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes policy-enforced tools: bridge_capture, bridge_check,\n" +
		"bridge_execute, bridge_mode, bridge_vm_status. Unlike run, no session\n" +
		"recorder or hot-reload watcher is started.",
	RunE: runMCPServe,
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := buildBridge(ctx, false)
	if err != nil {
		return err
	}
	defer b.close()

	srv := mcp.New(b.orch, b.rtr, b.vm)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
