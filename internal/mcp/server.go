// Package mcp exposes the bridge to an agent over the Model Context
// Protocol on stdio. Every tool call funnels through the orchestrator,
// so policy, cancellation, and audit apply exactly as they do for the
// CLI.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/deskbridge/internal/orchestrator"
	"github.com/ppiankov/deskbridge/internal/router"
	"github.com/ppiankov/deskbridge/internal/vbox"
)

// Server wraps the MCP SDK server around the bridge pipeline.
type Server struct {
	mcpServer *mcpsdk.Server
	orch      *orchestrator.Orchestrator
	router    *router.Router
	vm        *vbox.Adapter
}

// New creates the MCP server and registers the bridge tools. Router
// and VM adapter may be nil; the corresponding tools then report the
// capability as unavailable.
func New(orch *orchestrator.Orchestrator, rtr *router.Router, vm *vbox.Adapter) *Server {
	s := &Server{orch: orch, router: rtr, vm: vm}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "deskbridge",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bridge_capture",
		Description: "Capture the current screen, redact PII, and optionally describe the redacted frame with the vision model.",
	}, s.handleCapture)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bridge_check",
		Description: "Evaluate an action against policy without executing it (dry-run). Returns the full decision.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bridge_execute",
		Description: "Execute an action through the policy pipeline. Blocked or unconfirmed actions return the decision with an error flag.",
	}, s.handleExecute)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bridge_mode",
		Description: "Switch the operating mode (normal/game/sandbox). Leaving normal arms the kill switch.",
	}, s.handleMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bridge_vm_status",
		Description: "Report the VM adapter state, optionally running the full selfcheck.",
	}, s.handleVMStatus)
}
