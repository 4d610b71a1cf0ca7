package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Starts the engine as an MCP Server so AI agents can request transitions
and inspect workflows as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := a.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := mcp.NewServer(rt.Engine,
				mcp.WithLogger(a.logger),
				mcp.WithVersion(strings.TrimSpace(statecraft.Version)),
			)

			switch transport {
			case "stdio":
				// Logs go to stderr; stdout carries JSON-RPC.
				a.logger.Info("Starting Statecraft MCP Server (Stdio)")
				return srv.ServeStdio()
			case "sse":
				addr := fmt.Sprintf(":%d", port)
				return srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port))
			default:
				return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
			}
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
	return cmd
}
