package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/turnstile/internal/cli"
	"github.com/aretw0/turnstile/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the engine as an MCP server, so agents can hold conversations
through the send_activity, reset_conversation and inspect_stack tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		app, err := setupApp(cmd, cli.SetupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, mcp.WithLogger(app.Logger))

		switch transport {
		case "stdio":
			// Keep stdout clean for JSON-RPC
			log.SetOutput(os.Stderr)
			app.Logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := app.ShutdownContext(cmd.Context())
			defer stop()
			return srv.ServeSSE(ctx, port)
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
