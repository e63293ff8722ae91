package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/mcp"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  list_products  - products acquired on a UTC day
  select_date    - make a day's newest product the active overlay

Resources:
  tracegas://layer/active  - the active overlay
  tracegas://legend        - colour scale of the configured gas

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default, for Claude Desktop)
  tracegas mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  tracegas mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "tracegas": {
        "command": "/path/to/tracegas",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	preset, err := domain.PresetFor(rt.settings.Gas)
	if err != nil {
		return err
	}

	// The server closes the session when it stops.
	session := rt.newSession(nil)

	ports := &mcp.Ports{
		Resolver: rt.resolver,
		Builder:  rt.builder,
		Session:  session,
		Legend:   preset.Legend,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
