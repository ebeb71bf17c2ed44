package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/navo/internal/adapters/driving/mcp"
	"github.com/custodia-labs/navo/internal/logger"
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

By default, the server communicates over stdio using JSON-RPC. Every request
is answered as the caller given by --user, --team and --project.

Sources that report changes (local directories) are watched while the server
runs, and cached answers that drew on a changed document are evicted.

Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  navo mcp serve --user ana --team platform

  # HTTP mode (for MCP Inspector, remote access)
  navo mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "navo": {
        "command": "/path/to/navo",
        "args": ["mcp", "serve", "--user", "ana"]
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

	ports := &mcp.Ports{
		Answer:  app.Answer,
		Trace:   app.Trace,
		Sources: app.Sources,
		Caller:  caller(),
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if watcher, ok := app.Sources.(sourceWatcher); ok {
		watching := watcher.Watch(cmd.Context(), invalidateOnChange(cmd.Context(), app.Cache))
		if len(watching) > 0 {
			logger.Info("Watching sources for changes: %v", watching)
		}
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
