package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/mcp"
)

var (
	mcpHost string
	mcpPort int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose validation sessions to AI agents",
	Long:  `Run or inspect the Model Context Protocol server.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start an MCP server that lets an agent run pending sessions and read
their progress, results and unit requirements.

Without --port the server speaks JSON-RPC over stdio, which is what desktop
agents expect:

  {
    "mcpServers": {
      "compliance": {"command": "/path/to/compliance", "args": ["mcp", "serve"]}
    }
  }

With --port it serves streamable HTTP instead, for the MCP Inspector or
remote agents. It binds to localhost unless --host says otherwise.`,
	Example: `  compliance mcp serve
  compliance mcp serve --port 8090
  compliance mcp serve --host 0.0.0.0 --port 8090`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

var mcpToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the MCP server registers",
	Args:  cobra.NoArgs,
	RunE:  runMCPTools,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "127.0.0.1", "HTTP bind address")
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 serves stdio)")
	mcpCmd.AddCommand(mcpServeCmd, mcpToolsCmd)
	rootCmd.AddCommand(mcpCmd)
}

func newMCPServer() (*mcp.Server, error) {
	ports := &mcp.Ports{}
	if services != nil {
		ports.Orchestrator = services.Orchestrator
		ports.Sessions = services.Sessions
		ports.Requirements = services.Requirements
	}
	return mcp.NewServer(ports)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if mcpPort < 0 || mcpPort > 65535 {
		return fmt.Errorf("invalid port %d", mcpPort)
	}

	server, err := newMCPServer()
	if err != nil {
		return err
	}
	watchTemplates(cmd.Context())

	if mcpPort == 0 {
		return server.Run(cmd.Context())
	}

	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}

func runMCPTools(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}
	for _, name := range server.Tools() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
