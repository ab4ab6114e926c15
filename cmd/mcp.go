package cmd

import (
	"github.com/huangsam/geoseries/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the GeoSeries MCP server",
	Long:  `Launch an MCP server that allows AI agents to list recipes, plan and run them via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Tool handlers suppress headers and progress bars so stdio
		// carries only the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, env)
	},
}
