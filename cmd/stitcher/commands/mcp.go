package commands

import (
	"github.com/0x5457/stitcher/cmd/cmdsfx"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// NewMCPServeCommand starts an MCP server exposing usage queries and migrations.
func NewMCPServeCommand(flags *globalFlags) *cobra.Command {
	var (
		transport string
		address   string
		preindex  bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long:  "Run MCP server, provide find_usages, preview_migration, apply_migration and reindex tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunMCPServer(transport, address)
			}, fx.Supply(fx.Annotate(preindex, fx.ResultTags(`name:"preindex"`))))
		},
	}

	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address (http modes), e.g. :8080")
	cmd.Flags().BoolVar(&preindex, "preindex", true, "index the workspace before serving")

	return cmd
}
