package commands

import (
	"github.com/0x5457/stitcher/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewIndexCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the symbol index of the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunIndex(cmd.Context())
			})
		},
	}
}
