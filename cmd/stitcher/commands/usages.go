package commands

import (
	"github.com/0x5457/stitcher/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewUsagesCommand(flags *globalFlags) *cobra.Command {
	var nested bool
	cmd := &cobra.Command{
		Use:   "usages <fqn>",
		Short: "List usages of a symbol or module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunUsages(cmd.Context(), args[0], nested)
			})
		},
	}
	cmd.Flags().BoolVar(&nested, "nested", false, "include names nested under fqn")
	return cmd
}
