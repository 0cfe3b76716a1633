package commands

import (
	"github.com/0x5457/stitcher/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewRefactorCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refactor",
		Short: "Plan and apply migrations",
	}
	cmd.AddCommand(newRefactorApplyCommand(flags))
	return cmd
}

func newRefactorApplyCommand(flags *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "apply <script>",
		Short: "Apply a .go or .yaml migration script",
		Long: `Apply a migration script atomically. Either every planned file
operation succeeds or the workspace is left untouched.

Example:
  stitcher refactor apply migrations/001_rename_engine.go --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunRefactor(cmd.Context(), args[0], dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned operations without touching files")
	return cmd
}
