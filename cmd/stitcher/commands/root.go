package commands

import (
	"context"
	"fmt"

	"github.com/0x5457/stitcher/cmd/cmdsfx"
	"github.com/0x5457/stitcher/internal/app/appfx"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// globalFlags are shared by every command that opens a workspace
type globalFlags struct {
	root    string
	db      string
	config  string
	verbose bool
}

func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:          "stitcher",
		Short:        "Semantic refactoring for Python workspaces",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.root, "root", "r", ".", "workspace root")
	cmd.PersistentFlags().StringVar(&flags.db, "db", "", "index database path (default <root>/.stitcher/index.db)")
	cmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "config file (default <root>/stitcher.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log dependency wiring")

	cmd.AddCommand(
		NewIndexCommand(flags),
		NewRefactorCommand(flags),
		NewUsagesCommand(flags),
		NewMCPServeCommand(flags),
		NewMCPClientCommand(),
	)
	return cmd
}

// runWithApp builds the application graph, hands the command runner to fn
// and always stops the app afterwards.
func runWithApp(
	ctx context.Context,
	flags *globalFlags,
	fn func(*cmdsfx.CommandRunner) error,
	opts ...fx.Option,
) error {
	var runner *cmdsfx.CommandRunner
	if !flags.verbose {
		opts = append(opts, fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }))
	}
	opts = append(opts, fx.Populate(&runner))
	app := appfx.NewAppWithConfig(flags.root, flags.db, flags.config, opts...)

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	runErr := fn(runner)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}
