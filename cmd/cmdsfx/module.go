package cmdsfx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/engine"
	"github.com/0x5457/stitcher/pkg/migration"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
)

const defaultAddress = ":8080"

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config    *configfx.Config
	engine    *engine.Engine
	loader    *migration.Loader
	mcpServer *server.MCPServer
	out       io.Writer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config    *configfx.Config
	Engine    *engine.Engine    `optional:"true"`
	Loader    *migration.Loader `optional:"true"`
	MCPServer *server.MCPServer `optional:"true"`
	Out       io.Writer         `name:"stdout" optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	out := params.Out
	if out == nil {
		out = os.Stdout
	}
	return &CommandRunner{
		config:    params.Config,
		engine:    params.Engine,
		loader:    params.Loader,
		mcpServer: params.MCPServer,
		out:       out,
	}
}

// RunIndex brings the index up to date with the workspace
func (r *CommandRunner) RunIndex(ctx context.Context) error {
	if r.engine == nil {
		return errors.New("engine not available")
	}
	stats, err := r.engine.Index(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "scanned:%d parsed:%d unchanged:%d removed:%d failed:%d\n",
		stats.Scanned, stats.Parsed, stats.Unchanged, stats.Removed, len(stats.Failed))
	for _, path := range stats.Failed {
		fmt.Fprintf(r.out, "  failed: %s\n", path)
	}
	return nil
}

// RunRefactor loads a migration script and applies it, or only prints the
// planned operations when dryRun is set.
func (r *CommandRunner) RunRefactor(ctx context.Context, script string, dryRun bool) error {
	if r.engine == nil || r.loader == nil {
		return errors.New("engine not available")
	}
	spec, err := r.loader.Load(script)
	if err != nil {
		return err
	}
	res, err := r.engine.Apply(ctx, spec, dryRun)
	if err != nil {
		return err
	}
	for _, line := range res.Preview {
		fmt.Fprintln(r.out, line)
	}
	switch {
	case len(res.Preview) == 0:
		fmt.Fprintln(r.out, "nothing to do")
	case dryRun:
		fmt.Fprintf(r.out, "%d operations planned (dry run)\n", len(res.Preview))
	default:
		fmt.Fprintf(r.out, "%d operations applied\n", len(res.Preview))
	}
	return nil
}

// RunUsages prints every usage of fqn, one per line
func (r *CommandRunner) RunUsages(ctx context.Context, fqn string, nested bool) error {
	if r.engine == nil {
		return errors.New("engine not available")
	}
	usages, err := r.engine.FindUsages(ctx, fqn, nested)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, u := range usages {
		fmt.Fprintf(tw, "%s:%d:%d\t%s\t%s\n",
			u.FilePath, u.Range.StartLine, u.Range.StartCol, u.Kind, u.TargetFQN)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(usages) == 0 {
		fmt.Fprintf(r.out, "no usages of %s\n", fqn)
	}
	return nil
}

// RunMCPServer executes the MCP server
func (r *CommandRunner) RunMCPServer(transport, address string) error {
	if r.mcpServer == nil {
		return errors.New("MCP server not available")
	}

	addr := address
	if addr == "" {
		addr = defaultAddress
	}
	switch transport {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http":
		return server.NewStreamableHTTPServer(r.mcpServer).Start(addr)
	case "sse":
		// SSE server exposes two endpoints under /mcp
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(addr)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
