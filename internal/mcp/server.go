package mcp

import (
	"context"
	"errors"
	"log"

	"github.com/0x5457/stitcher/internal/engine"
	"github.com/0x5457/stitcher/pkg/migration"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "stitcher/mcp"
	serverVersion = "0.1.0"
)

var errNotConfigured = errors.New("no workspace configured for this server")

// Server exposes usage queries and migrations over MCP.
type Server struct {
	engine *engine.Engine
	loader *migration.Loader
	server *server.MCPServer
}

// New returns an MCP server backed by eng. With a nil engine the tools are
// still listed but every call reports an error.
func New(eng *engine.Engine, loader *migration.Loader) *server.MCPServer {
	srv := &Server{
		engine: eng,
		loader: loader,
		server: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(true),
		),
	}

	srv.server.AddTool(newFindUsagesTool(), srv.handleFindUsages)
	srv.server.AddTool(newPreviewMigrationTool(), srv.handlePreviewMigration)
	srv.server.AddTool(newApplyMigrationTool(), srv.handleApplyMigration)
	srv.server.AddTool(newReindexTool(), srv.handleReindex)

	return srv.server
}

// Tool definitions
func newFindUsagesTool() mcp.Tool {
	return mcp.NewTool(
		"find_usages",
		mcp.WithDescription("Find every usage of a symbol or module by fully qualified name"),
		mcp.WithString("fqn", mcp.Description("Fully qualified name, e.g. pkg.core.Engine"), mcp.Required()),
		mcp.WithBoolean(
			"nested",
			mcp.Description("Also include usages of names nested under fqn"),
			mcp.DefaultBool(false),
		),
	)
}

func newPreviewMigrationTool() mcp.Tool {
	return mcp.NewTool(
		"preview_migration",
		mcp.WithDescription("Plan a migration script and list the file operations it would perform"),
		mcp.WithString("script", mcp.Description("Path to a .go or .yaml migration script"), mcp.Required()),
	)
}

func newApplyMigrationTool() mcp.Tool {
	return mcp.NewTool(
		"apply_migration",
		mcp.WithDescription("Apply a migration script atomically"),
		mcp.WithString("script", mcp.Description("Path to a .go or .yaml migration script"), mcp.Required()),
		mcp.WithBoolean("dry_run", mcp.Description("Plan only"), mcp.DefaultBool(false)),
	)
}

func newReindexTool() mcp.Tool {
	return mcp.NewTool(
		"reindex",
		mcp.WithDescription("Refresh the symbol index of the workspace"),
	)
}

// Handlers
func (srv *Server) handleFindUsages(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	fqn, err := req.RequireString("fqn")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.engine == nil {
		return mcp.NewToolResultError(errNotConfigured.Error()), nil
	}
	usages, err := srv.engine.FindUsages(ctx, fqn, req.GetBool("nested", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{
		"fqn":    fqn,
		"count":  len(usages),
		"usages": usages,
	}), nil
}

func (srv *Server) handlePreviewMigration(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	return srv.runMigration(ctx, req, true)
}

func (srv *Server) handleApplyMigration(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	return srv.runMigration(ctx, req, req.GetBool("dry_run", false))
}

func (srv *Server) runMigration(
	ctx context.Context,
	req mcp.CallToolRequest,
	dryRun bool,
) (*mcp.CallToolResult, error) {
	script, err := req.RequireString("script")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.engine == nil || srv.loader == nil {
		return mcp.NewToolResultError(errNotConfigured.Error()), nil
	}
	spec, err := srv.loader.Load(script)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := srv.engine.Apply(ctx, spec, dryRun)
	if err != nil {
		log.Printf("migration %s failed: %v", script, err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := map[string]any{
		"success": res.Success,
		"dry_run": res.DryRun,
		"ops":     res.Preview,
	}
	if res.Integrity != nil {
		out["integrity_warning"] = res.Integrity.Error()
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (srv *Server) handleReindex(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if srv.engine == nil {
		return mcp.NewToolResultError(errNotConfigured.Error()), nil
	}
	stats, err := srv.engine.Index(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(stats), nil
}
