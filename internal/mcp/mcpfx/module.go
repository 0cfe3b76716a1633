package mcpfx

import (
	"context"
	"fmt"

	"github.com/0x5457/stitcher/internal/engine"
	appmcp "github.com/0x5457/stitcher/internal/mcp"
	"github.com/0x5457/stitcher/pkg/migration"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
)

// Params represents dependencies for MCP server
type Params struct {
	fx.In

	Engine *engine.Engine
	Loader *migration.Loader
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(params Params) *server.MCPServer {
	return appmcp.New(params.Engine, params.Loader)
}

// Lifecycle warms the index before the server takes requests
type Lifecycle struct {
	engine   *engine.Engine
	preindex bool
}

// LifecycleParams represents dependencies for the MCP lifecycle
type LifecycleParams struct {
	fx.In

	Engine   *engine.Engine
	Preindex bool `name:"preindex" optional:"true"`
}

func NewLifecycle(params LifecycleParams) *Lifecycle {
	return &Lifecycle{engine: params.Engine, preindex: params.Preindex}
}

func (m *Lifecycle) Start(ctx context.Context) error {
	if !m.preindex {
		return nil
	}
	if _, err := m.engine.Index(ctx); err != nil {
		return fmt.Errorf("pre-index workspace failed: %w", err)
	}
	return nil
}

func (m *Lifecycle) Stop(context.Context) error {
	return nil
}

// Module provides MCP server components
var Module = fx.Module("mcp",
	fx.Provide(
		NewMCPServer,
		NewLifecycle,
	),
	fx.Invoke(func(lc fx.Lifecycle, l *Lifecycle) {
		lc.Append(fx.Hook{OnStart: l.Start, OnStop: l.Stop})
	}),
)
