package enginefx

import (
	"os"

	"github.com/0x5457/stitcher/internal/bus"
	"github.com/0x5457/stitcher/internal/engine"
	"github.com/0x5457/stitcher/internal/indexer"
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/workspace"
	"github.com/0x5457/stitcher/pkg/migration"
	"go.uber.org/fx"
)

// Params represents dependencies for the refactor engine
type Params struct {
	fx.In

	Workspace *workspace.Workspace
	Store     storage.IndexStore
	Registry  *parser.Registry
	Indexer   indexer.Indexer
	Bus       bus.MessageBus `optional:"true"`
}

// NewBus renders engine events on stderr so stdout stays usable for
// command output and the stdio MCP transport.
func NewBus() bus.MessageBus {
	return bus.NewStyled(os.Stderr)
}

func NewEngine(params Params) *engine.Engine {
	return engine.New(
		params.Workspace,
		params.Store,
		params.Registry,
		params.Indexer,
		params.Bus,
	)
}

func NewLoader(ws *workspace.Workspace) *migration.Loader {
	return migration.NewLoader(ws)
}

// Module provides the engine and the migration script loader
var Module = fx.Module("engine",
	fx.Provide(
		NewEngine,
		NewLoader,
	),
)

// BusModule provides the terminal message bus
var BusModule = fx.Module("bus",
	fx.Provide(NewBus),
)
