package indexerfx

import (
	"github.com/0x5457/stitcher/internal/bus"
	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/indexer"
	"github.com/0x5457/stitcher/internal/indexer/pipeline"
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/workspace"
	"go.uber.org/fx"
)

// Params represents dependencies for indexer components
type Params struct {
	fx.In

	Config    *configfx.Config
	Workspace *workspace.Workspace
	Registry  *parser.Registry
	Store     storage.IndexStore
	Bus       bus.MessageBus `optional:"true"`
}

// NewIndexer creates a new indexer instance
func NewIndexer(params Params) indexer.Indexer {
	return pipeline.New(
		params.Workspace,
		params.Registry,
		params.Store,
		pipeline.Options{
			ParseWorkers: params.Config.Workers,
			Bus:          params.Bus,
		},
	)
}

// Module provides indexer components
var Module = fx.Module("indexer",
	fx.Provide(NewIndexer),
)
