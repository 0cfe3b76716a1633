package appfx

import (
	"github.com/0x5457/stitcher/cmd/cmdsfx"
	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/engine/enginefx"
	"github.com/0x5457/stitcher/internal/indexer/indexerfx"
	"github.com/0x5457/stitcher/internal/mcp/mcpfx"
	"github.com/0x5457/stitcher/internal/parser/parserfx"
	"github.com/0x5457/stitcher/internal/storage/storagefx"
	"github.com/0x5457/stitcher/internal/workspace/workspacefx"
	"go.uber.org/fx"
)

// Module combines all application modules
var Module = fx.Options(
	configfx.Module,
	workspacefx.Module,
	parserfx.Module,
	storagefx.Module,
	indexerfx.Module,
	enginefx.BusModule,
	enginefx.Module,
	mcpfx.Module,
	cmdsfx.Module,
)

// NewAppWithConfig creates an Fx app with the given configuration values
func NewAppWithConfig(root, dbPath, configPath string, opts ...fx.Option) *fx.App {
	return fx.New(
		Module,
		fx.Supply(
			fx.Annotate(root, fx.ResultTags(`name:"root"`)),
			fx.Annotate(dbPath, fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate(configPath, fx.ResultTags(`name:"configPath"`)),
		),
		fx.Options(opts...),
	)
}

// NewApp creates an Fx app rooted at the current directory
func NewApp() *fx.App {
	return fx.New(Module)
}
