package workspacefx

import (
	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/workspace"
	"go.uber.org/fx"
)

// NewWorkspace opens the configured root on the OS filesystem
func NewWorkspace(config *configfx.Config) (*workspace.Workspace, error) {
	return workspace.NewOS(config.Root, config.SourceRoots)
}

// Module provides the workspace
var Module = fx.Module("workspace",
	fx.Provide(NewWorkspace),
)
