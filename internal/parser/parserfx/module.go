package parserfx

import (
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/parser/pyparser"
	"github.com/0x5457/stitcher/internal/sidecar"
	"github.com/0x5457/stitcher/internal/workspace"
	"go.uber.org/fx"
)

// NewRegistry creates the adapter registry: Python sources plus doc sidecars
func NewRegistry(ws *workspace.Workspace) *parser.Registry {
	return parser.NewRegistry(
		pyparser.New(),
		sidecar.NewDocAdapter(ws.ModuleFQN),
	)
}

// Module provides parser components
var Module = fx.Module("parser",
	fx.Provide(NewRegistry),
)
