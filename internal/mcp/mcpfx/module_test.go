package mcpfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/engine/enginefx"
	"github.com/0x5457/stitcher/internal/indexer/indexerfx"
	"github.com/0x5457/stitcher/internal/parser/parserfx"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/storage/storagefx"
	"github.com/0x5457/stitcher/internal/workspace/workspacefx"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestMCPModulePreindexes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "core.py"), []byte("def run():\n    pass\n"), 0o644))

	var (
		srv   *server.MCPServer
		store storage.IndexStore
	)
	app := fx.New(
		configfx.Module,
		workspacefx.Module,
		parserfx.Module,
		storagefx.Module,
		indexerfx.Module,
		enginefx.Module,
		Module,
		fx.Supply(
			fx.Annotate(root, fx.ResultTags(`name:"root"`)),
			fx.Annotate(configfx.MemoryDB, fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate(true, fx.ResultTags(`name:"preindex"`)),
		),
		fx.Populate(&srv, &store),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, srv)
	files, err := store.ListFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"core.py"}, files)
}
