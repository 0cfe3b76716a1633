package indexerfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/indexer"
	"github.com/0x5457/stitcher/internal/parser/parserfx"
	"github.com/0x5457/stitcher/internal/storage/storagefx"
	"github.com/0x5457/stitcher/internal/workspace/workspacefx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestIndexerModule(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "core.py"), []byte("class Engine:\n    pass\n"), 0o644))

	var idx indexer.Indexer
	app := fx.New(
		configfx.Module,
		workspacefx.Module,
		parserfx.Module,
		storagefx.Module,
		Module,
		fx.Supply(
			fx.Annotate(root, fx.ResultTags(`name:"root"`)),
			fx.Annotate(configfx.MemoryDB, fx.ResultTags(`name:"dbPath"`)),
		),
		fx.Populate(&idx),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	stats, err := idx.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parsed)
	assert.NoError(t, idx.CheckIntegrity())
}
