package enginefx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/engine"
	"github.com/0x5457/stitcher/internal/indexer/indexerfx"
	"github.com/0x5457/stitcher/internal/parser/parserfx"
	"github.com/0x5457/stitcher/internal/storage/storagefx"
	"github.com/0x5457/stitcher/internal/workspace/workspacefx"
	"github.com/0x5457/stitcher/pkg/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestEngineModule(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"pkg/core.py":    "class Old:\n    pass\n",
		"pkg/app.py":     "from pkg.core import Old\n",
		"migrations.yml": "operations:\n  - rename: {from: pkg.core.Old, to: pkg.core.New}\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	var (
		eng    *engine.Engine
		loader *migration.Loader
	)
	app := fx.New(
		configfx.Module,
		workspacefx.Module,
		parserfx.Module,
		storagefx.Module,
		indexerfx.Module,
		Module,
		fx.Supply(
			fx.Annotate(root, fx.ResultTags(`name:"root"`)),
			fx.Annotate(configfx.MemoryDB, fx.ResultTags(`name:"dbPath"`)),
		),
		fx.Populate(&eng, &loader),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	spec, err := loader.Load("migrations.yml")
	require.NoError(t, err)
	res, err := eng.Apply(ctx, spec, false)
	require.NoError(t, err)
	assert.True(t, res.Success)

	data, err := os.ReadFile(filepath.Join(root, "pkg", "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "from pkg.core import New\n", string(data))
}
