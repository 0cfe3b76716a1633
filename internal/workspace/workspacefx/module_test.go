package workspacefx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestWorkspaceModule(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, configfx.FileName),
		[]byte("source_roots: [src]\n"),
		0o644,
	))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pkg"), 0o755))

	var ws *workspace.Workspace
	app := fx.New(
		configfx.Module,
		Module,
		fx.Supply(fx.Annotate(root, fx.ResultTags(`name:"root"`))),
		fx.Populate(&ws),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, ws)
	assert.True(t, ws.IsDir("src/pkg"))
	assert.Equal(t, "pkg.core", ws.ModuleFQN("src/pkg/core.py"))
}
