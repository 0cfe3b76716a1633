package parserfx

import (
	"context"
	"testing"

	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/workspace"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestParserModule(t *testing.T) {
	var registry *parser.Registry
	app := fx.New(
		Module,
		fx.Supply(workspace.New(afero.NewMemMapFs(), "/ws", nil)),
		fx.Populate(&registry),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, registry)
	adapter, ok := registry.ForFile("pkg/core.py")
	assert.True(t, ok)
	assert.Equal(t, "python", adapter.Language())

	adapter, ok = registry.ForFile("pkg/core.stitcher.yaml")
	assert.True(t, ok)
	assert.Equal(t, "stitcher-doc", adapter.Language())

	_, ok = registry.ForFile("README.md")
	assert.False(t, ok)
}
