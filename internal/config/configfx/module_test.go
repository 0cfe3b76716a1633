package configfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestConfigModule(t *testing.T) {
	root := t.TempDir()
	var config *Config
	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate(root, fx.ResultTags(`name:"root"`)),
			fx.Annotate("/tmp/test.db", fx.ResultTags(`name:"dbPath"`)),
		),
		fx.Populate(&config),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, config)
	assert.Equal(t, root, config.Root)
	assert.Equal(t, "/tmp/test.db", config.DBPath)
	assert.Equal(t, []string{"."}, config.SourceRoots)
}

func TestConfigDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("STITCHER_DB", "")
	t.Setenv("STITCHER_DB_DRIVER", "")

	config, err := NewConfig(Params{Root: root})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".stitcher", "index.db"), config.DBPath)
	assert.Equal(t, "sqlite", config.DBDriver)
	assert.Positive(t, config.Workers)
}

func TestConfigFileAndEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(
		"db_path: cache/index.db\nsource_roots: [src, tests]\nworkers: 2\n",
	), 0o644))
	t.Setenv("STITCHER_DB", "")
	t.Setenv("STITCHER_DB_DRIVER", "sqlite3")

	config, err := NewConfig(Params{Root: root})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "cache", "index.db"), config.DBPath)
	assert.Equal(t, "sqlite3", config.DBDriver)
	assert.Equal(t, []string{"src", "tests"}, config.SourceRoots)
	assert.Equal(t, 2, config.Workers)
}

func TestConfigMissingExplicitFile(t *testing.T) {
	_, err := NewConfig(Params{Root: t.TempDir(), ConfigPath: "/nonexistent/stitcher.yaml"})
	assert.Error(t, err)
}
