package cmdsfx

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/engine/enginefx"
	"github.com/0x5457/stitcher/internal/indexer/indexerfx"
	"github.com/0x5457/stitcher/internal/parser/parserfx"
	"github.com/0x5457/stitcher/internal/storage/storagefx"
	"github.com/0x5457/stitcher/internal/workspace/workspacefx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func newRunner(t *testing.T, files map[string]string) (*CommandRunner, *bytes.Buffer, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	var (
		buf    bytes.Buffer
		runner *CommandRunner
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
			fx.Annotate(&buf, fx.As(new(io.Writer)), fx.ResultTags(`name:"stdout"`)),
		),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, app.Stop(ctx))
	})
	return runner, &buf, root
}

var project = map[string]string{
	"pkg/core.py": "class Old:\n    pass\n",
	"pkg/app.py":  "from pkg.core import Old\n\nx = Old()\n",
	"rename.yaml": "operations:\n  - rename: {from: pkg.core.Old, to: pkg.core.New}\n",
}

func TestRunIndex(t *testing.T) {
	runner, buf, _ := newRunner(t, project)
	require.NoError(t, runner.RunIndex(context.Background()))
	assert.Equal(t, "scanned:2 parsed:2 unchanged:0 removed:0 failed:0\n", buf.String())
}

func TestRunRefactorDryRun(t *testing.T) {
	runner, buf, root := newRunner(t, project)
	require.NoError(t, runner.RunRefactor(context.Background(), "rename.yaml", true))
	assert.Contains(t, buf.String(), "write  pkg/app.py")
	assert.Contains(t, buf.String(), "(dry run)")

	data, err := os.ReadFile(filepath.Join(root, "pkg", "core.py"))
	require.NoError(t, err)
	assert.Equal(t, "class Old:\n    pass\n", string(data))
}

func TestRunRefactorApply(t *testing.T) {
	runner, buf, root := newRunner(t, project)
	require.NoError(t, runner.RunRefactor(context.Background(), "rename.yaml", false))
	assert.Contains(t, buf.String(), "operations applied")

	data, err := os.ReadFile(filepath.Join(root, "pkg", "core.py"))
	require.NoError(t, err)
	assert.Equal(t, "class New:\n    pass\n", string(data))

	buf.Reset()
	require.NoError(t, runner.RunRefactor(context.Background(), "rename.yaml", false))
	assert.Equal(t, "nothing to do\n", buf.String())
}

func TestRunUsages(t *testing.T) {
	runner, buf, _ := newRunner(t, project)
	require.NoError(t, runner.RunUsages(context.Background(), "pkg.core.Old", false))
	assert.Contains(t, buf.String(), "pkg/app.py:3:4")

	buf.Reset()
	require.NoError(t, runner.RunUsages(context.Background(), "pkg.core.Missing", false))
	assert.Equal(t, "no usages of pkg.core.Missing\n", buf.String())
}

func TestRunnerWithoutEngine(t *testing.T) {
	runner := NewCommandRunner(Params{Config: &configfx.Config{}})
	assert.Error(t, runner.RunIndex(context.Background()))
	assert.Error(t, runner.RunRefactor(context.Background(), "x.yaml", false))
	assert.Error(t, runner.RunMCPServer("stdio", ""))
}
