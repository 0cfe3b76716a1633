package graph

import (
	"testing"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/parser/pyparser"
	"github.com/0x5457/stitcher/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexed(t *testing.T, files map[string]string) *memory.InMemoryStore {
	t.Helper()
	store := memory.New()
	adapter := pyparser.New()
	modules := map[string]string{
		"pkg/__init__.py": "pkg",
		"pkg/core.py":     "pkg.core",
		"pkg/sub/deep.py": "pkg.sub.deep",
		"app.py":          "app",
	}
	for path, src := range files {
		idx, err := adapter.Parse(path, modules[path], []byte(src))
		require.NoError(t, err)
		require.NoError(t, store.UpsertFile(*idx))
	}
	return store
}

func TestModuleTree(t *testing.T) {
	store := indexed(t, map[string]string{
		"pkg/__init__.py": "",
		"pkg/core.py":     "class Old:\n    pass\n",
		"pkg/sub/deep.py": "X = 1\n",
		"app.py":          "from pkg.core import Old\n",
	})
	g, err := New(store)
	require.NoError(t, err)
	require.NoError(t, g.Load(""))

	pkg := g.GetModule("pkg")
	require.NotNil(t, pkg)
	assert.Equal(t, "pkg/__init__.py", pkg.FilePath)
	assert.Equal(t, []string{"core", "sub"}, pkg.ChildNames())

	sub := g.GetModule("pkg.sub")
	require.NotNil(t, sub)
	assert.Empty(t, sub.FileID, "namespace-only directory")

	assert.Nil(t, g.GetModule("pkg.cor"))
	assert.Nil(t, g.GetModule("pkg.core.Old"))

	var fqns []string
	for _, m := range g.Modules("pkg") {
		fqns = append(fqns, m.FQN)
	}
	assert.Equal(t, []string{"pkg", "pkg.core", "pkg.sub.deep"}, fqns)
}

func TestLoadUnderPrefix(t *testing.T) {
	store := indexed(t, map[string]string{
		"pkg/core.py": "A = 1\n",
		"app.py":      "B = 2\n",
	})
	g, err := New(store)
	require.NoError(t, err)
	require.NoError(t, g.Load("pkg"))
	assert.NotNil(t, g.GetModule("pkg.core"))
	assert.Nil(t, g.GetModule("app"))
}

func TestSymbolsAndUsages(t *testing.T) {
	store := indexed(t, map[string]string{
		"pkg/core.py": "class Old:\n    pass\n",
		"app.py":      "from pkg.core import Old\n\nx = Old()\n",
	})
	g, err := New(store)
	require.NoError(t, err)
	require.NoError(t, g.Load(""))

	sym, err := g.FindSymbol("pkg.core.Old")
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, models.SymbolClass, sym.Kind)

	// cached miss stays a miss
	for range 2 {
		missing, err := g.FindSymbol("pkg.core.New")
		require.NoError(t, err)
		assert.Nil(t, missing)
	}

	syms, err := g.SymbolsInModule("pkg.core")
	require.NoError(t, err)
	require.NotEmpty(t, syms)
	assert.Equal(t, models.SymbolModule, syms[0].Kind)

	uses, err := g.FindUsages("pkg.core.Old")
	require.NoError(t, err)
	var lines []int
	for _, u := range uses {
		if u.FilePath == "app.py" {
			lines = append(lines, u.Range.StartLine)
		}
	}
	assert.Equal(t, []int{1, 3}, lines)

	under, err := g.FindUsagesUnder("pkg")
	require.NoError(t, err)
	kinds := map[models.ReferenceKind]bool{}
	for _, u := range under {
		kinds[u.Kind] = true
	}
	assert.True(t, kinds[models.RefImportPath])
	assert.True(t, kinds[models.RefSymbol])
}
