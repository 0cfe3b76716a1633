// Package storagetest holds the behaviour every IndexStore must share.
package storagetest

import (
	"testing"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coreFile(hash string) models.FileIndex {
	return models.FileIndex{
		Path:        "pkg/core.py",
		ModuleFQN:   "pkg.core",
		ContentHash: hash,
		Symbols: []models.Symbol{
			{ID: "py://pkg/core.py", FQN: "pkg.core", Name: "core", Kind: models.SymbolModule, FilePath: "pkg/core.py"},
			{
				ID:       "py://pkg/core.py#Old",
				FQN:      "pkg.core.Old",
				Name:     "Old",
				Kind:     models.SymbolClass,
				FilePath: "pkg/core.py",
				Range:    &models.Range{StartLine: 1, EndLine: 2, EndCol: 8, EndByte: 21},
				ParentID: "py://pkg/core.py",
			},
		},
		References: []models.Reference{
			{
				SourceFile: "pkg/core.py",
				TargetFQN:  "pkg.core.Old",
				TargetID:   "py://pkg/core.py#Old",
				Kind:       models.RefSymbol,
				Range:      &models.Range{StartLine: 1, StartCol: 6, EndLine: 1, EndCol: 9, StartByte: 6, EndByte: 9},
			},
		},
	}
}

func appFile() models.FileIndex {
	return models.FileIndex{
		Path:        "pkg/app.py",
		ModuleFQN:   "pkg.app",
		ContentHash: "h-app",
		Symbols: []models.Symbol{
			{ID: "py://pkg/app.py", FQN: "pkg.app", Name: "app", Kind: models.SymbolModule, FilePath: "pkg/app.py"},
		},
		References: []models.Reference{
			{SourceFile: "pkg/app.py", TargetFQN: "pkg.core", Kind: models.RefImportPath, Range: &models.Range{StartLine: 1, StartCol: 5, EndLine: 1, EndCol: 13, StartByte: 5, EndByte: 13}},
			{SourceFile: "pkg/app.py", TargetFQN: "pkg.core.Old", Kind: models.RefSymbol, Range: &models.Range{StartLine: 1, StartCol: 21, EndLine: 1, EndCol: 24, StartByte: 21, EndByte: 24}},
			{SourceFile: "pkg/app.py", TargetFQN: "pkg.corelib", Kind: models.RefImportPath},
		},
	}
}

// Run exercises an empty store produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.IndexStore) {
	t.Run("upsert and lookup", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertFile(coreFile("h1")))
		require.NoError(t, s.UpsertFile(appFile()))

		sym, err := s.FindSymbol("pkg.core.Old")
		require.NoError(t, err)
		require.NotNil(t, sym)
		assert.Equal(t, "py://pkg/core.py#Old", sym.ID)
		assert.Equal(t, models.SymbolClass, sym.Kind)
		require.NotNil(t, sym.Range)
		assert.Equal(t, 21, sym.Range.EndByte)

		byID, err := s.FindSymbolByID("py://pkg/core.py")
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Nil(t, byID.Range)

		missing, err := s.FindSymbol("pkg.core.New")
		require.NoError(t, err)
		assert.Nil(t, missing)

		refs, err := s.FindReferencesTo("pkg.core.Old")
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, "pkg/app.py", refs[0].SourceFile)
		assert.Equal(t, 21, refs[0].Range.StartCol)

		under, err := s.FindReferencesUnder("pkg.core")
		require.NoError(t, err)
		assert.Len(t, under, 3)

		syms, err := s.SymbolsUnder("pkg.core")
		require.NoError(t, err)
		assert.Len(t, syms, 2)

		files, err := s.ListFiles()
		require.NoError(t, err)
		assert.Equal(t, []string{"pkg/app.py", "pkg/core.py"}, files)
	})

	t.Run("upsert replaces the whole file", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertFile(coreFile("h1")))

		replaced := coreFile("h2")
		replaced.Symbols = replaced.Symbols[:1]
		replaced.References = nil
		require.NoError(t, s.UpsertFile(replaced))

		hash, ok, err := s.GetContentHash("pkg/core.py")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "h2", hash)

		sym, err := s.FindSymbol("pkg.core.Old")
		require.NoError(t, err)
		assert.Nil(t, sym)

		refs, err := s.ReferencesInFile("pkg/core.py")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("delete removes records", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertFile(coreFile("h1")))
		require.NoError(t, s.UpsertFile(appFile()))
		require.NoError(t, s.DeleteFile("pkg/app.py"))

		_, ok, err := s.GetContentHash("pkg/app.py")
		require.NoError(t, err)
		assert.False(t, ok)

		refs, err := s.AllReferences()
		require.NoError(t, err)
		for _, r := range refs {
			assert.NotEqual(t, "pkg/app.py", r.SourceFile)
		}

		inFile, err := s.SymbolsInFile("pkg/core.py")
		require.NoError(t, err)
		assert.Len(t, inFile, 2)
	})
}
