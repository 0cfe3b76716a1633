package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.IndexStore {
		s, err := New(filepath.Join(t.TempDir(), "index.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	files, err := s.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "index.db"), "postgres")
	assert.Error(t, err)
}
