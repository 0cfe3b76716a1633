package parser

import (
	"testing"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	lang string
	exts []string
}

func (f fakeAdapter) Language() string     { return f.lang }
func (f fakeAdapter) Extensions() []string { return f.exts }
func (f fakeAdapter) Parse(filePath, moduleFQN string, _ []byte) (*models.FileIndex, error) {
	return &models.FileIndex{Path: filePath, ModuleFQN: moduleFQN}, nil
}

func TestRegistryPrefersLongestSuffix(t *testing.T) {
	r := NewRegistry(
		fakeAdapter{lang: "yaml", exts: []string{".yaml"}},
		fakeAdapter{lang: "sidecar", exts: []string{".stitcher.yaml"}},
	)

	a, ok := r.ForFile("pkg/core.stitcher.yaml")
	require.True(t, ok)
	assert.Equal(t, "sidecar", a.Language())

	a, ok = r.ForFile("config.yaml")
	require.True(t, ok)
	assert.Equal(t, "yaml", a.Language())

	_, err := r.Parse("main.go", "main", nil)
	assert.Error(t, err)
	assert.Equal(t, []string{".stitcher.yaml", ".yaml"}, r.Extensions())
}
