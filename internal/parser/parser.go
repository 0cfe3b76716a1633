package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/0x5457/stitcher/internal/models"
)

// LanguageAdapter turns one source file into its definitions and usage sites.
// moduleFQN is the dotted name the workspace assigns to the file.
type LanguageAdapter interface {
	Language() string
	Extensions() []string
	Parse(filePath, moduleFQN string, content []byte) (*models.FileIndex, error)
}

// Registry dispatches files to adapters by extension.
type Registry struct {
	byExt map[string]LanguageAdapter
}

func NewRegistry(adapters ...LanguageAdapter) *Registry {
	r := &Registry{byExt: make(map[string]LanguageAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a LanguageAdapter) {
	for _, ext := range a.Extensions() {
		r.byExt[ext] = a
	}
}

// ForFile picks the adapter with the longest matching suffix, so
// ".stitcher.yaml" wins over a plain ".yaml".
func (r *Registry) ForFile(filePath string) (LanguageAdapter, bool) {
	var best LanguageAdapter
	bestLen := 0
	for ext, a := range r.byExt {
		if len(ext) > bestLen && strings.HasSuffix(filePath, ext) {
			best, bestLen = a, len(ext)
		}
	}
	return best, best != nil
}

func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) Parse(filePath, moduleFQN string, content []byte) (*models.FileIndex, error) {
	a, ok := r.ForFile(filePath)
	if !ok {
		return nil, fmt.Errorf("no language adapter for %s", filePath)
	}
	return a.Parse(filePath, moduleFQN, content)
}
