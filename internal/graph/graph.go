// Package graph answers structural and usage queries over the index for one
// planning run. It is rebuilt after every commit.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/hashicorp/golang-lru/v2"
)

const symbolCacheSize = 4096

// ModuleNode is one dotted segment of the module tree. Namespace-only nodes
// (directories without a module file) have an empty FileID.
type ModuleNode struct {
	FQN      string
	Name     string
	FileID   string
	FilePath string
	Children map[string]*ModuleNode
}

// ChildNames returns child segment names sorted.
func (n *ModuleNode) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type cached struct {
	sym *models.Symbol
}

type SemanticGraph struct {
	store storage.IndexStore
	root  *ModuleNode
	cache *lru.Cache[string, cached]
}

func New(store storage.IndexStore) (*SemanticGraph, error) {
	cache, err := lru.New[string, cached](symbolCacheSize)
	if err != nil {
		return nil, err
	}
	return &SemanticGraph{
		store: store,
		root:  &ModuleNode{Children: map[string]*ModuleNode{}},
		cache: cache,
	}, nil
}

// Load builds the module tree for every indexed module under rootFQN. An
// empty rootFQN loads everything.
func (g *SemanticGraph) Load(rootFQN string) error {
	var modules []models.Symbol
	if rootFQN == "" {
		files, err := g.store.ListFiles()
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		for _, f := range files {
			syms, err := g.store.SymbolsInFile(f)
			if err != nil {
				return fmt.Errorf("symbols in %s: %w", f, err)
			}
			modules = append(modules, syms...)
		}
	} else {
		syms, err := g.store.SymbolsUnder(rootFQN)
		if err != nil {
			return fmt.Errorf("symbols under %s: %w", rootFQN, err)
		}
		modules = syms
	}

	for _, s := range modules {
		if s.Kind != models.SymbolModule || s.FQN == "" {
			continue
		}
		node := g.ensure(s.FQN)
		node.FileID = s.ID
		node.FilePath = s.FilePath
	}
	return nil
}

func (g *SemanticGraph) ensure(fqn string) *ModuleNode {
	node := g.root
	for _, seg := range strings.Split(fqn, ".") {
		child, ok := node.Children[seg]
		if !ok {
			child = &ModuleNode{
				FQN:      joinFQN(node.FQN, seg),
				Name:     seg,
				Children: map[string]*ModuleNode{},
			}
			node.Children[seg] = child
		}
		node = child
	}
	return node
}

func joinFQN(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// GetModule walks the tree segment by segment; there is no fuzzy matching.
func (g *SemanticGraph) GetModule(fqn string) *ModuleNode {
	if fqn == "" {
		return g.root
	}
	node := g.root
	for _, seg := range strings.Split(fqn, ".") {
		next, ok := node.Children[seg]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// Modules returns loaded module nodes (with files) at or below prefix,
// sorted by FQN.
func (g *SemanticGraph) Modules(prefix string) []*ModuleNode {
	start := g.GetModule(prefix)
	if start == nil {
		return nil
	}
	var out []*ModuleNode
	var walk func(n *ModuleNode)
	walk = func(n *ModuleNode) {
		if n.FileID != "" {
			out = append(out, n)
		}
		for _, name := range n.ChildNames() {
			walk(n.Children[name])
		}
	}
	walk(start)
	return out
}

func (g *SemanticGraph) FindSymbol(fqn string) (*models.Symbol, error) {
	if c, ok := g.cache.Get(fqn); ok {
		return c.sym, nil
	}
	sym, err := g.store.FindSymbol(fqn)
	if err != nil {
		return nil, err
	}
	g.cache.Add(fqn, cached{sym: sym})
	return sym, nil
}

// SymbolsInModule lists the symbols of a module's file, module symbol first.
func (g *SemanticGraph) SymbolsInModule(fqn string) ([]models.Symbol, error) {
	node := g.GetModule(fqn)
	if node == nil || node.FilePath == "" {
		return nil, nil
	}
	syms, err := g.store.SymbolsInFile(node.FilePath)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(syms, func(i, j int) bool {
		return syms[i].Kind == models.SymbolModule && syms[j].Kind != models.SymbolModule
	})
	return syms, nil
}

// FindUsages returns located references whose target is exactly fqn.
func (g *SemanticGraph) FindUsages(fqn string) ([]models.UsageLocation, error) {
	refs, err := g.store.FindReferencesTo(fqn)
	if err != nil {
		return nil, err
	}
	return usages(refs), nil
}

// FindUsagesUnder returns located references whose target is prefix or
// anything nested under it.
func (g *SemanticGraph) FindUsagesUnder(prefix string) ([]models.UsageLocation, error) {
	refs, err := g.store.FindReferencesUnder(prefix)
	if err != nil {
		return nil, err
	}
	return usages(refs), nil
}

func usages(refs []models.Reference) []models.UsageLocation {
	out := make([]models.UsageLocation, 0, len(refs))
	for _, r := range refs {
		if r.Range == nil {
			continue
		}
		out = append(out, models.UsageLocation{
			FilePath:  r.SourceFile,
			Range:     *r.Range,
			Kind:      r.Kind,
			TargetFQN: r.TargetFQN,
		})
	}
	return out
}
