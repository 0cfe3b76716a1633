package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/storage"
)

type fileEntry struct {
	hash    string
	symbols []models.Symbol
	refs    []models.Reference
}

// InMemoryStore keeps one immutable entry per file. Upserts swap the entry
// under the write lock, so readers see either the old or the new file.
type InMemoryStore struct {
	mu    sync.RWMutex
	files map[string]*fileEntry
	byFQN map[string]models.Symbol
	byID  map[string]models.Symbol
}

func New() *InMemoryStore {
	return &InMemoryStore{
		files: make(map[string]*fileEntry),
		byFQN: make(map[string]models.Symbol),
		byID:  make(map[string]models.Symbol),
	}
}

func (s *InMemoryStore) UpsertFile(file models.FileIndex) error {
	entry := &fileEntry{
		hash:    file.ContentHash,
		symbols: append([]models.Symbol(nil), file.Symbols...),
		refs:    append([]models.Reference(nil), file.References...),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(file.Path)
	s.files[file.Path] = entry
	for _, sym := range entry.symbols {
		s.byFQN[sym.FQN] = sym
		s.byID[sym.ID] = sym
	}
	return nil
}

func (s *InMemoryStore) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(path)
	return nil
}

func (s *InMemoryStore) removeLocked(path string) {
	old, ok := s.files[path]
	if !ok {
		return
	}
	for _, sym := range old.symbols {
		if cur, ok := s.byFQN[sym.FQN]; ok && cur.FilePath == path {
			delete(s.byFQN, sym.FQN)
		}
		delete(s.byID, sym.ID)
	}
	delete(s.files, path)
}

func (s *InMemoryStore) FindSymbol(fqn string) (*models.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.byFQN[fqn]
	if !ok {
		return nil, nil
	}
	return &sym, nil
}

func (s *InMemoryStore) FindSymbolByID(id string) (*models.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &sym, nil
}

func (s *InMemoryStore) SymbolsInFile(path string) ([]models.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.files[path]; ok {
		return append([]models.Symbol(nil), e.symbols...), nil
	}
	return nil, nil
}

func (s *InMemoryStore) SymbolsUnder(prefix string) ([]models.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Symbol
	for fqn, sym := range s.byFQN {
		if under(fqn, prefix) {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQN < out[j].FQN })
	return out, nil
}

func (s *InMemoryStore) FindReferencesTo(fqn string) ([]models.Reference, error) {
	return s.collectRefs(func(r models.Reference) bool { return r.TargetFQN == fqn }), nil
}

func (s *InMemoryStore) FindReferencesUnder(prefix string) ([]models.Reference, error) {
	return s.collectRefs(func(r models.Reference) bool { return under(r.TargetFQN, prefix) }), nil
}

func (s *InMemoryStore) ReferencesInFile(path string) ([]models.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.files[path]; ok {
		return append([]models.Reference(nil), e.refs...), nil
	}
	return nil, nil
}

func (s *InMemoryStore) AllReferences() ([]models.Reference, error) {
	return s.collectRefs(func(models.Reference) bool { return true }), nil
}

func (s *InMemoryStore) collectRefs(keep func(models.Reference) bool) []models.Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Reference
	for _, path := range s.sortedPathsLocked() {
		for _, r := range s.files[path].refs {
			if keep(r) {
				out = append(out, r)
			}
		}
	}
	return out
}

func (s *InMemoryStore) ListFiles() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedPathsLocked(), nil
}

func (s *InMemoryStore) sortedPathsLocked() []string {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *InMemoryStore) GetContentHash(path string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.files[path]; ok {
		return e.hash, true, nil
	}
	return "", false, nil
}

func (s *InMemoryStore) Close() error { return nil }

func under(fqn, prefix string) bool {
	return fqn == prefix || strings.HasPrefix(fqn, prefix+".")
}

var _ storage.IndexStore = (*InMemoryStore)(nil)
