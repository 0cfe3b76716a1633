package storage

import "github.com/0x5457/stitcher/internal/models"

// IndexStore is the authoritative record of symbols and references. Every
// mutation replaces or removes one file's records as a unit.
type IndexStore interface {
	UpsertFile(file models.FileIndex) error
	DeleteFile(path string) error

	FindSymbol(fqn string) (*models.Symbol, error)
	FindSymbolByID(id string) (*models.Symbol, error)
	SymbolsInFile(path string) ([]models.Symbol, error)
	// SymbolsUnder returns symbols whose FQN equals prefix or starts with
	// prefix followed by a dot.
	SymbolsUnder(prefix string) ([]models.Symbol, error)

	FindReferencesTo(fqn string) ([]models.Reference, error)
	// FindReferencesUnder matches targets the way SymbolsUnder matches FQNs.
	FindReferencesUnder(prefix string) ([]models.Reference, error)
	ReferencesInFile(path string) ([]models.Reference, error)
	AllReferences() ([]models.Reference, error)

	ListFiles() ([]string, error)
	GetContentHash(path string) (string, bool, error)

	Close() error
}
