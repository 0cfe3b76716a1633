package models

type SymbolKind string

const (
	SymbolModule    SymbolKind = "module"
	SymbolClass     SymbolKind = "class"
	SymbolFunction  SymbolKind = "function"
	SymbolAttribute SymbolKind = "attribute"
)

func StringToSymbolKind(s string) SymbolKind {
	switch SymbolKind(s) {
	case SymbolModule, SymbolClass, SymbolFunction, SymbolAttribute:
		return SymbolKind(s)
	}
	return SymbolAttribute
}

type ReferenceKind string

const (
	RefSymbol      ReferenceKind = "symbol"
	RefImportPath  ReferenceKind = "import_path"
	RefSidecarName ReferenceKind = "sidecar_name"
	RefSidecarID   ReferenceKind = "sidecar_id"
)

// Range is a source span. Lines are 1-based, columns are 0-based byte offsets
// within the line.
type Range struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
	StartByte int `json:"start_byte"`
	EndByte   int `json:"end_byte"`
}

// Symbol is a definition discovered by a language adapter. ID is the SURI of
// the definition and never changes while the definition stays in the same
// file under the same lexical path.
type Symbol struct {
	ID            string     `json:"id"`
	FQN           string     `json:"fqn"`
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	FilePath      string     `json:"file_path"`
	Range         *Range     `json:"range,omitempty"`
	SignatureHash string     `json:"signature_hash,omitempty"`
	ParentID      string     `json:"parent_id,omitempty"`
}

// Reference is a usage site of a symbol or a module path inside SourceFile.
// A nil Range marks a reference that was recorded but could not be located.
type Reference struct {
	SourceFile string        `json:"source_file"`
	TargetFQN  string        `json:"target_fqn"`
	TargetID   string        `json:"target_id,omitempty"`
	Kind       ReferenceKind `json:"kind"`
	Range      *Range        `json:"range,omitempty"`
}

// UsageLocation is a reference resolved for the planner.
type UsageLocation struct {
	FilePath  string        `json:"file_path"`
	Range     Range         `json:"range"`
	Kind      ReferenceKind `json:"kind"`
	TargetFQN string        `json:"target_fqn"`
}

type Fingerprint struct {
	SignatureHash string `json:"signature_hash,omitempty"`
	ContentHash   string `json:"content_hash,omitempty"`
}

// FileIndex is everything an adapter extracts from one file.
type FileIndex struct {
	Path        string
	ModuleFQN   string
	ContentHash string
	Symbols     []Symbol
	References  []Reference
}

type IndexStage string

const (
	IndexStageScan  IndexStage = "scan"
	IndexStageParse IndexStage = "parse"
	IndexStageStore IndexStage = "store"
	IndexStagePrune IndexStage = "prune"
	IndexStageDone  IndexStage = "done"
)

// IndexStats summarizes one index build or refresh.
type IndexStats struct {
	Scanned   int
	Parsed    int
	Unchanged int
	Removed   int
	Failed    []string
}
