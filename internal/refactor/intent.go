package refactor

// Intent is a unit of desired change produced by an Operation. Intents are
// plain comparable values so identical ones can be collapsed.
type Intent interface {
	intent()
}

// RenameIntent renames a symbol or module FQN in code.
type RenameIntent struct {
	OldFQN string
	NewFQN string
}

type MoveFileIntent struct {
	Src  string
	Dest string
}

type DeleteFileIntent struct {
	Path string
}

type DeleteDirectoryIntent struct {
	Path string
}

// ScaffoldIntent creates a file only when it does not exist yet.
type ScaffoldIntent struct {
	Path    string
	Content string
}

// SidecarUpdateIntent asks the planner to rewrite one sidecar. OldFQN and
// NewFQN carry a symbol rename; OldFilePath and NewFilePath carry a move of
// the source file the sidecar belongs to.
type SidecarUpdateIntent struct {
	SidecarPath string
	ModuleFQN   string
	OldFQN      string
	NewFQN      string
	OldFilePath string
	NewFilePath string
}

func (RenameIntent) intent()          {}
func (MoveFileIntent) intent()        {}
func (DeleteFileIntent) intent()      {}
func (DeleteDirectoryIntent) intent() {}
func (ScaffoldIntent) intent()        {}
func (SidecarUpdateIntent) intent()   {}
