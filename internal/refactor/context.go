package refactor

import (
	"github.com/0x5457/stitcher/internal/graph"
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/workspace"
)

// Context is the read-only view operations and the planner work against.
// It lives for one planning run.
type Context struct {
	Workspace *workspace.Workspace
	Graph     *graph.SemanticGraph
	Store     storage.IndexStore
	Registry  *parser.Registry
}

// Operation is one step of a migration. CollectIntents must not mutate
// anything; it may be called again on an already migrated workspace and
// then returns no effective change.
type Operation interface {
	Describe() string
	CollectIntents(ctx *Context) ([]Intent, error)
}

// MigrationSpec is the ordered list of operations a script declares.
type MigrationSpec struct {
	ops []Operation
}

func NewMigrationSpec() *MigrationSpec { return &MigrationSpec{} }

// Add appends op and returns the spec for chaining. Nil ops are ignored.
func (s *MigrationSpec) Add(op Operation) *MigrationSpec {
	if op != nil {
		s.ops = append(s.ops, op)
	}
	return s
}

func (s *MigrationSpec) Operations() []Operation {
	return append([]Operation(nil), s.ops...)
}

func (s *MigrationSpec) Len() int { return len(s.ops) }
