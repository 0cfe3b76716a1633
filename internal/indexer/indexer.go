package indexer

import (
	"context"

	"github.com/0x5457/stitcher/internal/models"
)

// Indexer keeps the IndexStore in step with the workspace.
type Indexer interface {
	// Build scans the whole workspace, reparsing only files whose content
	// hash changed and dropping files that vanished.
	Build(ctx context.Context) (models.IndexStats, error)
	// Refresh reparses or removes the given workspace-relative paths.
	Refresh(ctx context.Context, paths []string) (models.IndexStats, error)
	// CheckIntegrity reports dangling references as an IndexIntegrity error.
	CheckIntegrity() error
}
