package storagefx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0x5457/stitcher/internal/config/configfx"
	"github.com/0x5457/stitcher/internal/storage"
	"github.com/0x5457/stitcher/internal/storage/memory"
	"github.com/0x5457/stitcher/internal/storage/sqlite"
	"go.uber.org/fx"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *configfx.Config
}

// NewIndexStore opens the index and closes it when the app stops
func NewIndexStore(params Params) (storage.IndexStore, error) {
	if params.Config.DBPath == "" {
		return nil, fmt.Errorf("database path must be specified")
	}
	var store storage.IndexStore
	if params.Config.DBPath == configfx.MemoryDB {
		store = memory.New()
	} else {
		if err := os.MkdirAll(filepath.Dir(params.Config.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		s, err := sqlite.Open(params.Config.DBPath, params.Config.DBDriver)
		if err != nil {
			return nil, err
		}
		store = s
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return store.Close() },
	})
	return store, nil
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(NewIndexStore),
)
