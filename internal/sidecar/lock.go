package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/uri"
	"github.com/0x5457/stitcher/internal/workspace"
	"github.com/spf13/afero"
)

// Fingerprints maps symbol SURIs to their lock entries. Entries are kept
// raw so fields this tool does not know about survive a rewrite.
type Fingerprints map[string]json.RawMessage

type lockFile struct {
	Version      string       `json:"version"`
	Fingerprints Fingerprints `json:"fingerprints"`
}

// LockManager loads and saves <package_root>/stitcher.lock.
type LockManager struct {
	ws *workspace.Workspace
}

func NewLockManager(ws *workspace.Workspace) *LockManager {
	return &LockManager{ws: ws}
}

// Load returns an empty map when the lock does not exist.
func (m *LockManager) Load(packageRoot string) (Fingerprints, error) {
	data, err := m.ws.ReadFile(LockPath(packageRoot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Fingerprints{}, nil
		}
		return nil, err
	}
	var lf lockFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", LockPath(packageRoot), err)
	}
	if lf.Fingerprints == nil {
		lf.Fingerprints = Fingerprints{}
	}
	return lf.Fingerprints, nil
}

func (m *LockManager) Save(packageRoot string, fps Fingerprints) error {
	data, err := RenderLock(fps)
	if err != nil {
		return err
	}
	target := m.ws.Abs(LockPath(packageRoot))
	if err := m.ws.Fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(m.ws.Fs, target, data, 0o644)
}

func RenderLock(fps Fingerprints) ([]byte, error) {
	if fps == nil {
		fps = Fingerprints{}
	}
	return encodeJSON(lockFile{Version: LockVersion, Fingerprints: fps})
}

// Entry decodes the standard fields of one lock entry.
func (f Fingerprints) Entry(suri string) (models.Fingerprint, bool) {
	raw, ok := f[suri]
	if !ok {
		return models.Fingerprint{}, false
	}
	var fp models.Fingerprint
	if err := json.Unmarshal(raw, &fp); err != nil {
		return models.Fingerprint{}, false
	}
	return fp, true
}

// PlanLocks applies u to the lock of every package root in roots. Entries
// whose file moves into another package root are transferred to that root's
// lock. The result holds rendered content only for locks that changed.
func (m *LockManager) PlanLocks(u Update, roots []string) (map[string][]byte, error) {
	loaded := make(map[string]Fingerprints)
	order := append([]string(nil), roots...)
	for _, mv := range u.Moves {
		order = append(order, m.ws.PackageRoot(mv.New))
	}
	sort.Strings(order)
	for _, root := range order {
		if _, ok := loaded[root]; ok {
			continue
		}
		fps, err := m.Load(root)
		if err != nil {
			return nil, err
		}
		loaded[root] = fps
	}

	next := make(map[string]Fingerprints, len(loaded))
	for root := range loaded {
		next[root] = Fingerprints{}
	}
	dirty := make(map[string]bool)
	for _, root := range sortedRoots(loaded) {
		for key, entry := range loaded[root] {
			newKey, changed := u.RewriteSURI(key)
			target := root
			if changed {
				if _, p, _, err := uri.Split(newKey); err == nil {
					target = m.ws.PackageRoot(p)
				}
			}
			if _, ok := next[target]; !ok {
				next[target] = Fingerprints{}
			}
			next[target][newKey] = entry
			if changed {
				dirty[root] = true
				dirty[target] = true
			}
		}
	}

	out := make(map[string][]byte)
	for root := range dirty {
		data, err := RenderLock(next[root])
		if err != nil {
			return nil, err
		}
		out[LockPath(root)] = data
	}
	return out, nil
}

func sortedRoots(m map[string]Fingerprints) []string {
	roots := make([]string, 0, len(m))
	for r := range m {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}
