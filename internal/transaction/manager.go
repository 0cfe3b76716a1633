package transaction

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/spf13/afero"
)

// Manager stages FileOps and commits them all or none. Paths are
// workspace-relative with forward slashes.
type Manager struct {
	fs      afero.Fs
	root    string
	pending []FileOp
}

func NewManager(fsys afero.Fs, root string) *Manager {
	return &Manager{fs: fsys, root: filepath.Clean(root)}
}

func (m *Manager) Add(op FileOp) { m.pending = append(m.pending, op) }

func (m *Manager) AddWrite(rel string, content []byte) {
	m.Add(WriteFile{Path: rel, Content: content})
}

func (m *Manager) AddMove(src, dest string) { m.Add(MoveFile{Src: src, Dest: dest}) }

func (m *Manager) AddDelete(rel string) { m.Add(DeleteFile{Path: rel}) }

func (m *Manager) AddDeletePath(rel string, recursive bool) {
	m.Add(DeletePath{Path: rel, Recursive: recursive})
}

func (m *Manager) PendingCount() int { return len(m.pending) }

func (m *Manager) Preview() []string {
	out := make([]string, 0, len(m.pending))
	for _, op := range m.pending {
		out = append(out, op.Describe())
	}
	return out
}

type snapshot struct {
	existed bool
	content []byte
	mode    fs.FileMode
}

// Commit executes pending ops in order. On the first failure every touched
// file is restored from its snapshot, directories the commit created are
// removed, and a TransactionError wrapping the cause is returned, joined
// with anything the rollback itself failed to undo. Pending ops are cleared
// either way.
func (m *Manager) Commit() error {
	ops := m.pending
	m.pending = nil

	for _, op := range ops {
		for _, p := range op.paths() {
			if err := validate(p); err != nil {
				return err
			}
		}
	}

	snaps, order, err := m.snapshot(ops)
	if err != nil {
		return errs.Transaction("", fmt.Errorf("snapshot: %w", err))
	}
	dirs := m.existingDirs(ops)

	for _, op := range ops {
		if err := m.apply(op); err != nil {
			if rbErr := m.rollback(snaps, order, dirs); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
			return errs.Transaction(op.paths()[0], err)
		}
	}
	return nil
}

func validate(rel string) error {
	if rel == "" {
		return errs.PathEscape(rel)
	}
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) {
		return errs.PathEscape(rel)
	}
	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") || clean == "." {
		return errs.PathEscape(rel)
	}
	return nil
}

func (m *Manager) abs(rel string) string {
	return filepath.Join(m.root, filepath.FromSlash(path.Clean(filepath.ToSlash(rel))))
}

func (m *Manager) snapshot(ops []FileOp) (map[string]snapshot, []string, error) {
	snaps := make(map[string]snapshot)
	var order []string
	take := func(abs string) error {
		if _, ok := snaps[abs]; ok {
			return nil
		}
		fi, err := m.fs.Stat(abs)
		switch {
		case errors.Is(err, os.ErrNotExist):
			snaps[abs] = snapshot{}
		case err != nil:
			return err
		case fi.IsDir():
			return nil
		default:
			data, err := afero.ReadFile(m.fs, abs)
			if err != nil {
				return err
			}
			snaps[abs] = snapshot{existed: true, content: data, mode: fi.Mode().Perm()}
		}
		order = append(order, abs)
		return nil
	}

	for _, op := range ops {
		for _, p := range op.paths() {
			abs := m.abs(p)
			fi, err := m.fs.Stat(abs)
			if err == nil && fi.IsDir() {
				walkErr := afero.Walk(m.fs, abs, func(p string, info os.FileInfo, err error) error {
					if err != nil || info.IsDir() {
						return err
					}
					return take(p)
				})
				if walkErr != nil {
					return nil, nil, walkErr
				}
				continue
			}
			if err := take(abs); err != nil {
				return nil, nil, err
			}
		}
	}
	return snaps, order, nil
}

// existingDirs records which ancestor directories of touched paths exist
// before the commit, plus every directory inside trees that may be deleted.
func (m *Manager) existingDirs(ops []FileOp) map[string]bool {
	dirs := make(map[string]bool)
	for _, op := range ops {
		for _, p := range op.paths() {
			abs := m.abs(p)
			for d := filepath.Dir(abs); strings.HasPrefix(d, m.root) && d != m.root; d = filepath.Dir(d) {
				if _, seen := dirs[d]; seen {
					break
				}
				fi, err := m.fs.Stat(d)
				dirs[d] = err == nil && fi.IsDir()
			}
			if fi, err := m.fs.Stat(abs); err == nil && fi.IsDir() {
				_ = afero.Walk(m.fs, abs, func(p string, info os.FileInfo, err error) error {
					if err == nil && info.IsDir() {
						dirs[p] = true
					}
					return nil
				})
			}
		}
	}
	return dirs
}

func (m *Manager) apply(op FileOp) error {
	switch o := op.(type) {
	case WriteFile:
		abs := m.abs(o.Path)
		if err := m.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return err
		}
		mode := fs.FileMode(0o644)
		if fi, err := m.fs.Stat(abs); err == nil {
			mode = fi.Mode().Perm()
		}
		return afero.WriteFile(m.fs, abs, o.Content, mode)
	case MoveFile:
		src, dest := m.abs(o.Src), m.abs(o.Dest)
		if _, err := m.fs.Stat(dest); err == nil {
			return fmt.Errorf("move %s: destination %s exists", o.Src, o.Dest)
		}
		if err := m.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return m.fs.Rename(src, dest)
	case DeleteFile:
		return m.fs.Remove(m.abs(o.Path))
	case DeletePath:
		if o.Recursive {
			return m.fs.RemoveAll(m.abs(o.Path))
		}
		return m.fs.Remove(m.abs(o.Path))
	}
	return fmt.Errorf("unknown file op %T", op)
}

func (m *Manager) rollback(snaps map[string]snapshot, order []string, dirs map[string]bool) error {
	var errList []error
	// recreate directories that existed, so restored files land in place
	var existed []string
	for d, ok := range dirs {
		if ok {
			existed = append(existed, d)
		}
	}
	sort.Strings(existed)
	for _, d := range existed {
		if err := m.fs.MkdirAll(d, 0o755); err != nil {
			errList = append(errList, err)
		}
	}

	for _, abs := range order {
		s := snaps[abs]
		if !s.existed {
			if err := m.fs.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
				errList = append(errList, fmt.Errorf("remove %s: %w", abs, err))
			}
			continue
		}
		if err := m.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			errList = append(errList, err)
			continue
		}
		if err := afero.WriteFile(m.fs, abs, s.content, s.mode); err != nil {
			errList = append(errList, fmt.Errorf("restore %s: %w", abs, err))
		}
	}

	// drop directories the commit created, deepest first
	var created []string
	for d, ok := range dirs {
		if !ok {
			created = append(created, d)
		}
	}
	sort.Slice(created, func(i, j int) bool { return len(created[i]) > len(created[j]) })
	for _, d := range created {
		if empty, err := afero.IsEmpty(m.fs, d); err == nil && empty {
			if err := m.fs.Remove(d); err != nil {
				errList = append(errList, fmt.Errorf("remove dir %s: %w", d, err))
			}
		}
	}
	return errors.Join(errList...)
}
