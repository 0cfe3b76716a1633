// Package workspace maps workspace-relative slash paths onto an afero
// filesystem and onto Python module names.
package workspace

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/spf13/afero"
)

// ProjectMarker marks a package root that owns its own stitcher.lock.
const ProjectMarker = "pyproject.toml"

var skipDirs = map[string]bool{
	".git":         true,
	".stitcher":    true,
	"__pycache__":  true,
	"node_modules": true,
	".venv":        true,
	"venv":         true,
	".mypy_cache":  true,
}

type Workspace struct {
	Fs          afero.Fs
	Root        string
	SourceRoots []string
}

func New(fs afero.Fs, root string, sourceRoots []string) *Workspace {
	roots := make([]string, 0, len(sourceRoots))
	for _, r := range sourceRoots {
		roots = append(roots, Clean(r))
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}
	// longest first so ModuleFQN strips the most specific root
	sort.SliceStable(roots, func(i, j int) bool { return len(roots[i]) > len(roots[j]) })
	return &Workspace{Fs: fs, Root: filepath.Clean(root), SourceRoots: roots}
}

// NewOS opens a workspace on the real filesystem.
func NewOS(root string, sourceRoots []string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return New(afero.NewOsFs(), abs, sourceRoots), nil
}

// Clean normalizes a relative path to slash form without a leading "./".
func Clean(rel string) string {
	return path.Clean(filepath.ToSlash(rel))
}

func (w *Workspace) Abs(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

// Rel turns an absolute or relative path into a workspace-relative slash path,
// rejecting anything outside the root.
func (w *Workspace) Rel(p string) (string, error) {
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(w.Root, p)
		if err != nil {
			return "", errs.PathEscape(p)
		}
		p = r
	}
	rel := Clean(p)
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", errs.PathEscape(p)
	}
	return rel, nil
}

func (w *Workspace) Exists(rel string) bool {
	_, err := w.Fs.Stat(w.Abs(rel))
	return err == nil
}

func (w *Workspace) IsDir(rel string) bool {
	fi, err := w.Fs.Stat(w.Abs(rel))
	return err == nil && fi.IsDir()
}

func (w *Workspace) IsFile(rel string) bool {
	fi, err := w.Fs.Stat(w.Abs(rel))
	return err == nil && fi.Mode().IsRegular()
}

func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	return afero.ReadFile(w.Fs, w.Abs(rel))
}

// IsPackage reports whether dir holds an __init__.py.
func (w *Workspace) IsPackage(dir string) bool {
	return w.IsFile(path.Join(dir, "__init__.py"))
}

// ModuleFQN maps a source file to its dotted module name.
func (w *Workspace) ModuleFQN(rel string) string {
	rel = strings.TrimSuffix(Clean(rel), ".stitcher.yaml")
	for _, root := range w.SourceRoots {
		if root == "." {
			break
		}
		if strings.HasPrefix(rel, root+"/") {
			rel = rel[len(root)+1:]
			break
		}
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	parts := strings.Split(rel, "/")
	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// DirFQN maps a package directory to its dotted name.
func (w *Workspace) DirFQN(dir string) string {
	return w.ModuleFQN(path.Join(dir, "__init__.py"))
}

// PackageRoot is the nearest ancestor of rel holding a pyproject.toml, or the
// workspace root.
func (w *Workspace) PackageRoot(rel string) string {
	dir := path.Dir(Clean(rel))
	for {
		if w.IsFile(path.Join(dir, ProjectMarker)) {
			return dir
		}
		if dir == "." || dir == "/" {
			return "."
		}
		dir = path.Dir(dir)
	}
}

// ListFiles walks dir and returns workspace-relative files ending in one of
// exts. A nil exts matches every file.
func (w *Workspace) ListFiles(dir string, exts []string) ([]string, error) {
	var files []string
	start := w.Abs(dir)
	if _, err := w.Fs.Stat(start); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	walkErr := afero.Walk(w.Fs, start, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != start && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if exts != nil && !slices.ContainsFunc(exts, func(ext string) bool {
			return strings.HasSuffix(info.Name(), ext)
		}) {
			return nil
		}
		rel, err := w.Rel(p)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	sort.Strings(files)
	return files, walkErr
}

// ListDirs returns dir and every directory below it that ListFiles would
// visit, deepest first.
func (w *Workspace) ListDirs(dir string) ([]string, error) {
	var dirs []string
	start := w.Abs(dir)
	walkErr := afero.Walk(w.Fs, start, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != start && skipDirs[info.Name()] {
			return filepath.SkipDir
		}
		rel, err := w.Rel(p)
		if err != nil {
			return err
		}
		dirs = append(dirs, rel)
		return nil
	})
	sort.SliceStable(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") > strings.Count(dirs[j], "/")
	})
	return dirs, walkErr
}
