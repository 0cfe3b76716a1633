package refactor

import (
	"fmt"
	"path"
	"strings"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/sidecar"
	"github.com/0x5457/stitcher/internal/workspace"
)

const initFile = "__init__.py"

// RenameSymbol renames a symbol and every usage of it. Only the last FQN
// segment is rewritten in code; sidecar keys follow the full fragment.
type RenameSymbol struct {
	Old string
	New string
}

func (op RenameSymbol) Describe() string { return fmt.Sprintf("rename %s -> %s", op.Old, op.New) }

func (op RenameSymbol) CollectIntents(ctx *Context) ([]Intent, error) {
	if op.Old == op.New {
		return nil, nil
	}
	intents := []Intent{RenameIntent{OldFQN: op.Old, NewFQN: op.New}}
	sym, err := ctx.Graph.FindSymbol(op.Old)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", op.Old, err)
	}
	if sym == nil {
		return intents, nil
	}
	module := ctx.Workspace.ModuleFQN(sym.FilePath)
	for _, sc := range sidecarsOf(ctx.Workspace, sym.FilePath) {
		intents = append(intents, SidecarUpdateIntent{
			SidecarPath: sc,
			ModuleFQN:   module,
			OldFQN:      op.Old,
			NewFQN:      op.New,
		})
	}
	return intents, nil
}

// MoveFile moves one source file together with its sidecars and renames the
// module it defines.
type MoveFile struct {
	Src  string
	Dest string
}

func (op MoveFile) Describe() string { return fmt.Sprintf("move %s -> %s", op.Src, op.Dest) }

func (op MoveFile) CollectIntents(ctx *Context) ([]Intent, error) {
	ws := ctx.Workspace
	src, dest := workspace.Clean(op.Src), workspace.Clean(op.Dest)
	if src == dest || !ws.IsFile(src) {
		return nil, nil
	}
	intents := []Intent{MoveFileIntent{Src: src, Dest: dest}}
	if doc := sidecar.DocPath(src); ws.IsFile(doc) {
		intents = append(intents, MoveFileIntent{Src: doc, Dest: sidecar.DocPath(dest)})
	}
	if sig := sidecar.SignaturePath(src); ws.IsFile(sig) {
		intents = append(intents, MoveFileIntent{Src: sig, Dest: sidecar.SignaturePath(dest)})
	}

	if _, ok := ctx.Registry.ForFile(src); !ok {
		return intents, nil
	}
	oldMod, newMod := ws.ModuleFQN(src), ws.ModuleFQN(dest)
	if oldMod != newMod && oldMod != "" && newMod != "" {
		intents = append(intents, RenameIntent{OldFQN: oldMod, NewFQN: newMod})
		syms, err := ctx.Store.SymbolsInFile(src)
		if err != nil {
			return nil, fmt.Errorf("symbols in %s: %w", src, err)
		}
		for _, s := range syms {
			if s.Kind == models.SymbolModule || !strings.HasPrefix(s.FQN, oldMod+".") {
				continue
			}
			intents = append(intents, RenameIntent{OldFQN: s.FQN, NewFQN: newMod + s.FQN[len(oldMod):]})
		}
	}
	for _, sc := range sidecarsOf(ws, src) {
		intents = append(intents, SidecarUpdateIntent{
			SidecarPath: sc,
			ModuleFQN:   oldMod,
			OldFilePath: src,
			NewFilePath: dest,
		})
	}
	return intents, nil
}

// MoveDirectory moves every file under Src, removes Src and scaffolds
// __init__.py in destination directories the move creates when Src was a
// package.
type MoveDirectory struct {
	Src  string
	Dest string
}

func (op MoveDirectory) Describe() string {
	return fmt.Sprintf("move directory %s -> %s", op.Src, op.Dest)
}

func (op MoveDirectory) CollectIntents(ctx *Context) ([]Intent, error) {
	ws := ctx.Workspace
	src, dest := workspace.Clean(op.Src), workspace.Clean(op.Dest)
	if src == dest || !ws.IsDir(src) {
		return nil, nil
	}
	if strings.HasPrefix(dest+"/", src+"/") {
		return nil, fmt.Errorf("move directory %s into itself (%s)", src, dest)
	}
	files, err := ws.ListFiles(src, nil)
	if err != nil {
		return nil, err
	}

	var intents []Intent
	for _, f := range files {
		target := path.Join(dest, strings.TrimPrefix(f, src+"/"))
		if _, ok := ctx.Registry.ForFile(f); ok && sidecar.KindOf(f) == sidecar.KindUnknown {
			sub, err := MoveFile{Src: f, Dest: target}.CollectIntents(ctx)
			if err != nil {
				return nil, err
			}
			intents = append(intents, sub...)
			continue
		}
		intents = append(intents, MoveFileIntent{Src: f, Dest: target})
	}
	intents = append(intents, DeleteDirectoryIntent{Path: src})

	if ws.IsPackage(src) {
		for dir := path.Dir(dest); dir != "." && dir != "/" && !ws.Exists(dir); dir = path.Dir(dir) {
			intents = append(intents, ScaffoldIntent{Path: path.Join(dir, initFile)})
		}
	}
	return intents, nil
}

// RenameNamespace rewrites every reference under a dotted prefix. Files are
// not moved.
type RenameNamespace struct {
	OldPrefix string
	NewPrefix string
}

func (op RenameNamespace) Describe() string {
	return fmt.Sprintf("rename namespace %s -> %s", op.OldPrefix, op.NewPrefix)
}

func (op RenameNamespace) CollectIntents(ctx *Context) ([]Intent, error) {
	if op.OldPrefix == op.NewPrefix {
		return nil, nil
	}
	intents := []Intent{RenameIntent{OldFQN: op.OldPrefix, NewFQN: op.NewPrefix}}
	for _, m := range ctx.Graph.Modules(op.OldPrefix) {
		syms, err := ctx.Graph.SymbolsInModule(m.FQN)
		if err != nil {
			return nil, fmt.Errorf("symbols in %s: %w", m.FQN, err)
		}
		for _, s := range syms {
			if s.FQN == op.OldPrefix || !strings.HasPrefix(s.FQN, op.OldPrefix+".") {
				continue
			}
			intents = append(intents, RenameIntent{
				OldFQN: s.FQN,
				NewFQN: op.NewPrefix + s.FQN[len(op.OldPrefix):],
			})
		}
	}
	return intents, nil
}

// sidecarsOf lists the sidecar paths that may mention symbols of src.
func sidecarsOf(ws *workspace.Workspace, src string) []string {
	return []string{
		sidecar.DocPath(src),
		sidecar.SignaturePath(src),
		sidecar.LockPath(ws.PackageRoot(src)),
	}
}
