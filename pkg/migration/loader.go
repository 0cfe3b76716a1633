package migration

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/refactor"
	"github.com/0x5457/stitcher/internal/workspace"
	"github.com/spf13/afero"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

const upgradeFuncName = "Upgrade"

// Loader turns a migration script into a Spec with workspace-relative paths.
type Loader struct {
	ws *workspace.Workspace
}

func NewLoader(ws *workspace.Workspace) *Loader {
	return &Loader{ws: ws}
}

// Load reads a .go or .yaml script. Relative script paths are resolved
// against the workspace root.
func (l *Loader) Load(path string) (*Spec, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = l.ws.Abs(path)
	}
	code, err := afero.ReadFile(l.ws.Fs, abs)
	if err != nil {
		return nil, errs.MigrationScript(path, err)
	}
	return l.LoadSource(path, code)
}

// LoadSource evaluates script content; name selects the format by extension.
func (l *Loader) LoadSource(name string, code []byte) (*Spec, error) {
	if len(bytes.TrimSpace(code)) == 0 {
		return nil, errs.MigrationScript(name, errors.New("script is empty"))
	}
	var (
		spec *Spec
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".go":
		spec, err = evalGo(code)
	case ".yaml", ".yml":
		spec, err = parseYAML(code)
	default:
		err = fmt.Errorf("unsupported script type %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, errs.MigrationScript(name, err)
	}
	spec, err = l.normalize(spec)
	if err != nil {
		return nil, errs.MigrationScript(name, err)
	}
	return spec, nil
}

func evalGo(code []byte) (spec *Spec, err error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, err
	}
	if err := i.Use(Symbols); err != nil {
		return nil, err
	}
	if _, err := i.Eval(string(code)); err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}
	fn, err := i.Eval(upgradeFuncName)
	if err != nil {
		return nil, fmt.Errorf("script must define %s(spec *migration.Spec): %w", upgradeFuncName, err)
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", upgradeFuncName)
	}
	ft := fn.Type()
	if ft.NumIn() != 1 || ft.NumOut() > 1 {
		return nil, fmt.Errorf("%s must have signature func(*migration.Spec) [error]", upgradeFuncName)
	}

	spec = NewSpec()
	defer func() {
		if r := recover(); r != nil {
			spec, err = nil, fmt.Errorf("%s panicked: %v", upgradeFuncName, r)
		}
	}()
	out := fn.Call([]reflect.Value{reflect.ValueOf(spec)})
	if len(out) == 1 && !out[0].IsNil() {
		if e, ok := out[0].Interface().(error); ok {
			return nil, e
		}
		return nil, fmt.Errorf("%s returned a non-error value", upgradeFuncName)
	}
	return spec, nil
}

type yamlPair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type yamlOperation struct {
	Rename          *yamlPair `yaml:"rename"`
	Move            *yamlPair `yaml:"move"`
	MoveDir         *yamlPair `yaml:"move_dir"`
	RenameNamespace *yamlPair `yaml:"rename_namespace"`
}

type yamlScript struct {
	Operations []yamlOperation `yaml:"operations"`
}

func parseYAML(code []byte) (*Spec, error) {
	var script yamlScript
	dec := yaml.NewDecoder(bytes.NewReader(code))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	spec := NewSpec()
	for idx, op := range script.Operations {
		var (
			built Operation
			pair  *yamlPair
			count int
		)
		if op.Rename != nil {
			built, pair, count = Rename(op.Rename.From, op.Rename.To), op.Rename, count+1
		}
		if op.Move != nil {
			built, pair, count = Move(op.Move.From, op.Move.To), op.Move, count+1
		}
		if op.MoveDir != nil {
			built, pair, count = MoveDir(op.MoveDir.From, op.MoveDir.To), op.MoveDir, count+1
		}
		if op.RenameNamespace != nil {
			built, pair, count = RenameNamespace(op.RenameNamespace.From, op.RenameNamespace.To), op.RenameNamespace, count+1
		}
		if count != 1 {
			return nil, fmt.Errorf("operations[%d]: want exactly one of rename, move, move_dir, rename_namespace", idx)
		}
		if pair.From == "" || pair.To == "" {
			return nil, fmt.Errorf("operations[%d]: from and to are required", idx)
		}
		spec.Add(built)
	}
	return spec, nil
}

// normalize rewrites file paths of move operations to workspace-relative form.
func (l *Loader) normalize(spec *Spec) (*Spec, error) {
	out := NewSpec()
	for _, op := range spec.Operations() {
		switch o := op.(type) {
		case refactor.MoveFile:
			src, dest, err := l.rel(o.Src, o.Dest)
			if err != nil {
				return nil, err
			}
			op = refactor.MoveFile{Src: src, Dest: dest}
		case refactor.MoveDirectory:
			src, dest, err := l.rel(o.Src, o.Dest)
			if err != nil {
				return nil, err
			}
			op = refactor.MoveDirectory{Src: src, Dest: dest}
		}
		out.Add(op)
	}
	return out, nil
}

func (l *Loader) rel(src, dest string) (string, string, error) {
	s, err := l.ws.Rel(src)
	if err != nil {
		return "", "", err
	}
	d, err := l.ws.Rel(dest)
	if err != nil {
		return "", "", err
	}
	return s, d, nil
}
