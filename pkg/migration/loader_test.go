package migration

import (
	"testing"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/refactor"
	"github.com/0x5457/stitcher/internal/workspace"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goScript = `package main

import "github.com/0x5457/stitcher/pkg/migration"

func Upgrade(spec *migration.Spec) {
	spec.Add(migration.Rename("pkg.core.Old", "pkg.core.New"))
	spec.Add(migration.Move("/ws/src/a.py", "src/moved/a.py"))
	spec.Add(migration.MoveDir("pkg/sub", "lib/sub"))
	spec.Add(migration.RenameNamespace("old", "new"))
}
`

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	ws := workspace.New(afero.NewMemMapFs(), "/ws", nil)
	for rel, content := range files {
		require.NoError(t, afero.WriteFile(ws.Fs, ws.Abs(rel), []byte(content), 0o644))
	}
	return NewLoader(ws)
}

var wantOps = []refactor.Operation{
	refactor.RenameSymbol{Old: "pkg.core.Old", New: "pkg.core.New"},
	refactor.MoveFile{Src: "src/a.py", Dest: "src/moved/a.py"},
	refactor.MoveDirectory{Src: "pkg/sub", Dest: "lib/sub"},
	refactor.RenameNamespace{OldPrefix: "old", NewPrefix: "new"},
}

func TestLoadGoScript(t *testing.T) {
	l := newLoader(t, map[string]string{"migrations/001_rename.go": goScript})
	spec, err := l.Load("migrations/001_rename.go")
	require.NoError(t, err)
	assert.Equal(t, wantOps, spec.Operations())
}

func TestLoadYAMLScript(t *testing.T) {
	l := newLoader(t, map[string]string{"m.yaml": `operations:
  - rename: {from: pkg.core.Old, to: pkg.core.New}
  - move: {from: /ws/src/a.py, to: src/moved/a.py}
  - move_dir: {from: pkg/sub, to: lib/sub}
  - rename_namespace: {from: old, to: new}
`})
	spec, err := l.Load("/ws/m.yaml")
	require.NoError(t, err)
	assert.Equal(t, wantOps, spec.Operations())
}

func TestGoScriptErrors(t *testing.T) {
	cases := map[string]string{
		"missing upgrade": "package main\n",
		"syntax error":    "package main\nfunc Upgrade(\n",
		"returns error": `package main

import (
	"errors"

	"github.com/0x5457/stitcher/pkg/migration"
)

func Upgrade(spec *migration.Spec) error {
	return errors.New("not today")
}
`,
		"escaping path": `package main

import "github.com/0x5457/stitcher/pkg/migration"

func Upgrade(spec *migration.Spec) {
	spec.Add(migration.Move("../outside.py", "a.py"))
}
`,
	}
	l := newLoader(t, nil)
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.LoadSource("script.go", []byte(code))
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindMigrationScript), err.Error())
		})
	}
}

func TestYAMLScriptErrors(t *testing.T) {
	cases := map[string]string{
		"two kinds":     "operations:\n  - {rename: {from: a, to: b}, move: {from: a.py, to: b.py}}\n",
		"missing to":    "operations:\n  - rename: {from: a}\n",
		"unknown field": "operations:\n  - copy: {from: a, to: b}\n",
	}
	l := newLoader(t, nil)
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.LoadSource("m.yml", []byte(code))
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindMigrationScript))
		})
	}
}

func TestLoadRejectsUnknownAndMissing(t *testing.T) {
	l := newLoader(t, map[string]string{"m.txt": "rename"})
	_, err := l.Load("m.txt")
	assert.True(t, errs.IsKind(err, errs.KindMigrationScript))

	_, err = l.Load("nope.go")
	assert.True(t, errs.IsKind(err, errs.KindMigrationScript))

	_, err = l.LoadSource("empty.go", []byte("  \n"))
	assert.True(t, errs.IsKind(err, errs.KindMigrationScript))
}
