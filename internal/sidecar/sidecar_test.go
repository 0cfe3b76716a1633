package sidecar

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/workspace"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "src/pkg/core.stitcher.yaml", DocPath("src/pkg/core.py"))
	assert.Equal(t, ".stitcher/signatures/src/pkg/core.json", SignaturePath("src/pkg/core.py"))
	assert.Equal(t, "libs/a/stitcher.lock", LockPath("libs/a"))
	assert.Equal(t, "stitcher.lock", LockPath("."))

	assert.Equal(t, KindDoc, KindOf("pkg/core.stitcher.yaml"))
	assert.Equal(t, KindSignature, KindOf(".stitcher/signatures/pkg/core.json"))
	assert.Equal(t, KindLock, KindOf("stitcher.lock"))
	assert.Equal(t, KindUnknown, KindOf("pkg/core.py"))
}

func TestUpdateYAMLRenamesKeyInPlace(t *testing.T) {
	in := "__doc__: M\nOld: O\nhelper: H\n"

	out, changed, err := UpdateYAML([]byte(in), Update{KeyRenames: map[string]string{"Old": "New"}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "__doc__: M\nNew: O\nhelper: H\n", string(out))

	keys, err := Keys(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"__doc__", "New", "helper"}, keys)
}

func TestUpdateYAMLRenamesMemberKeysAndKeepsComments(t *testing.T) {
	in := `# module docs
Old: |
  The old class.
Old.method: Does things.
Older:      untouched
`
	out, changed, err := UpdateYAML([]byte(in), Update{KeyRenames: map[string]string{"Old": "New"}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, `# module docs
New: |
  The old class.
New.method: Does things.
Older:      untouched
`, string(out))
}

func TestUpdateYAMLPassThrough(t *testing.T) {
	for _, in := range []string{"- a\n- b\n", "just text\n", ""} {
		out, changed, err := UpdateYAML([]byte(in), Update{KeyRenames: map[string]string{"a": "b"}})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, in, string(out))
	}

	in := "Keep:   spacing\n"
	out, changed, err := UpdateYAML([]byte(in), Update{KeyRenames: map[string]string{"Other": "X"}})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, in, string(out))
}

func TestUpdateYAMLRewritesSURIValues(t *testing.T) {
	in := "Old:\n  see:\n    - py://pkg/core.py#Old.method\n    - py://pkg/other.py#X\n"
	u := Update{
		Symbols: []SymbolRename{{Path: "pkg/core.py", OldFragment: "Old", NewFragment: "New"}},
		Moves:   []PathMove{{Old: "pkg/core.py", New: "pkg/moved/core.py"}},
	}

	out, changed, err := UpdateYAML([]byte(in), u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Old:\n  see:\n    - py://pkg/moved/core.py#New.method\n    - py://pkg/other.py#X\n", string(out))
}

func TestYAMLRoundTripKeepsOrder(t *testing.T) {
	in := "zeta: 1\nalpha:\n  nested: [a, b]\nmid: \"quoted\"\n"
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(in), &n))
	out, err := encodeYAML(&n)
	require.NoError(t, err)

	keys, err := Keys(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	var a, b map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(in), &a))
	require.NoError(t, yaml.Unmarshal(out, &b))
	assert.Equal(t, a, b)
}

func TestUpdateJSONSortsAndIndents(t *testing.T) {
	in := `{"zeta": {"hash": "z"}, "Old": {"hash": "o", "count": 1.50}}`

	out, changed, err := UpdateJSON([]byte(in), Update{KeyRenames: map[string]string{"Old": "New"}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "{\n  \"New\": {\n    \"count\": 1.50,\n    \"hash\": \"o\"\n  },\n  \"zeta\": {\n    \"hash\": \"z\"\n  }\n}\n", string(out))

	same, changed, err := UpdateJSON([]byte(in), Update{KeyRenames: map[string]string{"Missing": "X"}})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, in, string(same))
}

func TestKeyRenameOntoExistingKeyConflicts(t *testing.T) {
	u := Update{KeyRenames: map[string]string{"Old": "New"}}

	_, _, err := UpdateYAML([]byte("Old: o\nNew: n\n"), u)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindIntentConflict))
	assert.Contains(t, err.Error(), `"Old"`)
	assert.Contains(t, err.Error(), `"New"`)

	_, _, err = UpdateJSON([]byte(`{"New": {"hash": "n"}, "Old": {"hash": "o"}}`), u)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindIntentConflict))
	assert.Contains(t, err.Error(), `"Old"`)

	// duplicates already present in the input are left alone
	out, changed, err := UpdateYAML([]byte("A: 1\nA: 2\nOld: o\n"), u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "A: 1\nA: 2\nNew: o\n", string(out))
}

func newWorkspace(t *testing.T, files map[string]string) *workspace.Workspace {
	t.Helper()
	ws := workspace.New(afero.NewMemMapFs(), "/ws", nil)
	for rel, content := range files {
		require.NoError(t, afero.WriteFile(ws.Fs, ws.Abs(rel), []byte(content), 0o644))
	}
	return ws
}

func TestLockManagerLoadSave(t *testing.T) {
	ws := newWorkspace(t, nil)
	m := NewLockManager(ws)

	fps, err := m.Load(".")
	require.NoError(t, err)
	assert.Empty(t, fps)

	fps["py://pkg/core.py#Old"] = json.RawMessage(`{"signature_hash":"s1"}`)
	require.NoError(t, m.Save(".", fps))

	data, err := ws.ReadFile("stitcher.lock")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"version\": \"1.0\",\n  \"fingerprints\": {\n    \"py://pkg/core.py#Old\": {\n      \"signature_hash\": \"s1\"\n    }\n  }\n}\n", string(data))

	loaded, err := m.Load(".")
	require.NoError(t, err)
	fp, ok := loaded.Entry("py://pkg/core.py#Old")
	require.True(t, ok)
	assert.Equal(t, models.Fingerprint{SignatureHash: "s1"}, fp)
}

func TestPlanLocksRenamesAndTransfers(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"libs/b/pyproject.toml": "",
		"stitcher.lock": `{"version": "1.0", "fingerprints": {
			"py://pkg/core.py#Old":    {"signature_hash": "s1"},
			"py://pkg/core.py#helper": {"signature_hash": "s2"},
			"py://pkg/keep.py#K":      {"signature_hash": "s3"}}}`,
	})
	m := NewLockManager(ws)

	u := Update{
		Symbols: []SymbolRename{{Path: "pkg/core.py", OldFragment: "Old", NewFragment: "New"}},
		Moves:   []PathMove{{Old: "pkg/core.py", New: "libs/b/core.py"}},
	}
	out, err := m.PlanLocks(u, []string{"."})
	require.NoError(t, err)
	require.Len(t, out, 2)

	var rootLock, bLock lockFile
	require.NoError(t, json.Unmarshal(out["stitcher.lock"], &rootLock))
	require.NoError(t, json.Unmarshal(out["libs/b/stitcher.lock"], &bLock))
	assert.Equal(t, []string{"py://pkg/keep.py#K"}, keysOf(rootLock.Fingerprints))
	assert.Equal(t, []string{"py://libs/b/core.py#New", "py://libs/b/core.py#helper"}, keysOf(bLock.Fingerprints))

	none, err := m.PlanLocks(Update{Moves: []PathMove{{Old: "x.py", New: "y.py"}}}, []string{"."})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func keysOf(fps Fingerprints) []string {
	var keys []string
	for k := range fps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestDocAdapterEmitsSidecarReferences(t *testing.T) {
	content := "__doc__: M\nOld: see py://pkg/other.py#X\nhelper:\n  link: py://pkg/other.py#X\n"
	a := NewDocAdapter(func(p string) string {
		return map[string]string{"pkg/other.py": "pkg.other"}[p]
	})

	idx, err := a.Parse("pkg/core.stitcher.yaml", "pkg.core", []byte(content))
	require.NoError(t, err)

	var names, ids []string
	for _, r := range idx.References {
		switch r.Kind {
		case models.RefSidecarName:
			names = append(names, r.TargetFQN)
			require.NotNil(t, r.Range)
			assert.Equal(t, r.TargetFQN[len("pkg.core."):], content[r.Range.StartByte:r.Range.EndByte])
		case models.RefSidecarID:
			ids = append(ids, r.TargetFQN)
		}
	}
	assert.Equal(t, []string{"pkg.core.Old", "pkg.core.helper"}, names)
	assert.Equal(t, []string{"pkg.other.X"}, ids)
}
