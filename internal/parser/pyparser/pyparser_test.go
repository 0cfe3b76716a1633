package pyparser_test

import (
	"testing"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/parser/pyparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, module, code string) *models.FileIndex {
	t.Helper()
	idx, err := pyparser.New().Parse(path, module, []byte(code))
	require.NoError(t, err)
	return idx
}

// spelled returns the source text of every located reference to target.
func spelled(code string, idx *models.FileIndex, target string) []string {
	var out []string
	for _, r := range idx.References {
		if r.TargetFQN == target && r.Range != nil {
			out = append(out, code[r.Range.StartByte:r.Range.EndByte])
		}
	}
	return out
}

func symbolByFQN(idx *models.FileIndex, fqn string) *models.Symbol {
	for i := range idx.Symbols {
		if idx.Symbols[i].FQN == fqn {
			return &idx.Symbols[i]
		}
	}
	return nil
}

func Test_PyParser_Definitions(t *testing.T) {
	code := `LIMIT = 3


class Old:
    size = 1

    def method(self, x):
        return x


def helper():
    pass
`
	idx := parse(t, "src/pkg/core.py", "pkg.core", code)

	mod := symbolByFQN(idx, "pkg.core")
	require.NotNil(t, mod)
	assert.Equal(t, models.SymbolModule, mod.Kind)
	assert.Equal(t, "py://src/pkg/core.py", mod.ID)

	cls := symbolByFQN(idx, "pkg.core.Old")
	require.NotNil(t, cls)
	assert.Equal(t, "py://src/pkg/core.py#Old", cls.ID)
	assert.Equal(t, mod.ID, cls.ParentID)
	assert.Equal(t, models.SymbolClass, cls.Kind)
	assert.NotEmpty(t, cls.SignatureHash)
	assert.Equal(t, 4, cls.Range.StartLine)

	method := symbolByFQN(idx, "pkg.core.Old.method")
	require.NotNil(t, method)
	assert.Equal(t, "py://src/pkg/core.py#Old.method", method.ID)
	assert.Equal(t, cls.ID, method.ParentID)

	attr := symbolByFQN(idx, "pkg.core.Old.size")
	require.NotNil(t, attr)
	assert.Equal(t, models.SymbolAttribute, attr.Kind)

	require.NotNil(t, symbolByFQN(idx, "pkg.core.LIMIT"))
	require.NotNil(t, symbolByFQN(idx, "pkg.core.helper"))
	assert.Nil(t, symbolByFQN(idx, "pkg.core.Old.method.x"))

	// definition sites are references to themselves
	assert.Equal(t, []string{"Old"}, spelled(code, idx, "pkg.core.Old"))
	for _, r := range idx.References {
		if r.TargetFQN == "pkg.core.Old" {
			assert.Equal(t, cls.ID, r.TargetID)
		}
	}
}

func Test_PyParser_FromImportUsages(t *testing.T) {
	code := `from pkg.core import Old


def build(n):
    obj = Old()
    return obj, Old.method, "Old"
`
	idx := parse(t, "src/app.py", "app", code)

	assert.Equal(t, []string{"Old", "Old", "Old"}, spelled(code, idx, "pkg.core.Old"))
	assert.Equal(t, []string{"method"}, spelled(code, idx, "pkg.core.Old.method"))
	assert.Equal(t, []string{"pkg.core"}, spelled(code, idx, "pkg.core"))
	for _, r := range idx.References {
		if r.TargetFQN == "pkg.core" {
			assert.Equal(t, models.RefImportPath, r.Kind)
		}
	}
}

func Test_PyParser_LocalShadowing(t *testing.T) {
	code := `from pkg.core import Old


def f(Old):
    return Old


def g():
    Old = 1
    return Old


def h():
    return Old
`
	idx := parse(t, "app.py", "app", code)

	// import name plus the single free use inside h
	assert.Len(t, spelled(code, idx, "pkg.core.Old"), 2)
	var lines []int
	for _, ref := range idx.References {
		if ref.TargetFQN == "pkg.core.Old" {
			lines = append(lines, ref.Range.StartLine)
		}
	}
	assert.Equal(t, []int{1, 14}, lines)
}

func Test_PyParser_AliasesAreNotRenamed(t *testing.T) {
	code := `from pkg.core import Old as O
import pkg.util as u

x = O()
y = u.tool()
`
	idx := parse(t, "app.py", "app", code)

	assert.Equal(t, []string{"Old"}, spelled(code, idx, "pkg.core.Old"))
	assert.Equal(t, []string{"tool"}, spelled(code, idx, "pkg.util.tool"))
	assert.Equal(t, []string{"pkg.util"}, spelled(code, idx, "pkg.util"))
}

func Test_PyParser_ImportPathChains(t *testing.T) {
	code := `import pkg.core

value = pkg.core.Old()
`
	idx := parse(t, "app.py", "app", code)

	assert.Equal(t, []string{"pkg.core"}, spelled(code, idx, "pkg.core"))
	assert.Equal(t, []string{"pkg.core.Old"}, spelled(code, idx, "pkg.core.Old"))
	for _, r := range idx.References {
		if r.TargetFQN == "pkg.core.Old" {
			assert.Equal(t, models.RefImportPath, r.Kind)
		}
	}
}

func Test_PyParser_SelfMembers(t *testing.T) {
	code := `class Service:
    def start(self):
        self.stop()
        self.unknown()

    def stop(self):
        pass
`
	idx := parse(t, "svc.py", "svc", code)

	assert.Equal(t, []string{"stop", "stop"}, spelled(code, idx, "svc.Service.stop"))
	assert.Empty(t, spelled(code, idx, "svc.Service.unknown"))
}

func Test_PyParser_RelativeImport(t *testing.T) {
	code := `from .core import Old
`
	idx := parse(t, "pkg/app.py", "pkg.app", code)

	assert.Equal(t, []string{"Old"}, spelled(code, idx, "pkg.core.Old"))
	var unlocated int
	for _, r := range idx.References {
		if r.TargetFQN == "pkg.core" {
			assert.Nil(t, r.Range)
			unlocated++
		}
	}
	assert.Equal(t, 1, unlocated)
}

func Test_PyParser_KeywordArgumentsAndStrings(t *testing.T) {
	code := `from pkg.core import Old

call(Old="Old", other=Old)
`
	idx := parse(t, "app.py", "app", code)

	// the import name and the keyword value; never the keyword name or string
	assert.Len(t, spelled(code, idx, "pkg.core.Old"), 2)
}

func Test_PyParser_UnresolvedTypeAlias(t *testing.T) {
	code := `type Alias = Missing
`
	idx := parse(t, "types_.py", "types_", code)

	require.NotNil(t, symbolByFQN(idx, "types_.Alias"))
	var found bool
	for _, r := range idx.References {
		if r.TargetFQN == "Missing" {
			found = true
			assert.Nil(t, r.Range)
		}
	}
	assert.True(t, found)
}

func Test_PyParser_SyntaxError(t *testing.T) {
	_, err := pyparser.New().Parse("bad.py", "bad", []byte("def broken(:\n"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindParse))
}

func Test_PyParser_InitModule(t *testing.T) {
	code := `from . import core
`
	idx := parse(t, "pkg/__init__.py", "pkg", code)

	assert.Equal(t, []string{"core"}, spelled(code, idx, "pkg.core"))
	mod := symbolByFQN(idx, "pkg")
	require.NotNil(t, mod)
	assert.Equal(t, "pkg", mod.Name)
}
