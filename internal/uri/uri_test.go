package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	suri := Python.GenerateSymbolURI("src/pkg/core.py", "Old.method")
	assert.Equal(t, "py://src/pkg/core.py#Old.method", suri)
	assert.Equal(t, "py://src/pkg/core.py", Python.GenerateFileURI("src/pkg/core.py"))

	p, frag, err := Python.Parse(suri)
	require.NoError(t, err)
	assert.Equal(t, "src/pkg/core.py", p)
	assert.Equal(t, "Old.method", frag)

	_, _, err = New("yaml").Parse(suri)
	assert.Error(t, err)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "pkg/core.py", "py://", "://x"} {
		_, _, _, err := Split(s)
		assert.Error(t, err, s)
	}
	assert.False(t, IsSURI("Old.method"))
	assert.True(t, IsSURI("py://a.py#X"))
}

func TestRewritePath(t *testing.T) {
	got, ok := RewritePath("py://pkg/a.py#X", "pkg/a.py", "pkg/b.py")
	assert.True(t, ok)
	assert.Equal(t, "py://pkg/b.py#X", got)

	got, ok = RewritePath("py://pkg/sub/a.py#X.y", "pkg/sub", "lib/sub")
	assert.True(t, ok)
	assert.Equal(t, "py://lib/sub/a.py#X.y", got)

	got, ok = RewritePath("py://pkg/subway.py", "pkg/sub", "lib/sub")
	assert.False(t, ok)
	assert.Equal(t, "py://pkg/subway.py", got)
}

func TestRewriteFragment(t *testing.T) {
	got, ok := RewriteFragment("py://a.py#Old.method", "Old", "New")
	assert.True(t, ok)
	assert.Equal(t, "py://a.py#New.method", got)

	_, ok = RewriteFragment("py://a.py#Older", "Old", "New")
	assert.False(t, ok)
}

func TestForPath(t *testing.T) {
	assert.Equal(t, "py", ForPath("a/b.py").Scheme())
	assert.Equal(t, "yaml", ForPath("a/b.stitcher.yaml").Scheme())
	assert.Equal(t, "json", ForPath(".stitcher/signatures/a/b.py.json").Scheme())
}
