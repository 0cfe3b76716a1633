package bus

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogFormatsSortedParams(t *testing.T) {
	var buf bytes.Buffer
	b := NewLog(&buf)
	b.Info(PlanStart, Params{"ops": 3, "dry_run": true})
	b.Error(CommitFailed, nil)

	assert.Equal(t,
		"info refactor.plan.start dry_run=true ops=3\nerror refactor.commit.failed\n",
		buf.String())
}

func TestStyledWritesPointer(t *testing.T) {
	var buf bytes.Buffer
	NewStyled(&buf).Warning(IntegrityWarning, Params{"count": 2})
	out := buf.String()
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, IntegrityWarning)
	assert.Contains(t, out, "count=2")
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))
	r := &Recorder{}
	assert.Same(t, r, OrNop(r))
	r.Success(CommitSuccess, nil)
	assert.Equal(t, []string{CommitSuccess}, r.Pointers())
}
