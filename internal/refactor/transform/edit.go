// Package transform rewrites source text by byte range. Everything outside
// the edited ranges, comments and whitespace included, is copied verbatim.
package transform

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/0x5457/stitcher/internal/models"
)

var ErrOverlap = errors.New("overlapping edits")

// Edit replaces content[Start:End] with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// ApplyEdits applies non-overlapping edits. Identical duplicates are
// collapsed; any other overlap is an error.
func ApplyEdits(content []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return content, nil
	}
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var buf bytes.Buffer
	buf.Grow(len(content))
	pos := 0
	var prev *Edit
	for i := range sorted {
		e := sorted[i]
		if e.Start < 0 || e.End < e.Start || e.End > len(content) {
			return nil, fmt.Errorf("edit [%d,%d) outside content of %d bytes", e.Start, e.End, len(content))
		}
		if prev != nil && e.Start < prev.End {
			if e == *prev {
				continue
			}
			return nil, fmt.Errorf("%w: [%d,%d) and [%d,%d)", ErrOverlap, prev.Start, prev.End, e.Start, e.End)
		}
		buf.Write(content[pos:e.Start])
		buf.WriteString(e.Text)
		pos = e.End
		prev = &sorted[i]
	}
	buf.Write(content[pos:])
	return buf.Bytes(), nil
}

// Lines converts line/column positions to byte offsets.
type Lines struct {
	starts []int
	size   int
}

func NewLines(content []byte) *Lines {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lines{starts: starts, size: len(content)}
}

// Offset maps a 1-based line and 0-based byte column.
func (l *Lines) Offset(line, col int) (int, bool) {
	if line < 1 || line > len(l.starts) || col < 0 {
		return 0, false
	}
	off := l.starts[line-1] + col
	if off > l.size {
		return 0, false
	}
	return off, true
}

// Span resolves a range to byte offsets using its line and column fields.
func (l *Lines) Span(r models.Range) (int, int, bool) {
	start, ok := l.Offset(r.StartLine, r.StartCol)
	if !ok {
		return 0, 0, false
	}
	end, ok := l.Offset(r.EndLine, r.EndCol)
	if !ok || end < start {
		return 0, 0, false
	}
	return start, end, true
}
