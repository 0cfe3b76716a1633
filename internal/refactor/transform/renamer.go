package transform

import (
	"strings"

	"github.com/0x5457/stitcher/internal/models"
)

// SymbolRenamer rewrites identifier tokens at exactly the supplied
// locations. RenameMap is keyed by the old FQN; only the last segment of
// the new FQN is written.
type SymbolRenamer struct {
	RenameMap map[string]string
	Locations []models.UsageLocation
}

func (r *SymbolRenamer) Edits(content []byte) []Edit {
	lines := NewLines(content)
	var edits []Edit
	for _, loc := range r.Locations {
		newFQN, ok := r.RenameMap[loc.TargetFQN]
		if !ok {
			continue
		}
		start, end, ok := lines.Span(loc.Range)
		if !ok {
			continue
		}
		// a token that no longer spells the old name is not ours to touch
		if string(content[start:end]) != lastSegment(loc.TargetFQN) {
			continue
		}
		if name := lastSegment(newFQN); name != string(content[start:end]) {
			edits = append(edits, Edit{Start: start, End: end, Text: name})
		}
	}
	return edits
}

func (r *SymbolRenamer) Transform(content []byte) ([]byte, error) {
	return ApplyEdits(content, r.Edits(content))
}

// NamespaceRenamer rewrites dotted import paths and attribute chains whose
// target starts with OldPrefix. Only the prefix segments are replaced, so a
// chain wrapped over several lines keeps its layout after the prefix. A
// location whose identifiers do not spell the full dotted target is left
// alone.
type NamespaceRenamer struct {
	OldPrefix string
	NewPrefix string
	Locations []models.UsageLocation
}

func (r *NamespaceRenamer) Edits(content []byte) []Edit {
	lines := NewLines(content)
	oldSegs := strings.Split(r.OldPrefix, ".")
	newSegs := strings.Split(r.NewPrefix, ".")
	var edits []Edit
	for _, loc := range r.Locations {
		if _, ok := StripPrefix(loc.TargetFQN, r.OldPrefix); !ok || r.OldPrefix == r.NewPrefix {
			continue
		}
		start, end, ok := lines.Span(loc.Range)
		if !ok {
			continue
		}
		text := content[start:end]
		segs, ok := dottedSegments(text)
		if !ok || len(segs) < len(oldSegs) || joinSegments(text, segs) != loc.TargetFQN {
			continue
		}

		head := segs[:len(oldSegs)]
		from, to := head[0].start, head[len(head)-1].end
		if !strings.ContainsAny(string(text[from:to]), "()") {
			edits = append(edits, Edit{Start: start + from, End: start + to, Text: r.NewPrefix})
			continue
		}
		// parens inside the prefix pin its shape; only a same-length prefix
		// can be swapped segment by segment
		if len(newSegs) != len(oldSegs) {
			continue
		}
		for i, sg := range head {
			if string(text[sg.start:sg.end]) != newSegs[i] {
				edits = append(edits, Edit{Start: start + sg.start, End: start + sg.end, Text: newSegs[i]})
			}
		}
	}
	return edits
}

type segment struct{ start, end int }

// dottedSegments splits a dotted chain into its identifier spans. Between
// identifiers only a single dot plus whitespace, parens and line
// continuations are allowed.
func dottedSegments(text []byte) ([]segment, bool) {
	var segs []segment
	i := skipGap(text, 0)
	for {
		j := i
		for j < len(text) && isIdentByte(text[j]) {
			j++
		}
		if j == i {
			return nil, false
		}
		segs = append(segs, segment{start: i, end: j})
		i = skipGap(text, j)
		if i == len(text) {
			return segs, true
		}
		if text[i] != '.' {
			return nil, false
		}
		i = skipGap(text, i+1)
	}
}

func skipGap(text []byte, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\r', '\n', '\\', '(', ')':
			i++
		default:
			return i
		}
	}
	return i
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func joinSegments(text []byte, segs []segment) string {
	parts := make([]string, len(segs))
	for i, sg := range segs {
		parts[i] = string(text[sg.start:sg.end])
	}
	return strings.Join(parts, ".")
}

func (r *NamespaceRenamer) Transform(content []byte) ([]byte, error) {
	return ApplyEdits(content, r.Edits(content))
}

// StripPrefix returns the remainder of fqn after a dotted prefix, including
// the leading dot.
func StripPrefix(fqn, prefix string) (string, bool) {
	switch {
	case fqn == prefix:
		return "", true
	case strings.HasPrefix(fqn, prefix+"."):
		return fqn[len(prefix):], true
	}
	return "", false
}

func lastSegment(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}
