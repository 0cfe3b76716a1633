package refactor

import (
	"sort"
	"strings"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/refactor/transform"
)

// fromImport is one located `from M import a, b` statement.
type fromImport struct {
	module models.Reference
	names  []models.Reference
}

// renamedFQN applies the exact rename of fqn, else the rename of its
// longest renamed prefix.
func renamedFQN(renames map[string]string, fqn string) string {
	if n, ok := renames[fqn]; ok {
		return n
	}
	if best, ok := longestRename(renames, fqn); ok {
		return renames[best] + fqn[len(best):]
	}
	return fqn
}

// fromImportEdits rewrites the module of `from M import name` when the
// imported names end up in another package, as when a submodule moves. The
// returned ranges are module paths already rewritten here.
func (p *Planner) fromImportEdits(file string, content []byte, renames map[string]string) ([]transform.Edit, map[models.Range]bool, error) {
	refs, err := p.ctx.Store.ReferencesInFile(file)
	if err != nil {
		return nil, nil, errs.Parse(file, err)
	}
	lines := transform.NewLines(content)
	stmts := collectFromImports(refs, lines, content)

	var edits []transform.Edit
	handled := make(map[models.Range]bool)
	for _, st := range stmts {
		want := renamedFQN(renames, st.module.TargetFQN)
		parent := ""
		for i, n := range st.names {
			np := parentFQN(renamedFQN(renames, n.TargetFQN))
			if i > 0 && np != parent {
				e := errs.IntentConflict("import of %s splits between %s and %s", st.module.TargetFQN, parent, np)
				e.Path = file
				return nil, nil, e
			}
			parent = np
		}
		if parent == want {
			continue
		}
		if parent == "" {
			e := errs.IntentConflict("names imported from %s move to the top level", st.module.TargetFQN)
			e.Path = file
			return nil, nil, e
		}
		start, end, ok := lines.Span(*st.module.Range)
		if !ok {
			continue
		}
		edits = append(edits, transform.Edit{Start: start, End: end, Text: parent})
		handled[*st.module.Range] = true
	}
	return edits, handled, nil
}

// collectFromImports pairs each located import path with the names that
// follow it in the same from-import statement.
func collectFromImports(refs []models.Reference, lines *transform.Lines, content []byte) []fromImport {
	type located struct {
		ref        models.Reference
		start, end int
	}
	var mods, syms []located
	for _, r := range refs {
		if r.Range == nil {
			continue
		}
		start, end, ok := lines.Span(*r.Range)
		if !ok {
			continue
		}
		switch r.Kind {
		case models.RefImportPath:
			mods = append(mods, located{r, start, end})
		case models.RefSymbol:
			syms = append(syms, located{r, start, end})
		}
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].start < syms[j].start })

	var out []fromImport
	for _, m := range mods {
		st := fromImport{module: m.ref}
		for _, s := range syms {
			if s.start < m.end || parentFQN(s.ref.TargetFQN) != m.ref.TargetFQN {
				continue
			}
			if !importPrefix(string(content[m.end:s.start])) {
				break
			}
			st.names = append(st.names, s.ref)
		}
		if len(st.names) > 0 {
			out = append(out, st)
		}
	}
	return out
}

// importPrefix reports whether s can sit between the module path of a
// from-import and one of its names: the import keyword, then names,
// aliases and commas. Newlines need a paren or a line continuation.
func importPrefix(s string) bool {
	i := skipInline(s, 0)
	if !strings.HasPrefix(s[i:], "import") {
		return false
	}
	i += len("import")
	if i < len(s) && identByte(s[i]) {
		return false
	}
	paren := false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' && !paren:
			paren = true
		case strings.HasPrefix(s[i:], "\\\n"):
			i++
		case strings.HasPrefix(s[i:], "\\\r\n"):
			i += 2
		case c == '\n' || c == '\r':
			if !paren {
				return false
			}
		case c == ',' || c == ' ' || c == '\t' || identByte(c):
		default:
			return false
		}
	}
	return true
}

// skipInline skips blanks and line continuations.
func skipInline(s string, i int) int {
	for i < len(s) {
		switch {
		case s[i] == ' ' || s[i] == '\t':
			i++
		case strings.HasPrefix(s[i:], "\\\n"):
			i += 2
		case strings.HasPrefix(s[i:], "\\\r\n"):
			i += 3
		default:
			return i
		}
	}
	return i
}

func identByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func parentFQN(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[:i]
	}
	return ""
}
