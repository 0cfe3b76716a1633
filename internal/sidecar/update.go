package sidecar

import (
	"strings"

	"github.com/0x5457/stitcher/internal/uri"
)

// SymbolRename renames the lexical fragment of symbols defined in Path.
type SymbolRename struct {
	Path        string
	OldFragment string
	NewFragment string
}

type PathMove struct {
	Old string
	New string
}

// Update describes how sidecar content changes: top-level keys renamed by
// KeyRenames, and every SURI value rewritten through Symbols then Moves.
type Update struct {
	KeyRenames map[string]string
	Symbols    []SymbolRename
	Moves      []PathMove
}

func (u Update) Empty() bool {
	return len(u.KeyRenames) == 0 && len(u.Symbols) == 0 && len(u.Moves) == 0
}

// RenameKey maps a top-level key. "Old" and "Old.method" both follow a
// rename of "Old".
func (u Update) RenameKey(key string) (string, bool) {
	if n, ok := u.KeyRenames[key]; ok {
		return n, n != key
	}
	best := ""
	for old := range u.KeyRenames {
		if strings.HasPrefix(key, old+".") && len(old) > len(best) {
			best = old
		}
	}
	if best == "" {
		return key, false
	}
	return u.KeyRenames[best] + key[len(best):], true
}

// RewriteSURI applies fragment renames against the pre-move path, then the
// path moves.
func (u Update) RewriteSURI(s string) (string, bool) {
	if !uri.IsSURI(s) {
		return s, false
	}
	_, p, _, _ := uri.Split(s)
	out := s
	for _, r := range u.Symbols {
		if r.Path != p {
			continue
		}
		if next, ok := uri.RewriteFragment(out, r.OldFragment, r.NewFragment); ok {
			out = next
			break
		}
	}
	for _, m := range u.Moves {
		if next, ok := uri.RewritePath(out, m.Old, m.New); ok {
			out = next
			break
		}
	}
	return out, out != s
}

// Merge combines two updates; later key renames win.
func (u Update) Merge(o Update) Update {
	out := Update{KeyRenames: make(map[string]string, len(u.KeyRenames)+len(o.KeyRenames))}
	for k, v := range u.KeyRenames {
		out.KeyRenames[k] = v
	}
	for k, v := range o.KeyRenames {
		out.KeyRenames[k] = v
	}
	out.Symbols = append(append(out.Symbols, u.Symbols...), o.Symbols...)
	out.Moves = append(append(out.Moves, u.Moves...), o.Moves...)
	return out
}
