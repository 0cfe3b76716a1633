// Package uri builds and parses symbol URIs of the form
// scheme://workspace/relative/path#Lexical.Fragment.
package uri

import (
	"fmt"
	"path"
	"strings"
)

const sep = "://"

type Generator interface {
	Scheme() string
	GenerateFileURI(filePath string) string
	GenerateSymbolURI(filePath, fragment string) string
	Parse(suri string) (filePath, fragment string, err error)
}

type generator struct {
	scheme string
}

func New(scheme string) Generator { return &generator{scheme: scheme} }

// Python is the generator used for .py sources.
var Python = New("py")

// ForPath picks a generator from the file extension.
func ForPath(filePath string) Generator {
	switch path.Ext(filePath) {
	case ".py", ".pyi":
		return Python
	case ".yaml", ".yml":
		return New("yaml")
	case ".json":
		return New("json")
	}
	return New("file")
}

func (g *generator) Scheme() string { return g.scheme }

func (g *generator) GenerateFileURI(filePath string) string {
	return g.scheme + sep + toSlash(filePath)
}

func (g *generator) GenerateSymbolURI(filePath, fragment string) string {
	if fragment == "" {
		return g.GenerateFileURI(filePath)
	}
	return g.scheme + sep + toSlash(filePath) + "#" + fragment
}

func (g *generator) Parse(suri string) (string, string, error) {
	scheme, p, frag, err := Split(suri)
	if err != nil {
		return "", "", err
	}
	if scheme != g.scheme {
		return "", "", fmt.Errorf("uri %q: expected scheme %q", suri, g.scheme)
	}
	return p, frag, nil
}

// Split breaks any SURI into its parts without checking the scheme.
func Split(suri string) (scheme, filePath, fragment string, err error) {
	i := strings.Index(suri, sep)
	if i <= 0 {
		return "", "", "", fmt.Errorf("uri %q: missing scheme", suri)
	}
	scheme = suri[:i]
	rest := suri[i+len(sep):]
	if j := strings.IndexByte(rest, '#'); j >= 0 {
		filePath, fragment = rest[:j], rest[j+1:]
	} else {
		filePath = rest
	}
	if filePath == "" {
		return "", "", "", fmt.Errorf("uri %q: empty path", suri)
	}
	return scheme, filePath, fragment, nil
}

func IsSURI(s string) bool {
	_, _, _, err := Split(s)
	return err == nil && !strings.ContainsAny(s, " \t\n")
}

func Join(scheme, filePath, fragment string) string {
	return New(scheme).GenerateSymbolURI(filePath, fragment)
}

// RewritePath moves a SURI whose path is oldPath, or lies under the directory
// oldPath, to newPath. The fragment is kept.
func RewritePath(suri, oldPath, newPath string) (string, bool) {
	scheme, p, frag, err := Split(suri)
	if err != nil {
		return suri, false
	}
	moved, ok := MovePath(p, toSlash(oldPath), toSlash(newPath))
	if !ok {
		return suri, false
	}
	return Join(scheme, moved, frag), true
}

// RewriteFragment renames the lexical path oldFrag to newFrag, including any
// members nested below it.
func RewriteFragment(suri, oldFrag, newFrag string) (string, bool) {
	scheme, p, frag, err := Split(suri)
	if err != nil || oldFrag == "" {
		return suri, false
	}
	switch {
	case frag == oldFrag:
		frag = newFrag
	case strings.HasPrefix(frag, oldFrag+"."):
		frag = newFrag + frag[len(oldFrag):]
	default:
		return suri, false
	}
	return Join(scheme, p, frag), true
}

// MovePath maps p through a file or directory move.
func MovePath(p, oldPath, newPath string) (string, bool) {
	switch {
	case p == oldPath:
		return newPath, true
	case strings.HasPrefix(p, oldPath+"/"):
		return newPath + p[len(oldPath):], true
	}
	return p, false
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
