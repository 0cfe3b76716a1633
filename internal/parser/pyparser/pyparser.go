package pyparser

import (
	"fmt"
	"path"
	"strings"

	"github.com/0x5457/stitcher/internal/errs"
	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/parser"
	"github.com/0x5457/stitcher/internal/uri"
	"github.com/0x5457/stitcher/internal/util"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tspython "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

type PyParser struct{}

func New() *PyParser { return &PyParser{} }

func (p *PyParser) Language() string { return "python" }

func (p *PyParser) Extensions() []string { return []string{".py"} }

func (p *PyParser) Parse(filePath, moduleFQN string, code []byte) (*models.FileIndex, error) {
	ts := tree_sitter.NewParser()
	defer ts.Close()
	if err := ts.SetLanguage(tree_sitter.NewLanguage(tspython.Language())); err != nil {
		return nil, err
	}

	tree := ts.Parse(code, nil)
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		return nil, errs.Parse(filePath, syntaxError(root))
	}

	w := &walker{
		path:   filePath,
		module: moduleFQN,
		code:   code,
		ids:    make(map[string]string),
	}
	if path.Base(filePath) == "__init__.py" {
		w.pkg = moduleFQN
	} else {
		w.pkg = parentFQN(moduleFQN)
	}
	w.walkModule(root)

	return &models.FileIndex{
		Path:        filePath,
		ModuleFQN:   moduleFQN,
		ContentHash: util.ContentHash(code),
		Symbols:     w.symbols,
		References:  w.refs,
	}, nil
}

func syntaxError(root *tree_sitter.Node) error {
	var found *tree_sitter.Node
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if found != nil || !n.HasError() && !n.IsMissing() {
			return
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if found == nil {
		return fmt.Errorf("syntax error")
	}
	pos := found.StartPosition()
	return fmt.Errorf("syntax error at line %d column %d", pos.Row+1, pos.Column)
}

type walker struct {
	path    string
	module  string
	pkg     string
	code    []byte
	symbols []models.Symbol
	refs    []models.Reference
	ids     map[string]string
}

func (w *walker) walkModule(root *tree_sitter.Node) {
	id := uri.Python.GenerateFileURI(w.path)
	w.addSymbol(models.Symbol{
		ID:       id,
		FQN:      w.module,
		Name:     lastSegment(w.module),
		Kind:     models.SymbolModule,
		FilePath: w.path,
		Range:    nodeRange(root),
	})
	s := newScope(scopeModule, nil, w.module, "", id)
	w.declare(root, s)
	w.visitChildren(root, s)

	for i := range w.refs {
		if id, ok := w.ids[w.refs[i].TargetFQN]; ok {
			w.refs[i].TargetID = id
		}
	}
}

func (w *walker) addSymbol(sym models.Symbol) {
	if _, dup := w.ids[sym.FQN]; dup {
		return
	}
	w.ids[sym.FQN] = sym.ID
	w.symbols = append(w.symbols, sym)
}

func (w *walker) ref(n *tree_sitter.Node, target string, kind models.ReferenceKind) {
	w.refs = append(w.refs, models.Reference{
		SourceFile: w.path,
		TargetFQN:  target,
		Kind:       kind,
		Range:      nodeRange(n),
	})
}

func (w *walker) unlocated(target string, kind models.ReferenceKind) {
	w.refs = append(w.refs, models.Reference{SourceFile: w.path, TargetFQN: target, Kind: kind})
}

func (w *walker) text(n *tree_sitter.Node) string {
	return string(w.code[n.StartByte():n.EndByte()])
}

// definition registers a class, function or attribute declared in s.
func (w *walker) definition(
	n, nameNode *tree_sitter.Node,
	s *scope,
	kind models.SymbolKind,
	header string,
) (fqn, fragment, id string) {
	name := w.text(nameNode)
	fragment = join(s.fragment, name)
	fqn = join(w.module, fragment)
	id = uri.Python.GenerateSymbolURI(w.path, fragment)
	sym := models.Symbol{
		ID:       id,
		FQN:      fqn,
		Name:     name,
		Kind:     kind,
		FilePath: w.path,
		Range:    nodeRange(n),
		ParentID: s.id,
	}
	if header != "" {
		sym.SignatureHash = util.SignatureHash(string(kind), header)
	}
	w.addSymbol(sym)
	w.ref(nameNode, fqn, models.RefSymbol)
	return fqn, fragment, id
}

func (w *walker) resolveRelative(n *tree_sitter.Node) string {
	dots := 0
	rest := ""
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "import_prefix":
			dots = strings.Count(w.text(c), ".")
		case "dotted_name":
			rest = compact(w.text(c))
		}
	}
	pkg := w.pkg
	for i := 1; i < dots; i++ {
		if pkg == "" {
			return ""
		}
		pkg = parentFQN(pkg)
	}
	if pkg == "" && rest == "" {
		return ""
	}
	return join(pkg, rest)
}

func nodeRange(n *tree_sitter.Node) *models.Range {
	sp, ep := n.StartPosition(), n.EndPosition()
	return &models.Range{
		StartLine: int(sp.Row) + 1,
		StartCol:  int(sp.Column),
		EndLine:   int(ep.Row) + 1,
		EndCol:    int(ep.Column),
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
	}
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

var _ parser.LanguageAdapter = (*PyParser)(nil)
