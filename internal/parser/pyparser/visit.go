package pyparser

import (
	"strings"

	"github.com/0x5457/stitcher/internal/models"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func (w *walker) visitChildren(n *tree_sitter.Node, s *scope) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		w.visit(n.NamedChild(i), s)
	}
}

func (w *walker) visit(n *tree_sitter.Node, s *scope) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "function_definition":
		w.visitFunction(n, s)
	case "class_definition":
		w.visitClass(n, s)
	case "decorated_definition":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c.Kind() == "decorator" {
				w.visitChildren(c, s)
			}
		}
		w.visit(n.ChildByFieldName("definition"), s)
	case "import_statement":
		w.visitImport(n)
	case "import_from_statement":
		w.visitImportFrom(n)
	case "global_statement":
		mod := s.module()
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if id := n.NamedChild(i); id.Kind() == "identifier" {
				w.visitIdentifier(id, mod)
			}
		}
	case "assignment":
		w.visitTargets(n.ChildByFieldName("left"), s)
		w.visit(n.ChildByFieldName("type"), s)
		w.visit(n.ChildByFieldName("right"), s)
	case "keyword_argument":
		w.visit(n.ChildByFieldName("value"), s)
	case "identifier":
		w.visitIdentifier(n, s)
	case "attribute":
		w.visitAttribute(n, s)
	case "lambda":
		w.visitLambda(n, s)
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		w.visitComprehension(n, s)
	case "type_alias_statement":
		w.visitTypeAlias(n, s)
	case "string", "concatenated_string", "comment", "future_import_statement",
		"nonlocal_statement", "dotted_name", "aliased_import":
	default:
		w.visitChildren(n, s)
	}
}

func (w *walker) visitFunction(n *tree_sitter.Node, s *scope) {
	nameNode, body := n.ChildByFieldName("name"), n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	header := string(w.code[n.StartByte():body.StartByte()])
	fqn, fragment, id := w.definition(n, nameNode, s, models.SymbolFunction, header)

	params := n.ChildByFieldName("parameters")
	// defaults and annotations evaluate in the enclosing scope
	w.visitParamExprs(params, s)
	w.visit(n.ChildByFieldName("return_type"), s)

	f := newScope(scopeFunction, s, fqn, fragment, id)
	names := paramNames(params, w.code)
	for _, p := range names {
		f.names[p] = binding{local: true}
	}
	if s.kind == scopeClass && len(names) > 0 {
		f.selfName = names[0]
		f.class = s
	}
	w.declare(body, f)
	w.visit(body, f)
}

func (w *walker) visitParamExprs(params *tree_sitter.Node, s *scope) {
	if params == nil {
		return
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "default_parameter", "typed_default_parameter", "typed_parameter":
			w.visit(p.ChildByFieldName("type"), s)
			w.visit(p.ChildByFieldName("value"), s)
		}
	}
}

func (w *walker) visitClass(n *tree_sitter.Node, s *scope) {
	nameNode, body := n.ChildByFieldName("name"), n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	header := string(w.code[n.StartByte():body.StartByte()])
	fqn, fragment, id := w.definition(n, nameNode, s, models.SymbolClass, header)
	w.visit(n.ChildByFieldName("superclasses"), s)

	c := newScope(scopeClass, s, fqn, fragment, id)
	w.declare(body, c)
	w.visit(body, c)
}

// visitTargets handles the left side of an assignment. Names assigned at
// module or class level are attribute definitions.
func (w *walker) visitTargets(n *tree_sitter.Node, s *scope) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "identifier":
		if s.kind == scopeFunction {
			if s.free[w.text(n)] {
				w.visitIdentifier(n, s)
			}
			return
		}
		if b, ok := s.names[w.text(n)]; ok && !b.local && b.fqn == join(s.fqn, w.text(n)) {
			w.definition(n, n, s, models.SymbolAttribute, "")
			return
		}
		w.visitIdentifier(n, s)
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"parenthesized_expression", "list_splat_pattern":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			w.visitTargets(n.NamedChild(i), s)
		}
	default:
		w.visit(n, s)
	}
}

func (w *walker) visitIdentifier(n *tree_sitter.Node, s *scope) {
	b, ok := s.lookup(w.text(n))
	if !ok || b.local || b.aliased {
		return
	}
	kind := models.RefSymbol
	if b.module {
		kind = models.RefImportPath
	}
	w.ref(n, b.fqn, kind)
}

func (w *walker) visitAttribute(n *tree_sitter.Node, s *scope) {
	root, attrs := flattenAttribute(n)
	if root == nil {
		return
	}
	if root.Kind() != "identifier" {
		w.visit(root, s)
		return
	}
	name := w.text(root)

	if cls := s.selfClass(name); cls != nil {
		first := w.text(attrs[0])
		if _, ok := cls.names[first]; !ok {
			return
		}
		w.refChain(attrs, cls.fqn)
		return
	}

	b, ok := s.lookup(name)
	if !ok || b.local {
		return
	}
	if b.module && !b.aliased {
		segs := make([]string, 0, len(attrs)+1)
		segs = append(segs, b.fqn)
		for _, a := range attrs {
			segs = append(segs, w.text(a))
		}
		target := strings.Join(segs, ".")
		if w.text(n) == target {
			w.ref(n, target, models.RefImportPath)
			return
		}
	}
	if !b.aliased {
		kind := models.RefSymbol
		if b.module {
			kind = models.RefImportPath
		}
		w.ref(root, b.fqn, kind)
	}
	w.refChain(attrs, b.fqn)
}

func (w *walker) refChain(attrs []*tree_sitter.Node, owner string) {
	fqn := owner
	for _, a := range attrs {
		fqn = join(fqn, w.text(a))
		w.ref(a, fqn, models.RefSymbol)
	}
}

// flattenAttribute splits a.b.c into its root expression and the attribute
// name nodes in source order.
func flattenAttribute(n *tree_sitter.Node) (*tree_sitter.Node, []*tree_sitter.Node) {
	var attrs []*tree_sitter.Node
	cur := n
	for cur != nil && cur.Kind() == "attribute" {
		a := cur.ChildByFieldName("attribute")
		if a == nil {
			return nil, nil
		}
		attrs = append([]*tree_sitter.Node{a}, attrs...)
		cur = cur.ChildByFieldName("object")
	}
	return cur, attrs
}

func (w *walker) visitImport(n *tree_sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() == "aliased_import" {
			c = c.ChildByFieldName("name")
		}
		if c != nil && c.Kind() == "dotted_name" {
			w.ref(c, compact(w.text(c)), models.RefImportPath)
		}
	}
}

func (w *walker) visitImportFrom(n *tree_sitter.Node) {
	mod := n.ChildByFieldName("module_name")
	if mod == nil {
		return
	}
	base := w.importBase(mod)
	switch {
	case base == "":
		return
	case mod.Kind() == "dotted_name":
		w.ref(mod, base, models.RefImportPath)
	default:
		// relative module paths are spelled relative to the file and
		// cannot be rewritten by prefix
		w.unlocated(base, models.RefImportPath)
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.StartByte() == mod.StartByte() {
			continue
		}
		if c.Kind() == "aliased_import" {
			c = c.ChildByFieldName("name")
		}
		if c != nil && c.Kind() == "dotted_name" {
			w.ref(c, join(base, w.text(c)), models.RefSymbol)
		}
	}
}

func (w *walker) visitLambda(n *tree_sitter.Node, s *scope) {
	params := n.ChildByFieldName("parameters")
	w.visitParamExprs(params, s)
	f := newScope(scopeFunction, s, s.fqn, s.fragment, s.id)
	for _, p := range paramNames(params, w.code) {
		f.names[p] = binding{local: true}
	}
	w.visit(n.ChildByFieldName("body"), f)
}

func (w *walker) visitComprehension(n *tree_sitter.Node, s *scope) {
	c := newScope(scopeFunction, s, s.fqn, s.fragment, s.id)
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if clause := n.NamedChild(i); clause.Kind() == "for_in_clause" {
			w.declareTargets(clause.ChildByFieldName("left"), c, false)
		}
	}
	w.visitChildren(n, c)
}

// visitTypeAlias records `type X = Y`. A right side that names nothing in
// scope is kept as an unlocated reference.
func (w *walker) visitTypeAlias(n *tree_sitter.Node, s *scope) {
	if id := firstIdentifier(n.ChildByFieldName("left")); id != nil && s.kind != scopeFunction {
		w.definition(n, id, s, models.SymbolAttribute, "")
	}
	right := n.ChildByFieldName("right")
	if right == nil {
		return
	}
	if id := soleIdentifier(right); id != nil {
		if b, ok := s.lookup(w.text(id)); !ok || b.local {
			w.unlocated(w.text(id), models.RefSymbol)
			return
		}
	}
	w.visit(right, s)
}
