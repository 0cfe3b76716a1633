package pyparser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// declare binds every name a block introduces before any usage in it is
// resolved, since Python decides locality per scope, not per statement.
func (w *walker) declare(n *tree_sitter.Node, s *scope) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		w.declareNode(n.NamedChild(i), s)
	}
}

func (w *walker) declareNode(c *tree_sitter.Node, s *scope) {
	switch c.Kind() {
	case "function_definition", "class_definition":
		if name := c.ChildByFieldName("name"); name != nil {
			nm := w.text(name)
			s.bind(nm, binding{fqn: join(s.fqn, nm)})
		}
	case "decorated_definition":
		if def := c.ChildByFieldName("definition"); def != nil {
			w.declareNode(def, s)
		}
	case "import_statement":
		w.declareImport(c, s)
	case "import_from_statement":
		w.declareImportFrom(c, s)
	case "global_statement", "nonlocal_statement":
		if s.kind != scopeFunction {
			return
		}
		for i := uint(0); i < c.NamedChildCount(); i++ {
			if id := c.NamedChild(i); id.Kind() == "identifier" {
				name := w.text(id)
				delete(s.names, name)
				s.free[name] = true
			}
		}
	case "assignment":
		w.declareTargets(c.ChildByFieldName("left"), s, true)
		if right := c.ChildByFieldName("right"); right != nil && right.Kind() == "assignment" {
			w.declareNode(right, s)
		}
	case "augmented_assignment":
		if left := c.ChildByFieldName("left"); left != nil && s.kind == scopeFunction {
			w.declareTargets(left, s, false)
		}
	case "for_statement":
		w.declareTargets(c.ChildByFieldName("left"), s, false)
		w.declare(c, s)
	case "as_pattern":
		if alias := c.ChildByFieldName("alias"); alias != nil {
			w.declareTargets(alias, s, false)
		}
		w.declare(c, s)
	case "except_clause":
		w.declareExceptAlias(c, s)
		w.declare(c, s)
	case "type_alias_statement":
		if s.kind == scopeFunction {
			return
		}
		if id := firstIdentifier(c.ChildByFieldName("left")); id != nil {
			nm := w.text(id)
			s.bind(nm, binding{fqn: join(s.fqn, nm)})
		}
	case "lambda", "list_comprehension", "set_comprehension",
		"dictionary_comprehension", "generator_expression",
		"string", "concatenated_string", "future_import_statement":
	default:
		w.declare(c, s)
	}
}

// declareTargets binds assignment or loop targets. At module and class
// level plain assignments define attributes; everything else is a local.
func (w *walker) declareTargets(n *tree_sitter.Node, s *scope, assign bool) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "identifier":
		name := w.text(n)
		switch {
		case s.kind == scopeFunction:
			s.bind(name, binding{local: true})
		case assign:
			s.bind(name, binding{fqn: join(s.fqn, name)})
		default:
			s.bindIfAbsent(name, binding{local: true})
		}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"parenthesized_expression", "list_splat_pattern", "as_pattern_target":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			w.declareTargets(n.NamedChild(i), s, assign)
		}
	}
}

func (w *walker) declareExceptAlias(c *tree_sitter.Node, s *scope) {
	if alias := c.ChildByFieldName("alias"); alias != nil {
		w.declareTargets(alias, s, false)
		return
	}
	afterAs := false
	for i := uint(0); i < c.ChildCount(); i++ {
		ch := c.Child(i)
		if ch.Kind() == "as" {
			afterAs = true
			continue
		}
		if afterAs && ch.Kind() == "identifier" {
			w.declareTargets(ch, s, false)
			return
		}
	}
}

func (w *walker) declareImport(c *tree_sitter.Node, s *scope) {
	for i := uint(0); i < c.NamedChildCount(); i++ {
		n := c.NamedChild(i)
		switch n.Kind() {
		case "dotted_name":
			dotted := compact(w.text(n))
			first, _, _ := strings.Cut(dotted, ".")
			s.bind(first, binding{fqn: first, module: true})
		case "aliased_import":
			name, alias := n.ChildByFieldName("name"), n.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			s.bind(w.text(alias), binding{fqn: compact(w.text(name)), module: true, aliased: true})
		}
	}
}

func (w *walker) declareImportFrom(c *tree_sitter.Node, s *scope) {
	mod := c.ChildByFieldName("module_name")
	if mod == nil {
		return
	}
	base := w.importBase(mod)
	if base == "" {
		return
	}
	for i := uint(0); i < c.NamedChildCount(); i++ {
		n := c.NamedChild(i)
		if n.StartByte() == mod.StartByte() {
			continue
		}
		switch n.Kind() {
		case "dotted_name":
			name := w.text(n)
			s.bind(name, binding{fqn: join(base, name)})
		case "aliased_import":
			name, alias := n.ChildByFieldName("name"), n.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			s.bind(w.text(alias), binding{fqn: join(base, w.text(name)), aliased: true})
		}
	}
}

func (w *walker) importBase(mod *tree_sitter.Node) string {
	switch mod.Kind() {
	case "dotted_name":
		return compact(w.text(mod))
	case "relative_import":
		return w.resolveRelative(mod)
	}
	return ""
}

func paramNames(params *tree_sitter.Node, code []byte) []string {
	if params == nil {
		return nil
	}
	text := func(n *tree_sitter.Node) string { return string(code[n.StartByte():n.EndByte()]) }
	var names []string
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "identifier":
			names = append(names, text(p))
		case "default_parameter", "typed_default_parameter":
			if n := p.ChildByFieldName("name"); n != nil {
				names = append(names, text(n))
			}
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			if id := firstIdentifier(p); id != nil {
				names = append(names, text(id))
			}
		}
	}
	return names
}

func firstIdentifier(n *tree_sitter.Node) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == "identifier" {
		return n
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if id := firstIdentifier(n.NamedChild(i)); id != nil {
			return id
		}
	}
	return nil
}

// soleIdentifier unwraps single-child wrappers such as `type` nodes.
func soleIdentifier(n *tree_sitter.Node) *tree_sitter.Node {
	for n != nil {
		if n.Kind() == "identifier" {
			return n
		}
		if n.NamedChildCount() != 1 {
			return nil
		}
		n = n.NamedChild(0)
	}
	return nil
}
