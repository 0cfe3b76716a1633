package pyparser

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeClass
	scopeFunction
)

// binding is what a name refers to inside one lexical scope.
type binding struct {
	fqn string
	// module marks names bound by a plain `import a.b`: attribute chains
	// rooted at them spell the full dotted path.
	module bool
	// aliased names are local spellings; renaming the target leaves them be.
	aliased bool
	// local names shadow outer bindings and resolve to nothing.
	local bool
}

type scope struct {
	kind     scopeKind
	parent   *scope
	names    map[string]binding
	free     map[string]bool
	fqn      string
	fragment string
	id       string
	selfName string
	class    *scope
}

func newScope(kind scopeKind, parent *scope, fqn, fragment, id string) *scope {
	return &scope{
		kind:     kind,
		parent:   parent,
		names:    make(map[string]binding),
		free:     make(map[string]bool),
		fqn:      fqn,
		fragment: fragment,
		id:       id,
	}
}

func (s *scope) bind(name string, b binding) {
	if s.free[name] {
		return
	}
	s.names[name] = b
}

func (s *scope) bindIfAbsent(name string, b binding) {
	if _, ok := s.names[name]; !ok {
		s.bind(name, b)
	}
}

// lookup follows Python's LEGB order. Class bodies are only visible to code
// directly inside them.
func (s *scope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.kind == scopeClass && cur != s {
			continue
		}
		if cur.free[name] {
			continue
		}
		if b, ok := cur.names[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (s *scope) module() *scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// selfClass returns the class scope when name is the receiver parameter of
// the method enclosing s.
func (s *scope) selfClass(name string) *scope {
	for cur := s; cur != nil && cur.kind == scopeFunction; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			if b.local && cur.selfName == name {
				return cur.class
			}
			return nil
		}
	}
	return nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}

func lastSegment(fqn string) string {
	for i := len(fqn) - 1; i >= 0; i-- {
		if fqn[i] == '.' {
			return fqn[i+1:]
		}
	}
	return fqn
}

func parentFQN(fqn string) string {
	for i := len(fqn) - 1; i >= 0; i-- {
		if fqn[i] == '.' {
			return fqn[:i]
		}
	}
	return ""
}
