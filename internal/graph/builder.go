package graph

import (
	"github.com/google/uuid"
	set "github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"
)

// Builder assembles a Graph. It is not safe for concurrent use.
type Builder struct {
	modules []*Module
	byName  map[string]*Module
	errs    []error
}

// NewBuilder returns a builder that already contains the builtins module.
func NewBuilder() *Builder {
	b := &Builder{byName: map[string]*Module{}}
	builtins := b.AddModule(BuiltinsModule, nil, nil)
	for _, d := range builtinDeclarations() {
		b.add(builtins, d)
	}
	return b
}

// AddModule registers a module. Adding a name twice returns the existing
// module unchanged.
func (b *Builder) AddModule(name string, deps, friends []string) *Module {
	if m := b.byName[name]; m != nil {
		return m
	}
	m := newModule(name, deps, friends)
	b.modules = append(b.modules, m)
	b.byName[name] = m
	return m
}

// Module returns a registered module, or nil.
func (b *Builder) Module(name string) *Module {
	return b.byName[name]
}

// Add places d in module. d is either resolved (NewResolved) or a stub
// (NewStub). Nested classifiers may be added with Parent set so they are
// indexed before their parent resolves.
func (b *Builder) Add(module string, d *Declaration) error {
	m := b.byName[module]
	if m == nil {
		return errors.Errorf("add %s: unknown module %q", d.Name, module)
	}
	if d.Parent == nil && d.QualifiedName == "" && d.Name == "" {
		return errors.New("add: declaration has no name")
	}
	b.add(m, d)
	return nil
}

func (b *Builder) add(m *Module, d *Declaration) {
	d.Module = m
	normalize(d)
	if d.Parent == nil {
		m.top = append(m.top, d)
		if !d.Kind.IsClassifier() && d.Kind != KindTypeAlias {
			m.callables[d.QualifiedName] = append(m.callables[d.QualifiedName], d)
		}
	}
	b.index(m, d)
}

// index records d and, for resolved declarations, its classifier members.
func (b *Builder) index(m *Module, d *Declaration) {
	if d.Kind.IsClassifier() || d.Kind == KindTypeAlias {
		if prev := m.classifiers[d.QualifiedName]; prev != nil && prev != d {
			b.errs = append(b.errs, errors.Errorf("module %s: duplicate declaration %s", m.Name, d.QualifiedName))
			return
		}
		if m.classifiers[d.QualifiedName] == nil {
			m.classifiers[d.QualifiedName] = d
			m.ordered = append(m.ordered, d)
		}
	}
	if !d.Resolved() {
		return
	}
	det := d.Details()
	d.adopt(det)
	for _, mem := range det.Members {
		b.index(m, mem)
	}
}

// Build validates module references, rejects dependency cycles and returns
// the immutable graph.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	for _, m := range b.modules {
		for _, dep := range m.Dependencies {
			if b.byName[dep] == nil {
				return nil, &UnknownModuleError{Module: m.Name, Ref: dep}
			}
		}
		for _, f := range m.Friends {
			if b.byName[f] == nil {
				return nil, &UnknownModuleError{Module: m.Name, Ref: f}
			}
		}
	}
	if cycle := b.findCycle(); cycle != nil {
		return nil, &ModuleCycleError{Cycle: cycle}
	}

	g := &Graph{
		ID:      uuid.NewString(),
		modules: b.modules,
		byName:  b.byName,
		closure: map[string][]*Module{},
	}
	builtins := b.byName[BuiltinsModule]
	for _, m := range b.modules {
		g.closure[m.Name] = b.closureOf(m, builtins)
	}
	return g, nil
}

func (b *Builder) closureOf(m, builtins *Module) []*Module {
	out := []*Module{m}
	seen := set.From([]string{m.Name, BuiltinsModule})
	for i := 0; i < len(out); i++ {
		for _, dep := range out[i].Dependencies {
			if seen.Insert(dep) {
				out = append(out, b.byName[dep])
			}
		}
	}
	if m != builtins {
		out = append(out, builtins)
	}
	return out
}

// findCycle returns the first dependency cycle found, as a path that starts
// and ends with the same module, or nil.
func (b *Builder) findCycle() []string {
	done := set.New[string](len(b.modules))
	onPath := set.New[string](len(b.modules))
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		if onPath.Contains(name) {
			for i, p := range path {
				if p == name {
					return append(append([]string{}, path[i:]...), name)
				}
			}
		}
		if !done.Insert(name) {
			return nil
		}
		onPath.Insert(name)
		path = append(path, name)
		for _, dep := range b.byName[name].Dependencies {
			if c := visit(dep); c != nil {
				return c
			}
		}
		path = path[:len(path)-1]
		onPath.Remove(name)
		return nil
	}
	for _, m := range b.modules {
		if c := visit(m.Name); c != nil {
			return c
		}
	}
	return nil
}
