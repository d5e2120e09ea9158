// Package graph is the read-only declaration graph: modules, their
// dependency and friend relations, and the declarations they contain.
//
// A Graph is built once per snapshot with a Builder and never mutated
// afterwards, except that stub declarations resolve their details on first
// access (see Declaration.Details).
package graph

import (
	"strings"
	"sync"

	"github.com/jward/trellis/internal/types"
)

// BuiltinsModule is the name of the implicit module holding the primary
// language's built-in classes. Every module depends on it.
const BuiltinsModule = "kotlin-builtins"

// Module is a compilation unit.
type Module struct {
	Name         string
	Dependencies []string
	Friends      []string

	top         []*Declaration
	classifiers map[string]*Declaration
	ordered     []*Declaration
	callables   map[string][]*Declaration
}

func newModule(name string, deps, friends []string) *Module {
	return &Module{
		Name:         name,
		Dependencies: deps,
		Friends:      friends,
		classifiers:  map[string]*Declaration{},
		callables:    map[string][]*Declaration{},
	}
}

// IsFriend reports whether other may see this module's internal
// declarations.
func (m *Module) IsFriend(other *Module) bool {
	if other == nil {
		return false
	}
	if other == m {
		return true
	}
	for _, f := range m.Friends {
		if f == other.Name {
			return true
		}
	}
	return false
}

// Declarations returns the top-level declarations in insertion order.
func (m *Module) Declarations() []*Declaration { return m.top }

// Classifiers returns every indexed classifier and type alias, nested ones
// included, in insertion order.
func (m *Module) Classifiers() []*Declaration { return m.ordered }

// Classifier returns the classifier or alias with the qualified name.
func (m *Module) Classifier(fqn string) *Declaration { return m.classifiers[fqn] }

// Graph is an immutable snapshot of all modules.
type Graph struct {
	ID      string
	modules []*Module
	byName  map[string]*Module
	closure map[string][]*Module

	subOnce    sync.Once
	subclasses map[string][]*Declaration
}

// Modules returns all modules, the builtins module first.
func (g *Graph) Modules() []*Module { return g.modules }

// Module returns the module with the given name, or nil.
func (g *Graph) Module(name string) *Module { return g.byName[name] }

// Closure returns from and every module reachable through dependency edges,
// breadth-first in declared order, ending with the builtins module.
func (g *Graph) Closure(from *Module) []*Module {
	if from == nil {
		return g.modules
	}
	return g.closure[from.Name]
}

// Reachable reports whether target is in the dependency closure of from.
func (g *Graph) Reachable(from, target *Module) bool {
	for _, m := range g.Closure(from) {
		if m == target {
			return true
		}
	}
	return false
}

// Lookup finds a classifier or type alias by qualified name within the
// dependency closure of from. A nil from searches every module.
func (g *Graph) Lookup(from *Module, fqn string) *Declaration {
	for _, m := range g.Closure(from) {
		if d := m.classifiers[fqn]; d != nil {
			return d
		}
	}
	return nil
}

// LookupCallables finds top-level functions and properties by qualified
// name within the closure of from.
func (g *Graph) LookupCallables(from *Module, fqn string) []*Declaration {
	var out []*Declaration
	for _, m := range g.Closure(from) {
		out = append(out, m.callables[fqn]...)
	}
	return out
}

// Package returns the top-level declarations of pkg visible from from, in
// module closure order.
func (g *Graph) Package(from *Module, pkg string) []*Declaration {
	var out []*Declaration
	for _, m := range g.Closure(from) {
		for _, d := range m.top {
			if d.Package == pkg {
				out = append(out, d)
			}
		}
	}
	return out
}

// Packages lists the distinct package names declared in from's closure.
func (g *Graph) Packages(from *Module) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range g.Closure(from) {
		for _, d := range m.top {
			if !seen[d.Package] {
				seen[d.Package] = true
				out = append(out, d.Package)
			}
		}
	}
	return out
}

// DirectSubclasses returns the classifiers anywhere in the graph that list
// d among their declared supertypes, in module then insertion order. A
// supertype name counts only where it resolves to d from the subclass's
// own module. The index is built on first use, which resolves every
// classifier.
func (g *Graph) DirectSubclasses(d *Declaration) []*Declaration {
	g.subOnce.Do(func() {
		g.subclasses = map[string][]*Declaration{}
		for _, m := range g.modules {
			for _, c := range m.ordered {
				if !c.Kind.IsClassifier() {
					continue
				}
				for _, st := range c.Supertypes() {
					if n, ok := st.(*types.Nominal); ok {
						g.subclasses[n.Class] = append(g.subclasses[n.Class], c)
					}
				}
			}
		}
	})
	var out []*Declaration
	for _, c := range g.subclasses[d.QualifiedName] {
		if g.Lookup(c.Module, d.QualifiedName) == d {
			out = append(out, c)
		}
	}
	return out
}

// Container returns the nearest enclosing classifier of d, or nil for
// top-level declarations.
func Container(d *Declaration) *Declaration {
	for p := d.Parent; p != nil; p = p.Parent {
		if p.Kind.IsClassifier() {
			return p
		}
	}
	return nil
}

// PackageOf splits a qualified name at its last dot.
func PackageOf(fqn string) (pkg, name string) {
	i := strings.LastIndexByte(fqn, '.')
	if i < 0 {
		return "", fqn
	}
	return fqn[:i], fqn[i+1:]
}
