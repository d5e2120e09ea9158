package trellis

import (
	"log/slog"
	"strings"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// Resolver answers queries from the point of view of one module: names
// resolve within that module's dependency closure.
type Resolver struct {
	engine *Engine
	graph  *graph.Graph
	module *graph.Module
	name   string
	log    resolverLoggers
}

type resolverLoggers struct {
	member     *slog.Logger
	override   *slog.Logger
	bridge     *slog.Logger
	annotation *slog.Logger
}

// Module returns the querying module, nil when the resolver sees the whole
// graph.
func (r *Resolver) Module() *graph.Module {
	return r.module
}

// Graph returns the declaration graph.
func (r *Resolver) Graph() *graph.Graph {
	return r.graph
}

// ClassByName finds a classifier or type alias by qualified name.
func (r *Resolver) ClassByName(fqn string) (*graph.Declaration, error) {
	if d := r.graph.Lookup(r.module, fqn); d != nil {
		return d, nil
	}
	return nil, &UnresolvedReferenceError{Name: fqn, Module: r.name}
}

// FunctionsByName returns the functions with the qualified name: top-level
// functions, or the functions declared in the named class. Returns nil when
// there are none.
func (r *Resolver) FunctionsByName(fqn string) []*graph.Declaration {
	var out []*graph.Declaration
	for _, d := range r.graph.LookupCallables(r.module, fqn) {
		if d.Kind == graph.KindFunction {
			out = append(out, d)
		}
	}
	owner, name := graph.PackageOf(fqn)
	if c := r.graph.Lookup(r.module, owner); c != nil {
		for _, m := range c.Members() {
			if m.Kind == graph.KindFunction && m.Name == name {
				out = append(out, m)
			}
		}
	}
	return out
}

// DeclarationsInPackage returns the top-level declarations of pkg in module
// closure order.
func (r *Resolver) DeclarationsInPackage(pkg string) []*graph.Declaration {
	return r.graph.Package(r.module, pkg)
}

// FindDeclaration resolves a path to a declaration. A path is a qualified
// name, or a callable ID with its erased parameter list ("p.C.f(kotlin.Int)")
// to pick one overload. Returns nil when nothing matches.
func (r *Resolver) FindDeclaration(path string) *graph.Declaration {
	base, _, isID := strings.Cut(path, "(")
	if !isID {
		if d := r.graph.Lookup(r.module, path); d != nil {
			return d
		}
	}
	match := func(d *graph.Declaration) bool {
		if isID {
			return d.ID == path
		}
		return true
	}
	for _, d := range r.graph.LookupCallables(r.module, base) {
		if match(d) {
			return d
		}
	}
	owner, name := graph.PackageOf(base)
	c := r.graph.Lookup(r.module, owner)
	if c == nil {
		return nil
	}
	for _, m := range c.Members() {
		if m.Name == name && !m.Kind.IsClassifier() && match(m) {
			return m
		}
	}
	return nil
}

// DeclaredMembers returns the members declared directly in d, synthesized
// ones included, in declaration order.
func (r *Resolver) DeclaredMembers(d *graph.Declaration) []*graph.Declaration {
	return d.Members()
}

// AllFunctions returns the functions of classifier d: declared ones first,
// then inherited ones that d does not override, in linearization order.
func (r *Resolver) AllFunctions(d *graph.Declaration) []*graph.Declaration {
	return r.allMembers(d, graph.KindFunction)
}

// AllProperties is AllFunctions for properties.
func (r *Resolver) AllProperties(d *graph.Declaration) []*graph.Declaration {
	return r.allMembers(d, graph.KindProperty)
}

func (r *Resolver) allMembers(d *graph.Declaration, kind graph.Kind) []*graph.Declaration {
	var out []*graph.Declaration
	for _, m := range d.Members() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	anc, _ := r.ancestors(d)
	for _, a := range anc {
		for _, m := range a.decl.Members() {
			if m.Kind != kind || m.Visibility == graph.Private || m.Has(graph.ModStatic) {
				continue
			}
			if containsDecl(out, m) || r.overriddenBy(m, out) {
				continue
			}
			out = append(out, m)
		}
	}
	return out
}

// overriddenBy reports whether any of the collected declarations overrides
// m.
func (r *Resolver) overriddenBy(m *graph.Declaration, collected []*graph.Declaration) bool {
	for _, c := range collected {
		if c.Name == m.Name && r.OverridesMember(c, m) {
			return true
		}
	}
	return false
}

func containsDecl(list []*graph.Declaration, d *graph.Declaration) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}

// declKey identifies d across modules: IDs are only unique within one.
func declKey(d *graph.Declaration) string {
	if d.Module == nil {
		return d.ID
	}
	return d.Module.Name + "|" + d.ID
}

// lookup resolves a class name in the querying module's closure.
func (r *Resolver) lookup(fqn string) *graph.Declaration {
	return r.graph.Lookup(r.module, fqn)
}

// classOf returns the classifier a nominal type refers to, with aliases
// expanded, together with the expanded type.
func (r *Resolver) classOf(t types.Type) (*graph.Declaration, *types.Nominal) {
	n, ok := t.(*types.Nominal)
	if !ok {
		return nil, nil
	}
	d := r.lookup(n.Class)
	if d != nil && d.Kind == graph.KindTypeAlias {
		exp, err := r.ExpandType(n)
		if err != nil {
			return nil, nil
		}
		if en, ok := exp.(*types.Nominal); ok {
			return r.lookup(en.Class), en
		}
		return nil, nil
	}
	return d, n
}

// unresolved builds the error type for a name that does not resolve.
func (r *Resolver) unresolved(name string) *types.Error {
	return types.Errorf((&UnresolvedReferenceError{Name: name, Module: r.name}).Error())
}
