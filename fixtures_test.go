package trellis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// Graph fixtures shared by the resolver tests. Declarations are built
// resolved; the builder fills in qualified names and IDs.

type declOpt func(d *graph.Declaration)

func withModality(m graph.Modality) declOpt {
	return func(d *graph.Declaration) { d.Modality = m }
}

func withVisibility(v graph.Visibility) declOpt {
	return func(d *graph.Declaration) { d.Visibility = v }
}

func withMods(ms ...graph.Modifier) declOpt {
	return func(d *graph.Declaration) { d.Modifiers = d.Modifiers.With(ms...) }
}

func withOrigin(o graph.Origin) declOpt {
	return func(d *graph.Declaration) { d.Origin = o }
}

func decl(kind graph.Kind, name string, det *graph.Details, opts ...declOpt) *graph.Declaration {
	d := &graph.Declaration{Name: name, Kind: kind, Origin: graph.OriginSource}
	for _, opt := range opts {
		opt(d)
	}
	return graph.NewResolved(d, det)
}

func classDecl(pkg, name string, kind graph.Kind, det *graph.Details, opts ...declOpt) *graph.Declaration {
	d := decl(kind, name, det, opts...)
	d.Package = pkg
	return d
}

func funDecl(name string, ret types.Type, params []*graph.Parameter, opts ...declOpt) *graph.Declaration {
	return decl(graph.KindFunction, name, &graph.Details{Type: ret, Params: params}, opts...)
}

func propDecl(name string, t types.Type, opts ...declOpt) *graph.Declaration {
	return decl(graph.KindProperty, name, &graph.Details{Type: t}, opts...)
}

func param(name string, t types.Type) *graph.Parameter {
	return &graph.Parameter{Name: name, Type: t}
}

func params(ps ...*graph.Parameter) []*graph.Parameter { return ps }

func members(ds ...*graph.Declaration) []*graph.Declaration { return ds }

func typeParam(owner, name string, v types.Variance, bounds ...types.Type) *types.TypeParameter {
	return &types.TypeParameter{ID: graph.TypeParamID(owner, name), Name: name, Variance: v, Bounds: bounds, Owner: owner}
}

// typ parses a type, resolving parameter names against tps.
func typ(src string, tps ...*types.TypeParameter) types.Type {
	return types.MustParse(src, func(name string) *types.TypeParameter {
		for _, tp := range tps {
			if tp.Name == name {
				return tp
			}
		}
		return nil
	})
}

var (
	kString = types.Class("kotlin.String")
	kInt    = types.Class("kotlin.Int")
	kLong   = types.Class("kotlin.Long")
	kUnit   = types.Class("kotlin.Unit")
)

func addDecl(t *testing.T, b *graph.Builder, module string, ds ...*graph.Declaration) {
	t.Helper()
	for _, d := range ds {
		require.NoError(t, b.Add(module, d))
	}
}

// newTestEngine builds a graph with the given setup and wraps it.
func newTestEngine(t *testing.T, setup func(b *graph.Builder), opts ...Option) *Engine {
	t.Helper()
	b := graph.NewBuilder()
	setup(b)
	g, err := b.Build()
	require.NoError(t, err)
	return New(g, opts...)
}

func mustQuery(t *testing.T, e *Engine, module string) *Resolver {
	t.Helper()
	r, err := e.Query(module)
	require.NoError(t, err)
	return r
}

func memberNamed(t *testing.T, d *graph.Declaration, name string) *graph.Declaration {
	t.Helper()
	for _, m := range d.Members() {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("%s has no member %s", d.QualifiedName, name)
	return nil
}

func names(ds []*graph.Declaration) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.QualifiedName
	}
	return out
}
