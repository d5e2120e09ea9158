package runtime

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// fakeQueries answers from a small fixed graph: sealed p.Shape with
// subclasses p.Circle and p.Square, each with an "area" function.
type fakeQueries struct {
	g     *graph.Graph
	decls map[string]*graph.Declaration
}

func newFakeQueries(t *testing.T) *fakeQueries {
	t.Helper()
	b := graph.NewBuilder()
	b.AddModule("app", nil, nil)

	area := func() *graph.Declaration {
		return graph.NewResolved(&graph.Declaration{Name: "area", Kind: graph.KindFunction, Origin: graph.OriginSource,
			Modality: graph.Open}, &graph.Details{Type: types.Class("kotlin.Double")})
	}
	shapeArea := area()
	shape := graph.NewResolved(&graph.Declaration{Name: "Shape", Package: "p", Kind: graph.KindClass,
		Origin: graph.OriginSource, Modality: graph.Sealed}, &graph.Details{Members: []*graph.Declaration{shapeArea}})
	circleArea := area()
	circleArea.Modifiers = graph.NewModifiers(graph.ModOverride)
	circle := graph.NewResolved(&graph.Declaration{Name: "Circle", Package: "p", Kind: graph.KindClass,
		Origin: graph.OriginSource}, &graph.Details{Supertypes: []types.Type{types.Class("p.Shape")},
		Members: []*graph.Declaration{circleArea}})
	square := graph.NewResolved(&graph.Declaration{Name: "Square", Package: "p", Kind: graph.KindClass,
		Origin: graph.OriginSource, Visibility: graph.Internal}, &graph.Details{Supertypes: []types.Type{types.Class("p.Shape")}})

	for _, d := range []*graph.Declaration{shape, circle, square} {
		require.NoError(t, b.Add("app", d))
	}
	g, err := b.Build()
	require.NoError(t, err)
	return &fakeQueries{g: g, decls: map[string]*graph.Declaration{
		"p.Shape": shape, "p.Circle": circle, "p.Square": square,
		"p.Shape.area": shapeArea, "p.Circle.area": circleArea,
	}}
}

func (f *fakeQueries) Module() *graph.Module { return f.g.Module("app") }

func (f *fakeQueries) FindDeclaration(path string) *graph.Declaration { return f.decls[path] }

func (f *fakeQueries) ClassByName(fqn string) (*graph.Declaration, error) {
	if d := f.g.Lookup(f.Module(), fqn); d != nil {
		return d, nil
	}
	return nil, errors.Errorf("unresolved reference %s", fqn)
}

func (f *fakeQueries) AsMemberOf(decl *graph.Declaration, receiver types.Type) (types.Type, error) {
	n, ok := receiver.(*types.Nominal)
	if !ok || n.Class == "p.Unrelated" {
		return nil, errors.New("not a member")
	}
	return &types.Function{Return: decl.Type()}, nil
}

func (f *fakeQueries) FindOverridden(decl *graph.Declaration) ([]*graph.Declaration, error) {
	if decl == f.decls["p.Circle.area"] {
		return []*graph.Declaration{f.decls["p.Shape.area"]}, nil
	}
	return nil, nil
}

func (f *fakeQueries) MangledName(decl *graph.Declaration) string {
	return decl.QualifiedName + "$app"
}

func (f *fakeQueries) SealedSubclasses(decl *graph.Declaration) []*graph.Declaration {
	return f.g.DirectSubclasses(decl)
}

func (f *fakeQueries) MapType(t types.Type, _ []*graph.AnnotationUsage) types.Type {
	return types.MakeNullable(t)
}

func (f *fakeQueries) EffectiveVisibility(decl *graph.Declaration, from *graph.Module) graph.Visibility {
	if decl.Visibility == graph.Internal && from != decl.Module {
		return graph.Private
	}
	return decl.Visibility
}

func runQueries(t *testing.T, script string) (any, error) {
	t.Helper()
	rt := NewRuntime(newFakeQueries(t), "")
	return rt.RunSource(context.Background(), script, nil)
}

func TestQueryFuncs_Declaration(t *testing.T) {
	t.Parallel()
	got, err := runQueries(t, `
d := declaration("p.Circle")
[d["qualified_name"], d["kind"], d["module"], d["visibility"], declaration("p.Nope") == nil]
`)
	require.NoError(t, err)
	assert.Equal(t, []any{"p.Circle", "class", "app", "public", true}, got)
}

func TestQueryFuncs_DeclarationModifiers(t *testing.T) {
	t.Parallel()
	got, err := runQueries(t, `declaration("p.Circle.area")["modifiers"]`)
	require.NoError(t, err)
	assert.Equal(t, []any{"override"}, got)
}

func TestQueryFuncs_ClassByName(t *testing.T) {
	t.Parallel()
	got, err := runQueries(t, `class_by_name("kotlin.String")["origin"]`)
	require.NoError(t, err)
	assert.Equal(t, "source-lib", got)

	_, err = runQueries(t, `class_by_name("p.Missing")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved reference")
}

func TestQueryFuncs_AsMemberOf(t *testing.T) {
	t.Parallel()
	got, err := runQueries(t, `as_member_of("p.Shape.area", "p.Circle")`)
	require.NoError(t, err)
	assert.Equal(t, "() -> kotlin.Double", got)

	_, err = runQueries(t, `as_member_of("p.Shape.area", "p.Unrelated")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a member")

	_, err = runQueries(t, `as_member_of("p.Shape.area", "p.Circle<")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receiver")
}

func TestQueryFuncs_FindOverridden(t *testing.T) {
	t.Parallel()
	got, err := runQueries(t, `
o := find_overridden("p.Circle.area")
[len(o), o[0]["id"], len(find_overridden("p.Shape.area"))]
`)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "p.Shape.area()", int64(0)}, got)
}

func TestQueryFuncs_SealedAndMangled(t *testing.T) {
	t.Parallel()
	got, err := runQueries(t, `
subs := sealed_subclasses("p.Shape")
[subs[0]["name"], subs[1]["name"], mangled_name("p.Square")]
`)
	require.NoError(t, err)
	assert.Equal(t, []any{"Circle", "Square", "p.Square$app"}, got)
}

func TestQueryFuncs_MapTypeAndVisibility(t *testing.T) {
	t.Parallel()
	got, err := runQueries(t, `[map_type("java.lang.String"), visibility("p.Square")]`)
	require.NoError(t, err)
	assert.Equal(t, []any{"java.lang.String?", "internal"}, got)
}

func TestQueryFuncs_UnknownPath(t *testing.T) {
	t.Parallel()
	_, err := runQueries(t, `mangled_name("p.Nope")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no declaration "p.Nope"`)
}
