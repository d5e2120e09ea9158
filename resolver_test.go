package trellis

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// =============================================================================
// Lookup
// =============================================================================

func lookupFixture(t *testing.T) (*Resolver, *graph.Declaration, *graph.Declaration) {
	t.Helper()
	base := classDecl("p", "Base", graph.KindClass, &graph.Details{
		Members: members(
			funDecl("f", kUnit, params(param("x", kInt)), withModality(graph.Open)),
			funDecl("f", kUnit, params(param("x", kString)), withModality(graph.Open)),
			funDecl("g", kUnit, nil),
			funDecl("hidden", kUnit, nil, withVisibility(graph.Private)),
			propDecl("size", kInt),
		),
	}, withModality(graph.Open))
	derived := classDecl("p", "Derived", graph.KindClass, &graph.Details{
		Supertypes: []types.Type{types.Class("p.Base")},
		Members:    members(funDecl("f", kUnit, params(param("x", kInt)), withMods(graph.ModOverride))),
	})
	top := classDecl("p", "helper", graph.KindFunction, &graph.Details{Type: kInt})
	e := newTestEngine(t, func(b *graph.Builder) {
		b.AddModule("app", nil, nil)
		addDecl(t, b, "app", base, derived, top)
	})
	return mustQuery(t, e, "app"), base, derived
}

func TestQuery_UnknownModule(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, func(b *graph.Builder) { b.AddModule("app", nil, nil) })

	_, err := e.Query("nope")
	var unresolved *UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "nope", unresolved.Name)

	r, err := e.Query("")
	require.NoError(t, err)
	assert.Nil(t, r.Module())
}

func TestClassByName(t *testing.T) {
	t.Parallel()
	r, base, _ := lookupFixture(t)

	got, err := r.ClassByName("p.Base")
	require.NoError(t, err)
	assert.Same(t, base, got)

	list, err := r.ClassByName("kotlin.collections.List")
	require.NoError(t, err)
	assert.Equal(t, graph.KindInterface, list.Kind)

	_, err = r.ClassByName("p.Missing")
	var coded CodedError
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, CodeUnresolvedReference, coded.Code())
}

func TestFunctionsByName(t *testing.T) {
	t.Parallel()
	r, _, _ := lookupFixture(t)

	assert.Len(t, r.FunctionsByName("p.Base.f"), 2)
	assert.Len(t, r.FunctionsByName("p.helper"), 1)
	assert.Nil(t, r.FunctionsByName("p.Base.nothing"))
}

func TestFindDeclaration(t *testing.T) {
	t.Parallel()
	r, base, _ := lookupFixture(t)

	tests := []struct {
		path string
		want string
	}{
		{"p.Base", "p.Base"},
		{"p.Base.f(kotlin.String)", "p.Base.f(kotlin.String)"},
		{"p.Base.f(kotlin.Int)", "p.Base.f(kotlin.Int)"},
		{"p.Base.size", "p.Base.size"},
		{"p.helper", "p.helper()"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			d := r.FindDeclaration(tt.path)
			require.NotNil(t, d)
			assert.Equal(t, tt.want, d.ID)
		})
	}

	assert.Nil(t, r.FindDeclaration("p.Base.f(kotlin.Long)"))
	assert.Nil(t, r.FindDeclaration("q.Nowhere"))
	assert.Same(t, base, graph.Container(r.FindDeclaration("p.Base.g")))
}

func TestAllFunctions(t *testing.T) {
	t.Parallel()
	r, base, derived := lookupFixture(t)

	got := r.AllFunctions(derived)
	ids := make([]string, len(got))
	for i, d := range got {
		ids[i] = d.ID
	}
	assert.Equal(t, "p.Derived.f(kotlin.Int)", ids[0], "declared members come first")
	assert.Contains(t, ids, "p.Base.f(kotlin.String)")
	assert.Contains(t, ids, "p.Base.g()")
	assert.Contains(t, ids, "kotlin.Any.toString()")
	assert.NotContains(t, ids, "p.Base.f(kotlin.Int)", "overridden")
	assert.NotContains(t, ids, "p.Base.hidden()", "private")

	props := r.AllProperties(derived)
	require.Len(t, props, 1)
	assert.Same(t, memberNamed(t, base, "size"), props[0])
}

// =============================================================================
// Visibility
// =============================================================================

func TestEffectiveVisibility(t *testing.T) {
	t.Parallel()
	internalFn := classDecl("lib", "shared", graph.KindFunction, &graph.Details{Type: kUnit}, withVisibility(graph.Internal))
	hidden := classDecl("lib", "Hidden", graph.KindClass, &graph.Details{
		Members: members(funDecl("open", kUnit, nil)),
	}, withVisibility(graph.Private))
	guarded := classDecl("lib", "Guarded", graph.KindClass, &graph.Details{
		Members: members(funDecl("step", kUnit, nil, withVisibility(graph.Protected))),
	}, withVisibility(graph.Internal))

	e := newTestEngine(t, func(b *graph.Builder) {
		b.AddModule("lib", nil, []string{"lib-test"})
		b.AddModule("lib-test", []string{"lib"}, nil)
		b.AddModule("app", []string{"lib"}, nil)
		b.AddModule("other", nil, nil)
		addDecl(t, b, "lib", internalFn, hidden, guarded)
	})
	r := mustQuery(t, e, "lib")
	g := e.Graph()

	tests := []struct {
		name string
		d    *graph.Declaration
		from string
		want graph.Visibility
	}{
		{"internal in own module", internalFn, "lib", graph.Internal},
		{"internal from friend", internalFn, "lib-test", graph.Internal},
		{"internal from dependent", internalFn, "app", graph.Private},
		{"outside closure", internalFn, "other", graph.Private},
		{"public member of private class", memberNamed(t, hidden, "open"), "lib", graph.Private},
		{"narrowest of protected and internal", memberNamed(t, guarded, "step"), "lib", graph.Protected},
		{"protected member from dependent", memberNamed(t, guarded, "step"), "app", graph.Private},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.EffectiveVisibility(tt.d, g.Module(tt.from)))
		})
	}

	assert.Equal(t, graph.Internal, r.EffectiveVisibility(internalFn, nil), "nil means the resolver's module")
}

// =============================================================================
// Subtyping
// =============================================================================

func TestIsSubtype(t *testing.T) {
	t.Parallel()
	T := typeParam("p.f", "T", types.Invariant, types.Class("kotlin.CharSequence"))
	e := newTestEngine(t, func(b *graph.Builder) { b.AddModule("app", nil, nil) })
	r := mustQuery(t, e, "app")

	tests := []struct {
		a, b string
		want bool
	}{
		{"kotlin.String", "kotlin.String", true},
		{"kotlin.String", "kotlin.Any", true},
		{"kotlin.String?", "kotlin.Any", false},
		{"kotlin.String?", "kotlin.Any?", true},
		{"kotlin.String", "kotlin.String?", true},
		{"kotlin.Nothing", "kotlin.String", true},
		{"kotlin.Int", "kotlin.Number", true},
		{"kotlin.Int", "kotlin.Comparable<kotlin.Int>", true},
		{"kotlin.Comparable<kotlin.Any>", "kotlin.Comparable<kotlin.Int>", true},
		{"kotlin.Comparable<kotlin.Int>", "kotlin.Comparable<kotlin.Any>", false},
		{"kotlin.collections.List<kotlin.String>", "kotlin.collections.List<kotlin.Any>", true},
		{"kotlin.collections.List<kotlin.String>", "kotlin.collections.List<*>", true},
		{"kotlin.collections.List<*>", "kotlin.collections.List<kotlin.String>", false},
		{"kotlin.collections.MutableList<kotlin.String>", "kotlin.collections.MutableList<kotlin.Any>", false},
		{"kotlin.collections.MutableList<kotlin.String>", "kotlin.collections.MutableList<out kotlin.Any>", true},
		{"kotlin.collections.MutableList<kotlin.String>", "kotlin.collections.List<kotlin.CharSequence>", true},
		{"kotlin.collections.List<kotlin.String>", "kotlin.collections.Collection<kotlin.Int>", false},
		{"(kotlin.Any) -> kotlin.String", "(kotlin.String) -> kotlin.CharSequence", true},
		{"(kotlin.String) -> kotlin.String", "(kotlin.Any) -> kotlin.String", false},
		{"T", "kotlin.CharSequence", true},
		{"T", "kotlin.Int", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+" <: "+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.IsSubtype(typ(tt.a, T), typ(tt.b, T)))
		})
	}
}

func TestIsSubtype_FlexibleAndError(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, func(b *graph.Builder) { b.AddModule("app", nil, nil) })
	r := mustQuery(t, e, "app")

	flex := &types.Flexible{Lower: kString, Upper: types.MakeNullable(kString)}
	assert.True(t, r.IsSubtype(flex, kString))
	assert.True(t, r.IsSubtype(types.MakeNullable(kString), flex))
	assert.True(t, r.IsAssignableFrom(types.Class("kotlin.Any"), kInt))

	bad := types.Errorf("unresolved")
	assert.False(t, r.IsSubtype(bad, types.Class("kotlin.Any")))
	assert.False(t, r.IsSubtype(types.Class("kotlin.Nothing"), bad))
}

// =============================================================================
// Aliases
// =============================================================================

func TestExpand(t *testing.T) {
	t.Parallel()
	str := classDecl("p", "Str", graph.KindTypeAlias, &graph.Details{Type: kString})
	K := typeParam("p.Table", "K", types.Invariant)
	table := classDecl("p", "Table", graph.KindTypeAlias, &graph.Details{
		TypeParams: []*types.TypeParameter{K},
		Type:       typ("kotlin.collections.Map<K, kotlin.collections.List<p.Str>>", K),
	})
	e := newTestEngine(t, func(b *graph.Builder) {
		b.AddModule("app", nil, nil)
		addDecl(t, b, "app", str, table)
	})
	r := mustQuery(t, e, "app")

	got, err := r.Expand(table, []types.Argument{{Type: types.Class("p.Str")}})
	require.NoError(t, err)
	assert.Equal(t, "kotlin.collections.Map<kotlin.String, kotlin.collections.List<kotlin.String>>", types.Format(got))

	got, err = r.ExpandType(types.MakeNullable(types.Class("p.Str")))
	require.NoError(t, err)
	assert.Equal(t, "kotlin.String?", types.Format(got))

	_, err = r.Expand(r.FindDeclaration("kotlin.String"), nil)
	require.Error(t, err)

	missing, err := r.Expand(table, nil)
	require.NoError(t, err)
	assert.True(t, types.ContainsError(missing), "missing arguments become error types")
}

func TestExpand_Cycle(t *testing.T) {
	t.Parallel()
	a := classDecl("p", "A", graph.KindTypeAlias, &graph.Details{Type: types.Class("p.B")})
	b := classDecl("p", "B", graph.KindTypeAlias, &graph.Details{Type: types.Class("kotlin.collections.List", types.Class("p.A"))})
	e := newTestEngine(t, func(bld *graph.Builder) {
		bld.AddModule("app", nil, nil)
		addDecl(t, bld, "app", a, b)
	})
	r := mustQuery(t, e, "app")

	_, err := r.Expand(a, nil)
	var cycle *AliasCycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"p.A", "p.B", "p.A"}, cycle.Path)
	assert.Equal(t, CodeAliasCycle, cycle.Code())

	_, err = r.AliasEqual(types.Class("p.B"), kString)
	require.True(t, errors.As(err, &cycle))
}

// =============================================================================
// Binary names
// =============================================================================

func TestMangledName(t *testing.T) {
	t.Parallel()
	userID := classDecl("p", "UserId", graph.KindClass, &graph.Details{
		Members: members(propDecl("raw", kString)),
	}, withMods(graph.ModValue))
	widget := classDecl("p", "Widget", graph.KindClass, &graph.Details{
		Members: members(
			propDecl("name", kString, withMods(graph.ModVar)),
			propDecl("isOpen", types.Class("kotlin.Boolean"), withMods(graph.ModVar)),
			propDecl("count", kInt, withVisibility(graph.Internal)),
			funDecl("find", kUnit, params(param("id", types.Class("p.UserId")))),
			funDecl("findOrNull", kUnit, params(param("id", types.MakeNullable(types.Class("p.UserId"))))),
			funDecl("render", kUnit, nil),
			funDecl("compute", kInt, nil, withVisibility(graph.Internal)),
			decl(graph.KindFunction, "renamed", &graph.Details{
				Type: kUnit,
				Annotations: []*graph.AnnotationUsage{{
					Class: "kotlin.jvm.JvmName",
					Args:  []graph.AnnotationArg{{Value: &graph.Literal{Value: "doRename"}}},
				}},
			}),
		),
	})
	top := classDecl("p", "topLevel", graph.KindFunction, &graph.Details{Type: kUnit})
	e := newTestEngine(t, func(b *graph.Builder) {
		b.AddModule("my-lib", nil, nil)
		addDecl(t, b, "my-lib", userID, widget, top)
	})
	r := mustQuery(t, e, "my-lib")

	name := memberNamed(t, widget, "name")
	isOpen := memberNamed(t, widget, "isOpen")
	count := memberNamed(t, widget, "count")

	tests := []struct {
		name string
		d    *graph.Declaration
		want string
	}{
		{"plain function", memberNamed(t, widget, "render"), "p.Widget.render"},
		{"top level", top, "p.topLevel"},
		{"getter", graph.Getter(name), "p.Widget.getName"},
		{"setter", graph.Setter(name), "p.Widget.setName"},
		{"is getter", graph.Getter(isOpen), "p.Widget.isOpen"},
		{"is setter", graph.Setter(isOpen), "p.Widget.setOpen"},
		{"internal function", memberNamed(t, widget, "compute"), "p.Widget.compute$my_lib"},
		{"internal getter", graph.Getter(count), "p.Widget.getCount$my_lib"},
		{"explicit jvm name", memberNamed(t, widget, "renamed"), "p.Widget.doRename"},
		{"constructor", memberNamed(t, widget, "<init>"), "p.Widget.<init>"},
		{"value class parameter", memberNamed(t, widget, "find"), "p.Widget.find-" + mangleHash("Lp/UserId;")},
		{"nullable value class parameter", memberNamed(t, widget, "findOrNull"), "p.Widget.findOrNull-" + mangleHash("Lp/UserId;?")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.MangledName(tt.d))
		})
	}

	suffix := strings.TrimPrefix(r.MangledName(memberNamed(t, widget, "find")), "p.Widget.find-")
	assert.Len(t, suffix, 7)
}

func TestJvmDescriptor(t *testing.T) {
	t.Parallel()
	T := typeParam("p.Repo", "T", types.Invariant)
	repo := classDecl("p", "Repo", graph.KindClass, &graph.Details{
		TypeParams: []*types.TypeParameter{T},
		Members: members(
			funDecl("save", kUnit, params(param("id", kInt), param("name", kString))),
			funDecl("load", types.MakeNullable(kInt), params(param("item", types.Ref(T)))),
			funDecl("all", types.Class("kotlin.collections.List", kString), params(&graph.Parameter{Name: "ids", Type: kLong, Vararg: true})),
			propDecl("size", kInt),
		),
	})
	e := newTestEngine(t, func(b *graph.Builder) {
		b.AddModule("app", nil, nil)
		addDecl(t, b, "app", repo)
	})
	r := mustQuery(t, e, "app")

	assert.Equal(t, "(ILjava/lang/String;)V", r.JvmDescriptor(memberNamed(t, repo, "save")))
	assert.Equal(t, "(Ljava/lang/Object;)Ljava/lang/Integer;", r.JvmDescriptor(memberNamed(t, repo, "load")))
	assert.Equal(t, "([J)Ljava/util/List;", r.JvmDescriptor(memberNamed(t, repo, "all")))
	assert.Equal(t, "()I", r.JvmDescriptor(graph.Getter(memberNamed(t, repo, "size"))))
	assert.Equal(t, "()V", r.JvmDescriptor(memberNamed(t, repo, "<init>")))
}

// =============================================================================
// Override checks
// =============================================================================

func TestCheckOverrides(t *testing.T) {
	t.Parallel()
	base := classDecl("p", "Base", graph.KindClass, &graph.Details{
		Members: members(funDecl("f", kUnit, nil, withModality(graph.Open))),
	}, withModality(graph.Open))
	derived := classDecl("p", "Derived", graph.KindClass, &graph.Details{
		Supertypes: []types.Type{types.Class("p.Base")},
		Members: members(
			funDecl("f", kUnit, nil, withMods(graph.ModOverride)),
			funDecl("g", kUnit, nil, withMods(graph.ModOverride)),
		),
	})
	e := newTestEngine(t, func(b *graph.Builder) {
		b.AddModule("app", nil, nil)
		addDecl(t, b, "app", base, derived)
	})
	r := mustQuery(t, e, "app")

	errs := r.CheckOverrides(e.Graph().Module("app"))
	require.Len(t, errs, 1)
	assert.Equal(t, "p.Derived.g()", errs[0].Decl)
	assert.Equal(t, CodeOverrideInconsistency, errs[0].Code())
}
