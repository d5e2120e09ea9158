package graph

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/trellis/internal/types"
)

func class(pkg, name string, det *Details) *Declaration {
	return NewResolved(&Declaration{Name: name, Package: pkg, Kind: KindClass, Origin: OriginSource}, det)
}

func mustBuild(t *testing.T, b *Builder) *Graph {
	t.Helper()
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

// =============================================================================
// Modules
// =============================================================================

func TestBuild_ModuleCycle(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddModule("a", []string{"b"}, nil)
	b.AddModule("b", []string{"c"}, nil)
	b.AddModule("c", []string{"a"}, nil)

	_, err := b.Build()
	var cycleErr *ModuleCycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycleErr.Cycle)
	assert.Equal(t, "MODULE_CYCLE", cycleErr.Code())
}

func TestBuild_UnknownDependency(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddModule("a", []string{"missing"}, nil)

	_, err := b.Build()
	var unknown *UnknownModuleError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "missing", unknown.Ref)
}

func TestBuild_DuplicateClassifier(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddModule("a", nil, nil)
	require.NoError(t, b.Add("a", class("p", "C", nil)))
	require.NoError(t, b.Add("a", class("p", "C", nil)))

	_, err := b.Build()
	assert.Error(t, err)
}

func TestClosure_Order(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddModule("base", nil, nil)
	b.AddModule("util", []string{"base"}, nil)
	b.AddModule("api", []string{"base"}, nil)
	b.AddModule("app", []string{"util", "api"}, nil)
	g := mustBuild(t, b)

	var names []string
	for _, m := range g.Closure(g.Module("app")) {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"app", "util", "api", "base", BuiltinsModule}, names)
	assert.False(t, g.Reachable(g.Module("base"), g.Module("app")))
}

func TestLookup_RespectsClosure(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddModule("lib", nil, nil)
	b.AddModule("app", []string{"lib"}, nil)
	b.AddModule("other", nil, nil)
	require.NoError(t, b.Add("lib", class("lib", "Util", nil)))
	g := mustBuild(t, b)

	assert.NotNil(t, g.Lookup(g.Module("app"), "lib.Util"))
	assert.Nil(t, g.Lookup(g.Module("other"), "lib.Util"))
	assert.NotNil(t, g.Lookup(g.Module("other"), "kotlin.String"), "builtins are always reachable")
}

func TestDirectSubclasses_ScopedToDeclaringModule(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddModule("a", nil, nil)
	b.AddModule("b", nil, nil)
	baseA, baseB := class("p", "Base", nil), class("p", "Base", nil)
	subA := class("p", "SubA", &Details{Supertypes: []types.Type{types.Class("p.Base")}})
	subB := class("p", "SubB", &Details{Supertypes: []types.Type{types.Class("p.Base")}})
	require.NoError(t, b.Add("a", baseA))
	require.NoError(t, b.Add("a", subA))
	require.NoError(t, b.Add("b", baseB))
	require.NoError(t, b.Add("b", subB))
	g := mustBuild(t, b)

	assert.Equal(t, []*Declaration{subA}, g.DirectSubclasses(baseA))
	assert.Equal(t, []*Declaration{subB}, g.DirectSubclasses(baseB))
}

func TestModule_IsFriend(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	core := b.AddModule("core", nil, []string{"core-test"})
	tests := b.AddModule("core-test", []string{"core"}, nil)
	other := b.AddModule("other", []string{"core"}, nil)
	mustBuild(t, b)

	assert.True(t, core.IsFriend(core))
	assert.True(t, core.IsFriend(tests))
	assert.False(t, core.IsFriend(other))
}

// =============================================================================
// Lazy resolution
// =============================================================================

func TestStub_ResolvesOnce(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	stub := NewStub(&Declaration{Name: "Lazy", Package: "p", Kind: KindClass, Origin: OriginPlatform}, func(d *Declaration) (*Details, error) {
		calls.Add(1)
		field := NewResolved(&Declaration{Name: "count", Kind: KindProperty, Origin: OriginPlatform}, &Details{Type: types.Class("int")})
		return &Details{Members: []*Declaration{field}}, nil
	})
	b := NewBuilder()
	b.AddModule("m", nil, nil)
	require.NoError(t, b.Add("m", stub))
	mustBuild(t, b)
	assert.False(t, stub.Resolved())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stub.Details()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, stub.Resolved())
	var names []string
	for _, m := range stub.Members() {
		names = append(names, m.Name)
		assert.Same(t, stub, m.Parent)
	}
	assert.Equal(t, []string{"count", "<init>"}, names)
	assert.Equal(t, "p.Lazy.count", stub.Members()[0].QualifiedName)
}

func TestStub_LoaderFailureIsBroken(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	stub := NewStub(&Declaration{Name: "Bad", Package: "p", Kind: KindClass}, func(*Declaration) (*Details, error) {
		return nil, boom
	})
	b := NewBuilder()
	b.AddModule("m", nil, nil)
	require.NoError(t, b.Add("m", stub))
	mustBuild(t, b)

	assert.True(t, stub.Details().Broken)
	assert.ErrorIs(t, stub.LoadError(), boom)
	assert.Empty(t, stub.Supertypes())
}

// =============================================================================
// Implicit elements
// =============================================================================

func TestImplicit_SupertypeAndConstructor(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	b.AddModule("m", nil, nil)
	c := class("p", "Plain", &Details{})
	iface := NewResolved(&Declaration{Name: "I", Package: "p", Kind: KindInterface}, &Details{})
	require.NoError(t, b.Add("m", c))
	require.NoError(t, b.Add("m", iface))
	mustBuild(t, b)

	require.Len(t, c.Supertypes(), 1)
	assert.Equal(t, "kotlin.Any", types.Format(c.Supertypes()[0]))
	require.Len(t, c.Members(), 1)
	ctor := c.Members()[0]
	assert.Equal(t, KindConstructor, ctor.Kind)
	assert.Equal(t, OriginSynthetic, ctor.Origin)
	assert.Equal(t, "p.Plain.<init>()", ctor.ID)

	assert.Empty(t, iface.Members(), "interfaces get no constructor")
	assert.Equal(t, Abstract, iface.Modality)
}

func TestImplicit_EnumSupertypes(t *testing.T) {
	t.Parallel()
	entry := NewResolved(&Declaration{Name: "RED", Kind: KindEnumEntry}, &Details{})
	enum := NewResolved(&Declaration{Name: "Color", Package: "p", Kind: KindEnumClass}, &Details{Members: []*Declaration{entry}})
	b := NewBuilder()
	b.AddModule("m", nil, nil)
	require.NoError(t, b.Add("m", enum))
	g := mustBuild(t, b)

	assert.Equal(t, "kotlin.Enum<p.Color>", types.Format(enum.Supertypes()[0]))
	assert.Equal(t, "p.Color", types.Format(entry.Supertypes()[0]))
	assert.Same(t, entry, g.Lookup(nil, "p.Color.RED"))
}

func TestImplicit_AccessorsTakeUseSiteAnnotations(t *testing.T) {
	t.Parallel()
	prop := NewResolved(&Declaration{Name: "name", Kind: KindProperty, Modifiers: NewModifiers(ModVar)}, &Details{
		Type: types.Class("kotlin.String"),
		Annotations: []*AnnotationUsage{
			{Class: "p.OnProp"},
			{Class: "p.OnGet", Target: "get"},
			{Class: "p.OnSet", Target: "set"},
		},
	})
	c := class("p", "Person", &Details{Members: []*Declaration{prop}})
	b := NewBuilder()
	b.AddModule("m", nil, nil)
	require.NoError(t, b.Add("m", c))
	mustBuild(t, b)

	require.Len(t, prop.Annotations(), 1)
	assert.Equal(t, "p.OnProp", prop.Annotations()[0].Class)

	getter := Getter(prop)
	require.NotNil(t, getter)
	assert.Equal(t, "p.Person.name.<get-name>()", getter.ID)
	require.Len(t, getter.Annotations(), 1)
	assert.Equal(t, "OnGet", getter.Annotations()[0].ShortName())

	setter := Setter(prop)
	require.NotNil(t, setter)
	require.Len(t, setter.Params(), 1)
	assert.Equal(t, "kotlin.String", types.Format(setter.Params()[0].Type))
	assert.Equal(t, "p.OnSet", setter.Annotations()[0].Class)
	assert.Same(t, c, Container(setter))
}

// =============================================================================
// Builtins, IDs, encoding
// =============================================================================

func TestBuiltins_CollectionHierarchy(t *testing.T) {
	t.Parallel()
	g := mustBuild(t, NewBuilder())

	ml := g.Lookup(nil, "kotlin.collections.MutableList")
	require.NotNil(t, ml)
	var supers []string
	for _, st := range ml.Supertypes() {
		supers = append(supers, types.Format(st))
	}
	assert.Equal(t, []string{"kotlin.collections.List<E>", "kotlin.collections.MutableCollection<E>"}, supers)

	list := g.Lookup(nil, "kotlin.collections.List")
	require.Len(t, list.TypeParams(), 1)
	assert.Equal(t, types.Out, list.TypeParams()[0].Variance)

	enum := g.Lookup(nil, "kotlin.Enum")
	assert.Equal(t, "kotlin.Enum<E>", types.Format(enum.TypeParams()[0].Bounds[0]))
	assert.NotNil(t, g.Lookup(nil, "kotlin.collections.Map.Entry"))
}

func TestCallableID(t *testing.T) {
	t.Parallel()
	tp := &types.TypeParameter{ID: "p.f#T", Name: "T", Bounds: []types.Type{types.Class("kotlin.CharSequence")}}
	id := CallableID("p.f", []*Parameter{
		{Name: "a", Type: types.MakeNullable(types.Class("kotlin.String"))},
		{Name: "b", Type: types.Ref(tp)},
		{Name: "c", Type: types.Class("kotlin.collections.List", types.Class("kotlin.Int"))},
	})
	assert.Equal(t, "p.f(kotlin.String?,kotlin.CharSequence,kotlin.collections.List)", id)
}

func TestModifiers(t *testing.T) {
	t.Parallel()
	m := NewModifiers(ModOverride, ModData)
	assert.True(t, m.Has(ModData))
	assert.False(t, m.Has(ModInline))
	m2 := m.With(ModInline)
	assert.True(t, m2.Has(ModInline))
	assert.False(t, m.Has(ModInline), "With copies")
	assert.Equal(t, []string{"data", "inline", "override"}, m2.Strings())
	assert.False(t, Modifiers{}.Has(ModData))
}

func TestAnnotationEncoding(t *testing.T) {
	t.Parallel()
	in := []*AnnotationUsage{{
		Class:  "p.Outer",
		Target: "field",
		Args: []AnnotationArg{
			{Name: "n", Value: &Literal{Value: int64(0)}},
			{Name: "c", Value: &Literal{Value: 'x'}},
			{Name: "e", Value: &EnumRef{Class: "p.Color", Entry: "RED"}},
			{Name: "k", Value: &ClassLiteral{Type: types.Class("p.Box", types.Errorf("unresolved"))}},
			{Value: &Array{Elements: []AnnotationExpr{
				&Nested{Usage: &AnnotationUsage{Class: "p.Inner", Args: []AnnotationArg{{Value: &Literal{Value: "s"}}}}},
				&Source{Text: "40 + 2"},
			}}},
		},
	}}
	data, err := MarshalUsages(in)
	require.NoError(t, err)
	out, err := UnmarshalUsages(data, nil)
	require.NoError(t, err)

	require.Len(t, out, 1)
	u := out[0]
	assert.Equal(t, "field", u.Target)
	require.Len(t, u.Args, 5)
	assert.Equal(t, int64(0), u.Args[0].Value.(*Literal).Value)
	assert.Equal(t, 'x', u.Args[1].Value.(*Literal).Value)
	assert.Equal(t, "RED", u.Args[2].Value.(*EnumRef).Entry)
	lit := u.Args[3].Value.(*ClassLiteral)
	assert.Equal(t, "p.Box", lit.Type.(*types.Nominal).Class)
	arr := u.Args[4].Value.(*Array)
	require.Len(t, arr.Elements, 2)
	assert.Equal(t, "p.Inner", arr.Elements[0].(*Nested).Usage.Class)
	assert.Equal(t, "40 + 2", arr.Elements[1].(*Source).Text)
}
