package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

func parse(t *testing.T, s string) types.Type {
	t.Helper()
	tp := &types.TypeParameter{ID: "C#T", Name: "T"}
	return types.MustParse(s, func(name string) *types.TypeParameter {
		if name == "T" {
			return tp
		}
		return nil
	})
}

func TestMapType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    string
		hints Hints
		want  string
	}{
		{"primitive is non-null", "int", Hints{}, "kotlin.Int"},
		{"void is unit", "void", Hints{}, "kotlin.Unit"},
		{"boxed is nullable", "java.lang.Integer", Hints{}, "kotlin.Int?"},
		{"boxed annotated not-null", "java.lang.Integer", Hints{Nullness: NotNullAnnotated}, "kotlin.Int"},
		{"string is flexible", "java.lang.String", Hints{}, "kotlin.String!"},
		{"annotated nullable", "java.lang.String", Hints{Nullness: NullableAnnotated}, "kotlin.String?"},
		{"annotated not-null", "java.lang.Object", Hints{Nullness: NotNullAnnotated}, "kotlin.Any"},
		{"list defaults mutable", "java.util.List<java.lang.String>", Hints{Nullness: NotNullAnnotated}, "kotlin.collections.MutableList<kotlin.String!>"},
		{"read-only list", "java.util.List<java.lang.String>", Hints{Nullness: NotNullAnnotated, ReadOnly: true}, "kotlin.collections.List<kotlin.String!>"},
		{"map entry", "java.util.Map.Entry<T, java.lang.Long>", Hints{Nullness: NotNullAnnotated}, "kotlin.collections.MutableMap.MutableEntry<T!, kotlin.Long?>"},
		{"primitive array", "int[]", Hints{Nullness: NotNullAnnotated}, "kotlin.IntArray"},
		{"object array", "java.lang.String[]", Hints{Nullness: NotNullAnnotated}, "kotlin.Array<kotlin.String!>"},
		{"type parameter", "T", Hints{}, "T!"},
		{"unknown class kept", "com.acme.Widget", Hints{}, "com.acme.Widget!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, types.Format(MapType(parse(t, tt.in), tt.hints)))
		})
	}
}

func TestMapType_FlexibleBounds(t *testing.T) {
	t.Parallel()
	got, ok := MapType(types.Class("java.lang.String"), Hints{}).(*types.Flexible)
	assert.True(t, ok)
	assert.True(t, types.Equal(types.Class("kotlin.String"), got.Lower))
	assert.True(t, types.Equal(types.MakeNullable(types.Class("kotlin.String")), got.Upper))
}

func TestHintsFrom(t *testing.T) {
	t.Parallel()
	h := HintsFrom([]*graph.AnnotationUsage{
		{Class: "org.jetbrains.annotations.Unmodifiable"},
		{Class: "Nullable"},
	})
	assert.Equal(t, NullableAnnotated, h.Nullness)
	assert.True(t, h.ReadOnly)

	h = HintsFrom([]*graph.AnnotationUsage{{Class: "javax.annotation.Nonnull"}})
	assert.Equal(t, NotNullAnnotated, h.Nullness)

	h = HintsFrom([]*graph.AnnotationUsage{{Class: "com.acme.Nullable"}})
	assert.Equal(t, Unknown, h.Nullness, "qualified names must match exactly")
}

func TestToPlatform(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		asArg bool
		want  string
	}{
		{"kotlin.Int", false, "int"},
		{"kotlin.Int?", false, "java.lang.Integer"},
		{"kotlin.Int", true, "java.lang.Integer"},
		{"kotlin.Unit", false, "void"},
		{"kotlin.String", false, "java.lang.String"},
		{"kotlin.collections.List<kotlin.Int>", false, "java.util.List<java.lang.Integer>"},
		{"kotlin.collections.MutableMap<kotlin.String, T>", false, "java.util.Map<java.lang.String, T>"},
		{"kotlin.IntArray", false, "[]<int>"},
		{"kotlin.Array<kotlin.String>", false, "[]<java.lang.String>"},
		{"(kotlin.Int) -> kotlin.Unit", false, "kotlin.jvm.functions.Function1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, types.Format(ToPlatform(parse(t, tt.in), tt.asArg)))
		})
	}
}

func TestMapModifiers(t *testing.T) {
	t.Parallel()

	vis, modality, _ := MapModifiers(nil, graph.KindClass, false)
	assert.Equal(t, graph.PackagePrivate, vis)
	assert.Equal(t, graph.Open, modality)

	vis, modality, _ = MapModifiers([]string{"public", "final"}, graph.KindClass, false)
	assert.Equal(t, graph.Public, vis)
	assert.Equal(t, graph.Final, modality)

	_, modality, _ = MapModifiers([]string{"public", "abstract"}, graph.KindFunction, false)
	assert.Equal(t, graph.Abstract, modality)

	vis, modality, _ = MapModifiers(nil, graph.KindFunction, true)
	assert.Equal(t, graph.Public, vis)
	assert.Equal(t, graph.Abstract, modality)

	_, modality, flags := MapModifiers([]string{"default"}, graph.KindFunction, true)
	assert.Equal(t, graph.Open, modality)
	assert.True(t, flags.Has(graph.ModDefault))

	_, modality, flags = MapModifiers([]string{"public", "static"}, graph.KindFunction, false)
	assert.Equal(t, graph.Final, modality)
	assert.True(t, flags.Has(graph.ModStatic))

	_, _, flags = MapModifiers([]string{"private"}, graph.KindProperty, false)
	assert.True(t, flags.Has(graph.ModVar))
	_, _, flags = MapModifiers([]string{"final"}, graph.KindProperty, false)
	assert.False(t, flags.Has(graph.ModVar))
}
