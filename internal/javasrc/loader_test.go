package javasrc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

func writeJava(t *testing.T, dir, rel, src string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

// loadModule indexes dir into module "lib" and builds the graph.
func loadModule(t *testing.T, dir string) (*graph.Graph, int) {
	t.Helper()
	b := graph.NewBuilder()
	b.AddModule("lib", nil, nil)
	n, err := NewLoader().Index(context.Background(), b, "lib", dir)
	require.NoError(t, err)
	g, err := b.Build()
	require.NoError(t, err)
	return g, n
}

func member(t *testing.T, d *graph.Declaration, name string, kind graph.Kind) *graph.Declaration {
	t.Helper()
	for _, m := range d.Members() {
		if m.Name == name && m.Kind == kind {
			return m
		}
	}
	t.Fatalf("%s has no %s %s", d.QualifiedName, kind, name)
	return nil
}

const containerSrc = `package com.acme;

import java.util.List;
import java.util.Map;
import org.jetbrains.annotations.NotNull;

public class Container<T extends Comparable<T>> extends Base implements Iterable<T> {
    public static final int LIMIT = 10;
    protected List<? extends T> items;

    public Container(List<? extends T> items) { this.items = items; }

    @NotNull
    public String name() { return "c"; }

    public <R> R fold(R initial, Map.Entry<String, ? super T> e, int... counts) throws java.io.IOException {
        return initial;
    }

    public int[][] grid() { return null; }

    static class Nested {}
    class Inner {
        T value() { return null; }
    }
}
`

const baseSrc = `package com.acme;

public abstract class Base {
    abstract void run();
}
`

func TestIndex_RegistersStubs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "com/acme/Container.java", containerSrc)
	writeJava(t, dir, "com/acme/Base.java", baseSrc)

	g, n := loadModule(t, dir)
	assert.Equal(t, 4, n)

	m := g.Module("lib")
	c := m.Classifier("com.acme.Container")
	require.NotNil(t, c)
	assert.False(t, c.Resolved(), "stubs resolve lazily")
	assert.Equal(t, graph.OriginPlatform, c.Origin)
	assert.Equal(t, graph.Public, c.Visibility)
	assert.Equal(t, graph.Open, c.Modality)

	nested := m.Classifier("com.acme.Container.Nested")
	require.NotNil(t, nested)
	assert.Same(t, c, nested.Parent)
	assert.False(t, nested.Has(graph.ModInner))
	assert.True(t, m.Classifier("com.acme.Container.Inner").Has(graph.ModInner))

	base := m.Classifier("com.acme.Base")
	require.NotNil(t, base)
	assert.Equal(t, graph.Abstract, base.Modality)
}

func TestLoad_ClassDetails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "com/acme/Container.java", containerSrc)
	writeJava(t, dir, "com/acme/Base.java", baseSrc)
	g, _ := loadModule(t, dir)
	c := g.Module("lib").Classifier("com.acme.Container")

	require.NoError(t, c.LoadError())
	require.Len(t, c.TypeParams(), 1)
	tp := c.TypeParams()[0]
	assert.Equal(t, "com.acme.Container#T", tp.ID)
	require.Len(t, tp.Bounds, 1)
	assert.Equal(t, "java.lang.Comparable<T>", types.Format(tp.Bounds[0]))

	var supers []string
	for _, st := range c.Supertypes() {
		supers = append(supers, types.Format(st))
	}
	assert.Equal(t, []string{"com.acme.Base", "java.lang.Iterable<T>"}, supers)

	limit := member(t, c, "LIMIT", graph.KindProperty)
	assert.Equal(t, "int", types.Format(limit.Type()))
	assert.True(t, limit.Has(graph.ModStatic))
	assert.False(t, limit.Has(graph.ModVar))

	items := member(t, c, "items", graph.KindProperty)
	assert.Equal(t, graph.Protected, items.Visibility)
	assert.True(t, items.Has(graph.ModVar))
	assert.Equal(t, "java.util.List<out T>", types.Format(items.Type()))

	ctor := member(t, c, "<init>", graph.KindConstructor)
	require.Len(t, ctor.Params(), 1)
	assert.Equal(t, "com.acme.Container<T>", types.Format(ctor.Type()))

	name := member(t, c, "name", graph.KindFunction)
	assert.Equal(t, "java.lang.String", types.Format(name.Type()))
	require.Len(t, name.Annotations(), 1)
	assert.Equal(t, "org.jetbrains.annotations.NotNull", name.Annotations()[0].Class)

	grid := member(t, c, "grid", graph.KindFunction)
	assert.Equal(t, "[]<[]<int>>", types.Format(grid.Type()))
}

func TestLoad_GenericMethod(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "com/acme/Container.java", containerSrc)
	writeJava(t, dir, "com/acme/Base.java", baseSrc)
	g, _ := loadModule(t, dir)
	fold := member(t, g.Module("lib").Classifier("com.acme.Container"), "fold", graph.KindFunction)

	require.Len(t, fold.TypeParams(), 1)
	r := fold.TypeParams()[0]
	assert.Equal(t, graph.TypeParamID(fold.ID, "R"), r.ID)

	params := fold.Params()
	require.Len(t, params, 3)
	assert.Equal(t, "R", types.Format(params[0].Type))
	assert.Equal(t, "java.util.Map.Entry<java.lang.String, in T>", types.Format(params[1].Type))
	assert.True(t, params[2].Vararg)
	assert.Equal(t, "int", types.Format(params[2].Type))

	ref, ok := fold.Type().(*types.ParamRef)
	require.True(t, ok)
	assert.Same(t, r, ref.Param)

	require.Len(t, fold.Details().Throws, 1)
	assert.Equal(t, "java.io.IOException", types.Format(fold.Details().Throws[0]))
}

func TestLoad_InnerClassSeesOuterParams(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "com/acme/Container.java", containerSrc)
	writeJava(t, dir, "com/acme/Base.java", baseSrc)
	g, _ := loadModule(t, dir)
	m := g.Module("lib")
	inner := m.Classifier("com.acme.Container.Inner")
	value := member(t, inner, "value", graph.KindFunction)

	ref, ok := value.Type().(*types.ParamRef)
	require.True(t, ok)
	assert.Equal(t, "com.acme.Container#T", ref.Param.ID)

	// Nested types are the registered stubs, not copies.
	outer := m.Classifier("com.acme.Container")
	assert.Same(t, inner, member(t, outer, "Inner", graph.KindClass))
}

func TestLoad_EnumAndInterface(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "p/Color.java", `package p;
public enum Color {
    RED, GREEN;
    public int rgb() { return 0; }
}
`)
	writeJava(t, dir, "p/Shape.java", `package p;
public interface Shape extends Comparable<Shape> {
    double PI = 3.14;
    double area();
    default String label() { return "shape"; }
    static Shape unit() { return null; }
}
`)
	g, _ := loadModule(t, dir)
	m := g.Module("lib")

	color := m.Classifier("p.Color")
	assert.Equal(t, graph.KindEnumClass, color.Kind)
	assert.Equal(t, graph.Final, color.Modality)
	assert.Equal(t, "java.lang.Enum<p.Color>", types.Format(color.Supertypes()[0]))
	red := member(t, color, "RED", graph.KindEnumEntry)
	assert.Same(t, color, red.Parent)
	member(t, color, "rgb", graph.KindFunction)

	shape := m.Classifier("p.Shape")
	assert.Equal(t, graph.KindInterface, shape.Kind)
	assert.Equal(t, "java.lang.Comparable<p.Shape>", types.Format(shape.Supertypes()[0]))
	assert.Equal(t, graph.Abstract, member(t, shape, "area", graph.KindFunction).Modality)
	label := member(t, shape, "label", graph.KindFunction)
	assert.Equal(t, graph.Open, label.Modality)
	assert.Equal(t, graph.Public, label.Visibility)
	assert.True(t, member(t, shape, "unit", graph.KindFunction).Has(graph.ModStatic))
	assert.True(t, member(t, shape, "PI", graph.KindProperty).Has(graph.ModStatic))
}

func TestLoad_AnnotationDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "p/Config.java", `package p;
public @interface Config {
    String name() default "none";
    int size() default 1 << 4;
    long limit() default 10L;
    Class<?> type() default Object.class;
    Level level() default Level.HIGH;
    String[] tags() default {"a", "b"};
    boolean flag();
}
`)
	writeJava(t, dir, "p/Level.java", `package p;
public enum Level { LOW, HIGH }
`)
	g, _ := loadModule(t, dir)
	cfg := g.Module("lib").Classifier("p.Config")
	assert.Equal(t, graph.KindAnnotationClass, cfg.Kind)
	assert.Equal(t, "java.lang.annotation.Annotation", types.Format(cfg.Supertypes()[0]))

	def := func(name string) graph.AnnotationExpr {
		return member(t, cfg, name, graph.KindFunction).Details().Default
	}
	assert.Equal(t, &graph.Literal{Value: "none"}, def("name"))
	assert.Equal(t, &graph.Source{Text: "1 << 4"}, def("size"))
	assert.Equal(t, &graph.Literal{Value: int64(10)}, def("limit"))
	assert.Equal(t, &graph.EnumRef{Class: "p.Level", Entry: "HIGH"}, def("level"))
	assert.Nil(t, def("flag"))

	cl, ok := def("type").(*graph.ClassLiteral)
	require.True(t, ok)
	assert.Equal(t, "java.lang.Object", types.Format(cl.Type))

	arr, ok := def("tags").(*graph.Array)
	require.True(t, ok)
	assert.Equal(t, []graph.AnnotationExpr{&graph.Literal{Value: "a"}, &graph.Literal{Value: "b"}}, arr.Elements)

	tags := member(t, cfg, "tags", graph.KindFunction)
	assert.Equal(t, "[]<java.lang.String>", types.Format(tags.Type()))
}

func TestLoad_AnnotationUsages(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "p/Tagged.java", `package p;

import java.lang.annotation.Repeatable;

@Tag("one")
@Tag(value = "two", weight = 2)
@Deprecated
public class Tagged {}
`)
	g, _ := loadModule(t, dir)
	anns := g.Module("lib").Classifier("p.Tagged").Annotations()
	require.Len(t, anns, 3)

	assert.Equal(t, "p.Tag", anns[0].Class)
	require.Len(t, anns[0].Args, 1)
	assert.Equal(t, "value", anns[0].Args[0].Name)
	assert.Equal(t, &graph.Literal{Value: "one"}, anns[0].Args[0].Value)

	assert.Equal(t, "p.Tag", anns[1].Class)
	require.Len(t, anns[1].Args, 2)
	assert.Equal(t, "weight", anns[1].Args[1].Name)
	assert.Equal(t, &graph.Literal{Value: int64(2)}, anns[1].Args[1].Value)

	assert.Equal(t, "java.lang.Deprecated", anns[2].Class)
}

func TestLoad_NameResolution(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "a/Other.java", `package a;
public class Other {}
`)
	writeJava(t, dir, "b/User.java", `package b;

import a.*;

public class User {
    Other other;
    Peer peer;
    String s;
    java.util.Set<Object> set;
    Missing missing;
}
`)
	writeJava(t, dir, "b/Peer.java", `package b;
class Peer {}
`)
	g, _ := loadModule(t, dir)
	user := g.Module("lib").Classifier("b.User")

	typeOf := func(name string) string {
		return types.Format(member(t, user, name, graph.KindProperty).Type())
	}
	assert.Equal(t, "a.Other", typeOf("other"))
	assert.Equal(t, "b.Peer", typeOf("peer"))
	assert.Equal(t, "java.lang.String", typeOf("s"))
	assert.Equal(t, "java.util.Set<java.lang.Object>", typeOf("set"))
	assert.Equal(t, "b.Missing", typeOf("missing"))
}

func TestLoad_Record(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "p/Point.java", `package p;
public record Point(int x, int y) {}
`)
	g, _ := loadModule(t, dir)
	point := g.Module("lib").Classifier("p.Point")
	assert.Equal(t, graph.Final, point.Modality)
	assert.Equal(t, "int", types.Format(member(t, point, "x", graph.KindFunction).Type()))
	require.Len(t, member(t, point, "<init>", graph.KindConstructor).Params(), 2)
}

func TestIndex_WithOrigin(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "p/Lib.java", "package p;\npublic class Lib {}\n")

	b := graph.NewBuilder()
	b.AddModule("lib", nil, nil)
	_, err := NewLoader(WithOrigin(graph.OriginPlatformLib)).Index(context.Background(), b, "lib", dir)
	require.NoError(t, err)
	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, graph.OriginPlatformLib, g.Module("lib").Classifier("p.Lib").Origin)
}

func TestIndex_UnknownModule(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeJava(t, dir, "p/Lib.java", "package p;\npublic class Lib {}\n")

	_, err := NewLoader().Index(context.Background(), graph.NewBuilder(), "nope", dir)
	require.Error(t, err)
}

func TestIndex_MissingRoot(t *testing.T) {
	t.Parallel()
	_, err := NewLoader().Index(context.Background(), graph.NewBuilder(), "lib", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
