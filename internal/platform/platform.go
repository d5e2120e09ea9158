// Package platform holds the fixed correspondences between the platform
// language's types and modifiers and those of the primary language.
package platform

import (
	"strconv"
	"strings"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// Primitive platform types and their primary equivalents.
var primitives = map[string]string{
	"boolean": "kotlin.Boolean",
	"byte":    "kotlin.Byte",
	"short":   "kotlin.Short",
	"int":     "kotlin.Int",
	"long":    "kotlin.Long",
	"char":    "kotlin.Char",
	"float":   "kotlin.Float",
	"double":  "kotlin.Double",
	"void":    "kotlin.Unit",
}

var primitiveArrays = map[string]string{
	"boolean": "kotlin.BooleanArray",
	"byte":    "kotlin.ByteArray",
	"short":   "kotlin.ShortArray",
	"int":     "kotlin.IntArray",
	"long":    "kotlin.LongArray",
	"char":    "kotlin.CharArray",
	"float":   "kotlin.FloatArray",
	"double":  "kotlin.DoubleArray",
}

var boxed = map[string]string{
	"java.lang.Boolean":   "kotlin.Boolean",
	"java.lang.Byte":      "kotlin.Byte",
	"java.lang.Short":     "kotlin.Short",
	"java.lang.Integer":   "kotlin.Int",
	"java.lang.Long":      "kotlin.Long",
	"java.lang.Character": "kotlin.Char",
	"java.lang.Float":     "kotlin.Float",
	"java.lang.Double":    "kotlin.Double",
}

var classes = map[string]string{
	"java.lang.Object":                "kotlin.Any",
	"java.lang.String":                "kotlin.String",
	"java.lang.CharSequence":          "kotlin.CharSequence",
	"java.lang.Number":                "kotlin.Number",
	"java.lang.Throwable":             "kotlin.Throwable",
	"java.lang.Comparable":            "kotlin.Comparable",
	"java.lang.Enum":                  "kotlin.Enum",
	"java.lang.Cloneable":             "kotlin.Cloneable",
	"java.lang.annotation.Annotation": "kotlin.Annotation",
	"java.lang.Void":                  "kotlin.Nothing",
}

// collection maps a platform collection interface to its read-only and
// mutable primary variants.
type collection struct {
	readOnly string
	mutable  string
}

var collections = map[string]collection{
	"java.lang.Iterable":     {"kotlin.collections.Iterable", "kotlin.collections.MutableIterable"},
	"java.util.Iterator":     {"kotlin.collections.Iterator", "kotlin.collections.MutableIterator"},
	"java.util.ListIterator": {"kotlin.collections.ListIterator", "kotlin.collections.MutableListIterator"},
	"java.util.Collection":   {"kotlin.collections.Collection", "kotlin.collections.MutableCollection"},
	"java.util.List":         {"kotlin.collections.List", "kotlin.collections.MutableList"},
	"java.util.Set":          {"kotlin.collections.Set", "kotlin.collections.MutableSet"},
	"java.util.Map":          {"kotlin.collections.Map", "kotlin.collections.MutableMap"},
	"java.util.Map.Entry":    {"kotlin.collections.Map.Entry", "kotlin.collections.MutableMap.MutableEntry"},
}

// NullableAnnotations are annotation classes that mark a platform type as
// nullable.
var NullableAnnotations = []string{
	"org.jetbrains.annotations.Nullable",
	"javax.annotation.Nullable",
	"androidx.annotation.Nullable",
	"android.support.annotation.Nullable",
	"org.jspecify.annotations.Nullable",
	"edu.umd.cs.findbugs.annotations.Nullable",
	"org.checkerframework.checker.nullness.qual.Nullable",
}

// NotNullAnnotations mark a platform type as non-null.
var NotNullAnnotations = []string{
	"org.jetbrains.annotations.NotNull",
	"javax.annotation.Nonnull",
	"androidx.annotation.NonNull",
	"android.support.annotation.NonNull",
	"org.jspecify.annotations.NonNull",
	"lombok.NonNull",
	"org.checkerframework.checker.nullness.qual.NonNull",
}

// ReadOnlyAnnotations select the read-only collection variant.
var ReadOnlyAnnotations = []string{
	"org.jetbrains.annotations.Unmodifiable",
	"org.jetbrains.annotations.UnmodifiableView",
	"kotlin.annotations.jvm.ReadOnly",
}

// MutableAnnotations select the mutable collection variant explicitly.
var MutableAnnotations = []string{
	"kotlin.annotations.jvm.Mutable",
}

// Nullness is the nullability a set of annotations asserts.
type Nullness int

const (
	Unknown Nullness = iota
	NullableAnnotated
	NotNullAnnotated
)

// Hints are the annotation-derived facts that steer mapping.
type Hints struct {
	Nullness Nullness
	ReadOnly bool
}

// HintsFrom reads nullability and mutability hints from annotation usages.
// Simple names are accepted when the usage could not be qualified.
func HintsFrom(anns []*graph.AnnotationUsage) Hints {
	var h Hints
	for _, a := range anns {
		switch {
		case matches(a.Class, NullableAnnotations):
			h.Nullness = NullableAnnotated
		case matches(a.Class, NotNullAnnotations):
			h.Nullness = NotNullAnnotated
		case matches(a.Class, ReadOnlyAnnotations):
			h.ReadOnly = true
		case matches(a.Class, MutableAnnotations):
			h.ReadOnly = false
		}
	}
	return h
}

func matches(name string, list []string) bool {
	for _, l := range list {
		if name == l {
			return true
		}
		if !strings.Contains(name, ".") && strings.HasSuffix(l, "."+name) {
			return true
		}
	}
	return false
}

// IsPrimitive reports whether name is a platform primitive.
func IsPrimitive(name string) bool {
	_, ok := primitives[name]
	return ok
}

// MapType maps a platform type to the primary type system. Only the top
// level consults hints; type arguments are always mapped as flexible.
func MapType(t types.Type, h Hints) types.Type {
	mapped, primitive := mapNonNull(t, h.ReadOnly)
	if primitive {
		return mapped
	}
	switch h.Nullness {
	case NullableAnnotated:
		return types.MakeNullable(mapped)
	case NotNullAnnotated:
		return mapped
	}
	if isBoxed(t) {
		return types.MakeNullable(mapped)
	}
	if types.IsError(mapped) {
		return mapped
	}
	if _, ok := mapped.(*types.Flexible); ok {
		return mapped
	}
	return &types.Flexible{Lower: mapped, Upper: types.MakeNullable(mapped)}
}

func isBoxed(t types.Type) bool {
	n, ok := t.(*types.Nominal)
	if !ok {
		return false
	}
	_, ok = boxed[n.Class]
	return ok
}

// mapNonNull maps the structure of t, returning the non-null form. The bool
// result reports a primitive, which never becomes flexible.
func mapNonNull(t types.Type, readOnly bool) (types.Type, bool) {
	switch t := t.(type) {
	case *types.Nominal:
		if k, ok := primitives[t.Class]; ok {
			return types.Class(k), true
		}
		if k, ok := boxed[t.Class]; ok {
			return types.Class(k), false
		}
		if t.Class == types.PlatformArray && len(t.Args) == 1 {
			return mapArray(t.Args[0].Type), false
		}
		out := &types.Nominal{Class: t.Class}
		if k, ok := classes[t.Class]; ok {
			out.Class = k
		} else if c, ok := collections[t.Class]; ok {
			out.Class = c.mutable
			if readOnly {
				out.Class = c.readOnly
			}
		}
		for _, a := range t.Args {
			if a.Projection == types.Star || a.Type == nil {
				out.Args = append(out.Args, a)
				continue
			}
			out.Args = append(out.Args, types.Argument{Projection: a.Projection, Type: MapType(a.Type, Hints{})})
		}
		return out, false
	case *types.ParamRef:
		return &types.ParamRef{Param: t.Param}, false
	case *types.Flexible:
		return t, false
	}
	return t, false
}

func mapArray(elem types.Type) types.Type {
	if n, ok := elem.(*types.Nominal); ok {
		if k, ok := primitiveArrays[n.Class]; ok {
			return types.Class(k)
		}
	}
	return &types.Nominal{Class: "kotlin.Array", Args: []types.Argument{{Type: MapType(elem, Hints{})}}}
}

// reverse tables, built once from the forward ones.
var (
	toPrimitive = invert(primitives)
	toBoxed     = invert(boxed)
	toClass     = invert(classes)
	toArray     = invert(primitiveArrays)
	toColl      = map[string]string{}
)

func init() {
	for plat, c := range collections {
		toColl[c.readOnly] = plat
		toColl[c.mutable] = plat
	}
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// ToPlatform maps a primary type to the platform type it compiles to, as
// used in binary signatures. asArgument selects boxed forms for primitives,
// which is also what nullable primitives map to.
func ToPlatform(t types.Type, asArgument bool) types.Type {
	switch t := t.(type) {
	case *types.Flexible:
		return ToPlatform(t.Lower, asArgument)
	case *types.Function:
		n := len(t.Params)
		if t.Receiver != nil {
			n++
		}
		return types.Class("kotlin.jvm.functions.Function" + strconv.Itoa(n))
	case *types.Nominal:
		if p, ok := toPrimitive[t.Class]; ok && !t.Nullable && !asArgument {
			return types.Class(p)
		}
		if b, ok := toBoxed[t.Class]; ok {
			return types.Class(b)
		}
		if t.Class == "kotlin.Unit" && !asArgument {
			return types.Class("void")
		}
		if a, ok := toArray[t.Class]; ok {
			return &types.Nominal{Class: types.PlatformArray, Args: []types.Argument{{Type: types.Class(a)}}}
		}
		if t.Class == "kotlin.Array" && len(t.Args) == 1 {
			elem := types.Type(types.Class("java.lang.Object"))
			if t.Args[0].Type != nil {
				elem = ToPlatform(t.Args[0].Type, true)
			}
			return &types.Nominal{Class: types.PlatformArray, Args: []types.Argument{{Type: elem}}}
		}
		out := &types.Nominal{Class: t.Class}
		if c, ok := toClass[t.Class]; ok {
			out.Class = c
		} else if c, ok := toColl[t.Class]; ok {
			out.Class = c
		}
		for _, a := range t.Args {
			if a.Type == nil {
				out.Args = append(out.Args, a)
				continue
			}
			out.Args = append(out.Args, types.Argument{Projection: a.Projection, Type: ToPlatform(a.Type, true)})
		}
		return out
	case *types.ParamRef:
		return &types.ParamRef{Param: t.Param}
	}
	return t
}

// MapModifiers converts platform source modifiers into primary visibility,
// modality and flags. Classes and methods without final are open; members
// without an access modifier are package-private, except interface members
// which are public.
func MapModifiers(mods []string, kind graph.Kind, inInterface bool) (graph.Visibility, graph.Modality, graph.Modifiers) {
	vis := graph.PackagePrivate
	if inInterface {
		vis = graph.Public
	}
	modality := graph.Open
	var flags []graph.Modifier
	isFinal, isAbstract, isStatic, isDefault := false, false, false, false
	for _, m := range mods {
		switch m {
		case "public":
			vis = graph.Public
		case "protected":
			vis = graph.Protected
		case "private":
			vis = graph.Private
		case "final":
			isFinal = true
		case "abstract":
			isAbstract = true
		case "static":
			isStatic = true
			flags = append(flags, graph.ModStatic)
		case "default":
			isDefault = true
			flags = append(flags, graph.ModDefault)
		case "native":
			flags = append(flags, graph.ModExternal)
		}
	}
	switch {
	case kind == graph.KindInterface || kind == graph.KindAnnotationClass:
		modality = graph.Abstract
	case kind == graph.KindEnumClass || kind == graph.KindEnumEntry || kind == graph.KindConstructor:
		modality = graph.Final
	case isAbstract:
		modality = graph.Abstract
	case inInterface && kind == graph.KindFunction && !isDefault && !isStatic:
		modality = graph.Abstract
	case isFinal || isStatic || vis == graph.Private:
		modality = graph.Final
	}
	if kind == graph.KindProperty && !isFinal {
		flags = append(flags, graph.ModVar)
	}
	return vis, modality, graph.NewModifiers(flags...)
}
