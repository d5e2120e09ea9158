package graph

import (
	"strings"

	"github.com/jward/trellis/internal/types"
)

// builtinClass describes one built-in classifier in source-like notation.
type builtinClass struct {
	fqn      string
	kind     Kind
	modality Modality
	params   []string // "out E", "in T", "E : kotlin.Enum<E>"
	supers   []string
	members  []builtinMember
}

type builtinMember struct {
	kind   Kind
	name   string
	params []string // "name: Type"
	typ    string
	mods   []Modifier
}

func fun(name, ret string, params ...string) builtinMember {
	return builtinMember{kind: KindFunction, name: name, params: params, typ: ret}
}

func prop(name, typ string) builtinMember {
	return builtinMember{kind: KindProperty, name: name, typ: typ}
}

func op(m builtinMember) builtinMember {
	m.mods = append(m.mods, ModOperator)
	return m
}

var numberMembers = []builtinMember{
	fun("toInt", "kotlin.Int"),
	fun("toLong", "kotlin.Long"),
	fun("toDouble", "kotlin.Double"),
}

var builtinClasses = []builtinClass{
	{fqn: "kotlin.Any", kind: KindClass, modality: Open, members: []builtinMember{
		op(fun("equals", "kotlin.Boolean", "other: kotlin.Any?")),
		fun("hashCode", "kotlin.Int"),
		fun("toString", "kotlin.String"),
	}},
	{fqn: "kotlin.Nothing", kind: KindClass},
	{fqn: "kotlin.Unit", kind: KindObject},
	{fqn: "kotlin.Comparable", kind: KindInterface, params: []string{"in T"}, members: []builtinMember{
		op(fun("compareTo", "kotlin.Int", "other: T")),
	}},
	{fqn: "kotlin.CharSequence", kind: KindInterface, members: []builtinMember{
		prop("length", "kotlin.Int"),
		op(fun("get", "kotlin.Char", "index: kotlin.Int")),
	}},
	{fqn: "kotlin.String", kind: KindClass, supers: []string{"kotlin.Comparable<kotlin.String>", "kotlin.CharSequence"}},
	{fqn: "kotlin.Boolean", kind: KindClass, supers: []string{"kotlin.Comparable<kotlin.Boolean>"}},
	{fqn: "kotlin.Char", kind: KindClass, supers: []string{"kotlin.Comparable<kotlin.Char>"}},
	{fqn: "kotlin.Number", kind: KindClass, modality: Abstract, members: numberMembers},
	{fqn: "kotlin.Byte", kind: KindClass, supers: []string{"kotlin.Number", "kotlin.Comparable<kotlin.Byte>"}},
	{fqn: "kotlin.Short", kind: KindClass, supers: []string{"kotlin.Number", "kotlin.Comparable<kotlin.Short>"}},
	{fqn: "kotlin.Int", kind: KindClass, supers: []string{"kotlin.Number", "kotlin.Comparable<kotlin.Int>"}},
	{fqn: "kotlin.Long", kind: KindClass, supers: []string{"kotlin.Number", "kotlin.Comparable<kotlin.Long>"}},
	{fqn: "kotlin.Float", kind: KindClass, supers: []string{"kotlin.Number", "kotlin.Comparable<kotlin.Float>"}},
	{fqn: "kotlin.Double", kind: KindClass, supers: []string{"kotlin.Number", "kotlin.Comparable<kotlin.Double>"}},
	{fqn: "kotlin.Array", kind: KindClass, params: []string{"T"}, members: []builtinMember{
		prop("size", "kotlin.Int"),
		op(fun("get", "T", "index: kotlin.Int")),
	}},
	{fqn: "kotlin.BooleanArray", kind: KindClass},
	{fqn: "kotlin.ByteArray", kind: KindClass},
	{fqn: "kotlin.ShortArray", kind: KindClass},
	{fqn: "kotlin.CharArray", kind: KindClass},
	{fqn: "kotlin.IntArray", kind: KindClass},
	{fqn: "kotlin.LongArray", kind: KindClass},
	{fqn: "kotlin.FloatArray", kind: KindClass},
	{fqn: "kotlin.DoubleArray", kind: KindClass},
	{fqn: "kotlin.Enum", kind: KindClass, modality: Abstract, params: []string{"E : kotlin.Enum<E>"}, supers: []string{"kotlin.Comparable<E>"}, members: []builtinMember{
		prop("name", "kotlin.String"),
		prop("ordinal", "kotlin.Int"),
	}},
	{fqn: "kotlin.Annotation", kind: KindInterface},
	{fqn: "kotlin.Throwable", kind: KindClass, modality: Open, members: []builtinMember{
		prop("message", "kotlin.String?"),
		prop("cause", "kotlin.Throwable?"),
	}},
	{fqn: "kotlin.Cloneable", kind: KindInterface},

	{fqn: "kotlin.collections.Iterator", kind: KindInterface, params: []string{"out T"}, members: []builtinMember{
		op(fun("next", "T")),
		op(fun("hasNext", "kotlin.Boolean")),
	}},
	{fqn: "kotlin.collections.MutableIterator", kind: KindInterface, params: []string{"out T"}, supers: []string{"kotlin.collections.Iterator<T>"}, members: []builtinMember{
		fun("remove", "kotlin.Unit"),
	}},
	{fqn: "kotlin.collections.ListIterator", kind: KindInterface, params: []string{"out T"}, supers: []string{"kotlin.collections.Iterator<T>"}},
	{fqn: "kotlin.collections.MutableListIterator", kind: KindInterface, params: []string{"T"}, supers: []string{"kotlin.collections.ListIterator<T>", "kotlin.collections.MutableIterator<T>"}},
	{fqn: "kotlin.collections.Iterable", kind: KindInterface, params: []string{"out T"}, members: []builtinMember{
		op(fun("iterator", "kotlin.collections.Iterator<T>")),
	}},
	{fqn: "kotlin.collections.MutableIterable", kind: KindInterface, params: []string{"out T"}, supers: []string{"kotlin.collections.Iterable<T>"}},
	{fqn: "kotlin.collections.Collection", kind: KindInterface, params: []string{"out E"}, supers: []string{"kotlin.collections.Iterable<E>"}, members: []builtinMember{
		prop("size", "kotlin.Int"),
		fun("isEmpty", "kotlin.Boolean"),
		op(fun("contains", "kotlin.Boolean", "element: E")),
	}},
	{fqn: "kotlin.collections.MutableCollection", kind: KindInterface, params: []string{"E"}, supers: []string{"kotlin.collections.Collection<E>", "kotlin.collections.MutableIterable<E>"}, members: []builtinMember{
		fun("add", "kotlin.Boolean", "element: E"),
		fun("remove", "kotlin.Boolean", "element: E"),
	}},
	{fqn: "kotlin.collections.List", kind: KindInterface, params: []string{"out E"}, supers: []string{"kotlin.collections.Collection<E>"}, members: []builtinMember{
		op(fun("get", "E", "index: kotlin.Int")),
		fun("indexOf", "kotlin.Int", "element: E"),
		fun("subList", "kotlin.collections.List<E>", "fromIndex: kotlin.Int", "toIndex: kotlin.Int"),
	}},
	{fqn: "kotlin.collections.MutableList", kind: KindInterface, params: []string{"E"}, supers: []string{"kotlin.collections.List<E>", "kotlin.collections.MutableCollection<E>"}, members: []builtinMember{
		op(fun("set", "E", "index: kotlin.Int", "element: E")),
	}},
	{fqn: "kotlin.collections.Set", kind: KindInterface, params: []string{"out E"}, supers: []string{"kotlin.collections.Collection<E>"}},
	{fqn: "kotlin.collections.MutableSet", kind: KindInterface, params: []string{"E"}, supers: []string{"kotlin.collections.Set<E>", "kotlin.collections.MutableCollection<E>"}},
	{fqn: "kotlin.collections.Map", kind: KindInterface, params: []string{"K", "out V"}, members: []builtinMember{
		prop("size", "kotlin.Int"),
		op(fun("get", "V?", "key: K")),
		fun("containsKey", "kotlin.Boolean", "key: K"),
		prop("keys", "kotlin.collections.Set<K>"),
		prop("values", "kotlin.collections.Collection<V>"),
	}},
	{fqn: "kotlin.collections.Map.Entry", kind: KindInterface, params: []string{"out K", "out V"}, members: []builtinMember{
		prop("key", "K"),
		prop("value", "V"),
	}},
	{fqn: "kotlin.collections.MutableMap", kind: KindInterface, params: []string{"K", "V"}, supers: []string{"kotlin.collections.Map<K, V>"}, members: []builtinMember{
		fun("put", "V?", "key: K", "value: V"),
	}},
	{fqn: "kotlin.collections.MutableMap.MutableEntry", kind: KindInterface, params: []string{"K", "V"}, supers: []string{"kotlin.collections.Map.Entry<K, V>"}, members: []builtinMember{
		fun("setValue", "V", "newValue: V"),
	}},
}

// builtinDeclarations materializes builtinClasses as resolved declarations.
// Nested classifiers (Map.Entry) are returned with Parent set.
func builtinDeclarations() []*Declaration {
	byName := map[string]*Declaration{}
	var out []*Declaration
	for _, bc := range builtinClasses {
		d := &Declaration{
			QualifiedName: bc.fqn,
			Kind:          bc.kind,
			Origin:        OriginSourceLib,
			Modality:      bc.modality,
		}
		d.Package, d.Name = PackageOf(bc.fqn)
		if parent := byName[d.Package]; parent != nil {
			d.Parent = parent
			d.Package = parent.Package
		}
		det := &Details{TypeParams: builtinParams(bc.fqn, bc.params)}
		scope := paramScope(det.TypeParams)
		for _, s := range bc.supers {
			det.Supertypes = append(det.Supertypes, types.MustParse(s, scope))
		}
		for _, m := range bc.members {
			det.Members = append(det.Members, builtinMemberDecl(m, scope))
		}
		byName[bc.fqn] = d
		out = append(out, NewResolved(d, det))
	}
	return out
}

func builtinParams(owner string, specs []string) []*types.TypeParameter {
	var tps []*types.TypeParameter
	var bounds []string
	for _, spec := range specs {
		name, bound, _ := strings.Cut(spec, ":")
		name = strings.TrimSpace(name)
		tp := &types.TypeParameter{Owner: owner}
		switch {
		case strings.HasPrefix(name, "out "):
			tp.Variance = types.Out
			name = strings.TrimPrefix(name, "out ")
		case strings.HasPrefix(name, "in "):
			tp.Variance = types.In
			name = strings.TrimPrefix(name, "in ")
		}
		tp.Name = name
		tp.ID = TypeParamID(owner, name)
		tps = append(tps, tp)
		bounds = append(bounds, strings.TrimSpace(bound))
	}
	scope := paramScope(tps)
	for i, b := range bounds {
		if b != "" {
			tps[i].Bounds = []types.Type{types.MustParse(b, scope)}
		}
	}
	return tps
}

func builtinMemberDecl(m builtinMember, scope types.Scope) *Declaration {
	d := &Declaration{
		Name:      m.name,
		Kind:      m.kind,
		Origin:    OriginSourceLib,
		Modality:  Open,
		Modifiers: NewModifiers(m.mods...),
	}
	det := &Details{Type: types.MustParse(m.typ, scope)}
	for _, p := range m.params {
		name, typ, _ := strings.Cut(p, ":")
		det.Params = append(det.Params, &Parameter{
			Name: strings.TrimSpace(name),
			Type: types.MustParse(strings.TrimSpace(typ), scope),
		})
	}
	return NewResolved(d, det)
}

func paramScope(tps []*types.TypeParameter) types.Scope {
	return func(name string) *types.TypeParameter {
		for _, tp := range tps {
			if tp.Name == name {
				return tp
			}
		}
		return nil
	}
}
