package javasrc

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/trellis/internal/types"
)

// javaLang lists the java.lang types that resolve without an import when
// no source for them was indexed.
var javaLang = map[string]bool{
	"Object": true, "String": true, "CharSequence": true, "Number": true,
	"Integer": true, "Long": true, "Short": true, "Byte": true, "Character": true,
	"Boolean": true, "Double": true, "Float": true, "Void": true,
	"Comparable": true, "Enum": true, "Iterable": true, "Cloneable": true,
	"AutoCloseable": true, "Runnable": true, "Class": true, "Record": true,
	"Throwable": true, "Exception": true, "RuntimeException": true, "Error": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"UnsupportedOperationException": true, "NullPointerException": true,
	"Deprecated": true, "Override": true, "FunctionalInterface": true,
	"SuppressWarnings": true, "SafeVarargs": true, "StringBuilder": true,
}

func isTypeNode(n *sitter.Node) bool {
	switch n.Type() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type",
		"type_identifier", "scoped_type_identifier", "generic_type", "array_type", "annotated_type":
		return true
	}
	return false
}

// typeOf converts a type node to a raw platform type. Primitives keep their
// keyword as class name and arrays use types.PlatformArray.
func (x *extractor) typeOf(n *sitter.Node) types.Type {
	if n == nil {
		return types.Errorf("missing type")
	}
	switch n.Type() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return types.Class(x.f.text(n))
	case "type_identifier", "scoped_type_identifier":
		name := x.f.text(n)
		if !strings.Contains(name, ".") {
			if tp := x.lookupParam(name); tp != nil {
				return types.Ref(tp)
			}
		}
		return types.Class(x.resolve(name))
	case "generic_type":
		var out *types.Nominal
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "type_identifier", "scoped_type_identifier":
				out = &types.Nominal{Class: x.resolve(x.f.text(c))}
			case "type_arguments":
				if out == nil {
					continue
				}
				out.Args = x.typeArgs(c)
			}
		}
		if out == nil {
			return types.Errorf("malformed generic type " + x.f.text(n))
		}
		return out
	case "array_type":
		return wrapDimensions(x.typeOf(n.ChildByFieldName("element")), n.ChildByFieldName("dimensions"))
	case "annotated_type":
		// Type-use annotations are dropped; the declaration's annotations
		// carry the nullability hints.
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if c := n.NamedChild(i); isTypeNode(c) {
				return x.typeOf(c)
			}
		}
	}
	return types.Errorf("unsupported type " + n.Type())
}

func (x *extractor) typeArgs(n *sitter.Node) []types.Argument {
	var out []types.Argument
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "wildcard" {
			if isTypeNode(c) {
				out = append(out, types.Argument{Type: x.typeOf(c)})
			}
			continue
		}
		arg := types.Argument{Projection: types.Star}
		for j := 0; j < int(c.ChildCount()); j++ {
			k := c.Child(j)
			switch {
			case k.Type() == "extends":
				arg.Projection = types.Out
			case k.Type() == "super":
				arg.Projection = types.In
			case isTypeNode(k):
				arg.Type = x.typeOf(k)
			}
		}
		if arg.Type == nil {
			arg.Projection = types.Star
		}
		out = append(out, arg)
	}
	return out
}

// wrapDimensions nests t in one platform array per "[]" in dims.
func wrapDimensions(t types.Type, dims *sitter.Node) types.Type {
	if dims == nil {
		return t
	}
	n := int(dims.ChildCount())
	for i := 0; i < n; i++ {
		if dims.Child(i).Type() == "[" {
			t = &types.Nominal{Class: types.PlatformArray, Args: []types.Argument{{Type: t}}}
		}
	}
	return t
}

func (x *extractor) lookupParam(name string) *types.TypeParameter {
	for i := len(x.scope) - 1; i >= 0; i-- {
		if x.scope[i].Name == name {
			return x.scope[i]
		}
	}
	return nil
}

// resolve qualifies a possibly dotted type name as written in source.
func (x *extractor) resolve(name string) string {
	head, rest, dotted := strings.Cut(name, ".")
	if dotted && startsLower(head) {
		return name
	}
	q := x.resolveSimple(head)
	if dotted {
		q += "." + rest
	}
	return q
}

func (x *extractor) resolveSimple(name string) string {
	if q, ok := x.f.single[name]; ok {
		return q
	}
	for p := x.owner; p != nil; p = p.Parent {
		if p.Name == name {
			return p.QualifiedName
		}
		if x.l.lookupStub(p.QualifiedName+"."+name) != nil {
			return p.QualifiedName + "." + name
		}
	}
	local := name
	if x.f.pkg != "" {
		local = x.f.pkg + "." + name
	}
	if x.l.lookupStub(local) != nil {
		return local
	}
	for _, w := range x.f.wildcard {
		if x.l.lookupStub(w+"."+name) != nil {
			return w + "." + name
		}
	}
	if javaLang[name] || x.l.lookupStub("java.lang."+name) != nil {
		return "java.lang." + name
	}
	return local
}

func startsLower(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}
