package trellis

import (
	"strings"
	"unicode"

	"github.com/jward/trellis/internal/graph"
	tlog "github.com/jward/trellis/internal/log"
	"github.com/jward/trellis/internal/platform"
	"github.com/jward/trellis/internal/types"
)

// MapType maps a platform type into the primary type system. Nullability
// and mutability hints are read from annotations. An unannotated reference
// type becomes flexible.
func (r *Resolver) MapType(t types.Type, annotations []*graph.AnnotationUsage) types.Type {
	out := platform.MapType(t, platform.HintsFrom(annotations))
	if types.IsError(out) {
		r.log.bridge.Debug("mapped to error type", "type", tlog.Type(t))
	}
	return out
}

// MapReturnType is MapType for a return position: a flexible result
// collapses to its nullable upper bound.
func (r *Resolver) MapReturnType(t types.Type, annotations []*graph.AnnotationUsage) types.Type {
	out := r.MapType(t, annotations)
	if f, ok := out.(*types.Flexible); ok {
		return f.Upper
	}
	return out
}

// declaredType is the declared type of d (property type, return type or
// alias right-hand side) in primary-language terms.
func (r *Resolver) declaredType(d *graph.Declaration) types.Type {
	t := d.Type()
	if t == nil {
		if d.Kind == graph.KindFunction || d.Kind == graph.KindSetter {
			return types.Class("kotlin.Unit")
		}
		return types.Errorf("missing type on " + d.ID)
	}
	if d.Origin.IsPlatform() {
		return r.MapType(t, d.Annotations())
	}
	return t
}

// paramType is the type of p, a parameter of d, in primary-language terms.
func (r *Resolver) paramType(d *graph.Declaration, p *graph.Parameter) types.Type {
	if p.Type == nil {
		return types.Errorf("missing type on parameter " + p.Name)
	}
	if d.Origin.IsPlatform() {
		return r.MapType(p.Type, p.Annotations)
	}
	return p.Type
}

// JvmDescriptor returns the erased JVM method descriptor of a function,
// constructor or property accessor. Properties describe their getter.
func (r *Resolver) JvmDescriptor(d *graph.Declaration) string {
	toJvm := func(t types.Type) types.Type {
		if d.Origin.IsPlatform() {
			return t
		}
		return platform.ToPlatform(t, false)
	}

	var sb strings.Builder
	sb.WriteByte('(')
	if recv := d.Details().Receiver; recv != nil {
		sb.WriteString(r.descriptor(toJvm(recv)))
	}
	for _, p := range d.Params() {
		if p.Type == nil {
			sb.WriteString(r.descriptor(nil))
			continue
		}
		t := toJvm(p.Type)
		if p.Vararg {
			t = &types.Nominal{Class: types.PlatformArray, Args: []types.Argument{{Type: t}}}
		}
		sb.WriteString(r.descriptor(t))
	}
	sb.WriteByte(')')

	switch d.Kind {
	case graph.KindConstructor, graph.KindSetter:
		sb.WriteByte('V')
	default:
		t := d.Type()
		if t == nil {
			sb.WriteByte('V')
		} else {
			sb.WriteString(r.descriptor(toJvm(t)))
		}
	}
	return sb.String()
}

var primitiveDescriptors = map[string]string{
	"boolean": "Z",
	"byte":    "B",
	"short":   "S",
	"int":     "I",
	"long":    "J",
	"char":    "C",
	"float":   "F",
	"double":  "D",
	"void":    "V",
}

func (r *Resolver) descriptor(t types.Type) string {
	switch t := t.(type) {
	case *types.Nominal:
		if d, ok := primitiveDescriptors[t.Class]; ok {
			return d
		}
		if t.Class == types.PlatformArray && len(t.Args) == 1 {
			return "[" + r.descriptor(t.Args[0].Type)
		}
		return "L" + r.binaryName(t.Class) + ";"
	case *types.ParamRef, *types.Function:
		return r.descriptor(platform.ToPlatform(types.Erase(t), false))
	case *types.Flexible:
		return r.descriptor(t.Lower)
	case nil:
		return "Ljava/lang/Object;"
	}
	return "L" + strings.ReplaceAll(types.ErrorClass, ".", "/") + ";"
}

// binaryName is the JVM internal name of a class: package segments joined
// by '/', nested classes by '$'.
func (r *Resolver) binaryName(fqn string) string {
	if d := r.lookup(fqn); d != nil {
		name := d.Name
		for p := graph.Container(d); p != nil; p = graph.Container(p) {
			name = p.Name + "$" + name
		}
		if d.Package == "" {
			return name
		}
		return strings.ReplaceAll(d.Package, ".", "/") + "/" + name
	}
	// Unknown class: the first capitalized segment starts the class name.
	segs := strings.Split(fqn, ".")
	for i, s := range segs {
		if s != "" && unicode.IsUpper([]rune(s)[0]) {
			pkg := strings.Join(segs[:i], "/")
			cls := strings.Join(segs[i:], "$")
			if pkg == "" {
				return cls
			}
			return pkg + "/" + cls
		}
	}
	return strings.Join(segs, "/")
}
