package trellis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	set "github.com/hashicorp/go-set/v3"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/platform"
	"github.com/jward/trellis/internal/types"
)

// AnnotationValue is an evaluated annotation argument: LiteralValue,
// EnumValue, ClassValue, ArrayValue, NestedValue or ErrorValue.
type AnnotationValue interface {
	isAnnotationValue()
}

// LiteralValue is a constant: bool, int64, float64, string, rune or nil.
type LiteralValue struct {
	Value any
}

// EnumValue is a reference to an enum entry.
type EnumValue struct {
	Class string
	Entry string
}

// ClassValue is a class reference. Type arguments that could not be
// resolved are error types; the class name is always kept.
type ClassValue struct {
	Type types.Type
}

// ArrayValue holds elements in source order.
type ArrayValue struct {
	Elements []AnnotationValue
}

// NestedValue is an annotation used as an argument.
type NestedValue struct {
	Annotation *ResolvedAnnotation
}

// ErrorValue replaces an argument that could not be evaluated.
type ErrorValue struct {
	Reason string
	Err    error
}

func (LiteralValue) isAnnotationValue() {}
func (EnumValue) isAnnotationValue()    {}
func (ClassValue) isAnnotationValue()   {}
func (ArrayValue) isAnnotationValue()   {}
func (NestedValue) isAnnotationValue()  {}
func (ErrorValue) isAnnotationValue()   {}

// ResolvedArg is one evaluated parameter. Default is set when the value
// came from the parameter's declared default.
type ResolvedArg struct {
	Name    string
	Value   AnnotationValue
	Default bool
}

// ResolvedAnnotation is an evaluated annotation usage.
type ResolvedAnnotation struct {
	Class string
	// Decl is the annotation class, nil when it did not resolve.
	Decl *graph.Declaration
	Args []ResolvedArg
	// Unresolved is set when the annotation class is unknown. Args then
	// holds only the explicit arguments.
	Unresolved bool
	// Err is set by AnnotationsByType for a usage that failed to evaluate.
	Err error
}

// Arg returns the value for the named parameter.
func (a *ResolvedAnnotation) Arg(name string) (AnnotationValue, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// annotationParam is a parameter of an annotation class in primary
// terms.
type annotationParam struct {
	name       string
	typ        types.Type
	def        graph.AnnotationExpr
	hasDefault bool
	vararg     bool
}

func (p annotationParam) isArray() bool {
	return p.vararg || isArrayType(p.typ)
}

func (p annotationParam) optional() bool {
	return p.isArray() || (p.typ != nil && types.IsNullable(p.typ))
}

// Evaluate resolves every parameter of the usage's annotation class from
// the explicit arguments, then declared defaults. A parameter with neither
// is omitted when optional and an ErrorValue otherwise. A usage that
// reaches itself through nested annotations fails with an
// *AnnotationCycleError; a nested usage that fails on its own cycle is an
// ErrorValue in the enclosing one.
func (r *Resolver) Evaluate(u *graph.AnnotationUsage) (*ResolvedAnnotation, error) {
	return r.EvaluateContext(context.Background(), u)
}

// EvaluateContext is Evaluate with a context for constant-expression
// evaluation.
func (r *Resolver) EvaluateContext(ctx context.Context, u *graph.AnnotationUsage) (*ResolvedAnnotation, error) {
	return r.evaluate(ctx, u, set.New[*graph.AnnotationUsage](4))
}

// AnnotationsByType evaluates the annotations of d whose class is fqn, in
// source order. Usages that name an alias of fqn match too. A usage that
// fails keeps its place with Err set, and the failures are joined into the
// returned error.
func (r *Resolver) AnnotationsByType(d *graph.Declaration, fqn string) ([]*ResolvedAnnotation, error) {
	var (
		out  []*ResolvedAnnotation
		errs []error
	)
	for _, u := range d.Annotations() {
		if r.annotationClassName(u.Class) != fqn {
			continue
		}
		ra, err := r.Evaluate(u)
		if err != nil {
			errs = append(errs, err)
			ra = &ResolvedAnnotation{Class: fqn, Err: err}
		}
		out = append(out, ra)
	}
	return out, errors.Join(errs...)
}

func (r *Resolver) annotationClassName(name string) string {
	if d := r.lookup(name); d != nil && d.Kind == graph.KindTypeAlias {
		if t, err := r.ExpandType(types.Class(name)); err == nil {
			if n, ok := t.(*types.Nominal); ok {
				return n.Class
			}
		}
	}
	return name
}

func (r *Resolver) evaluate(ctx context.Context, u *graph.AnnotationUsage, path *set.Set[*graph.AnnotationUsage]) (*ResolvedAnnotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !path.Insert(u) {
		return nil, &AnnotationCycleError{Class: u.Class, usage: u}
	}
	defer path.Remove(u)

	name := r.annotationClassName(u.Class)
	out := &ResolvedAnnotation{Class: name}
	cls := r.lookup(name)
	if cls == nil || cls.Kind != graph.KindAnnotationClass {
		r.log.annotation.Debug("unresolved annotation class", "class", u.Class)
		out.Unresolved = true
		for _, a := range u.Args {
			v, err := r.value(ctx, a.Value, nil, path)
			if err != nil {
				return nil, err
			}
			out.Args = append(out.Args, ResolvedArg{Name: a.Name, Value: v})
		}
		return out, nil
	}
	out.Decl = cls

	params := r.annotationParams(cls)
	explicit := matchArgs(params, u.Args)
	for i, p := range params {
		switch {
		case explicit[i] != nil:
			v, err := r.value(ctx, explicit[i], p.typ, path)
			if err != nil {
				return nil, err
			}
			if p.isArray() {
				v = wrapArray(v)
			}
			out.Args = append(out.Args, ResolvedArg{Name: p.name, Value: v})
		case p.hasDefault:
			v, err := r.value(ctx, p.def, p.typ, path)
			if err != nil {
				return nil, err
			}
			if p.isArray() {
				v = wrapArray(v)
			}
			out.Args = append(out.Args, ResolvedArg{Name: p.name, Value: v, Default: true})
		case p.optional():
		default:
			r.log.annotation.Debug("missing annotation argument", "class", name, "param", p.name)
			out.Args = append(out.Args, ResolvedArg{
				Name:  p.name,
				Value: ErrorValue{Reason: fmt.Sprintf("no value for required parameter %s", p.name)},
			})
		}
	}
	return out, nil
}

// annotationParams lists the parameters of an annotation class: the
// primary constructor's for source classes, the annotation methods for
// platform ones.
func (r *Resolver) annotationParams(cls *graph.Declaration) []annotationParam {
	var out []annotationParam
	if cls.Origin.IsPlatform() {
		for _, m := range cls.Members() {
			if m.Kind != graph.KindFunction || m.Has(graph.ModStatic) {
				continue
			}
			def := m.Details().Default
			var t types.Type
			if m.Type() != nil {
				t = platform.MapType(m.Type(), platform.Hints{Nullness: platform.NotNullAnnotated})
			}
			out = append(out, annotationParam{name: m.Name, typ: t, def: def, hasDefault: def != nil})
		}
		return out
	}
	for _, m := range cls.Members() {
		if m.Kind != graph.KindConstructor {
			continue
		}
		for _, p := range m.Params() {
			out = append(out, annotationParam{
				name:       p.Name,
				typ:        p.Type,
				def:        p.Default,
				hasDefault: p.HasDefault || p.Default != nil,
				vararg:     p.Vararg,
			})
		}
		break
	}
	return out
}

// matchArgs assigns explicit arguments to parameters: named ones by name,
// positional ones in order. Extra positional arguments fold into a
// trailing vararg parameter.
func matchArgs(params []annotationParam, args []graph.AnnotationArg) []graph.AnnotationExpr {
	out := make([]graph.AnnotationExpr, len(params))
	pos := 0
	var spill *graph.Array
	for _, a := range args {
		if a.Name != "" {
			for i, p := range params {
				if p.name == a.Name {
					out[i] = a.Value
					break
				}
			}
			continue
		}
		if pos < len(params) {
			if params[pos].vararg {
				spill = &graph.Array{Elements: []graph.AnnotationExpr{a.Value}}
				out[pos] = spill
			} else {
				out[pos] = a.Value
			}
			pos++
			continue
		}
		if spill != nil {
			spill.Elements = append(spill.Elements, a.Value)
		}
	}
	return out
}

// value evaluates one argument expression. expected may be nil. The error
// is an annotation cycle through a usage still being evaluated further up;
// every other failure is an ErrorValue.
func (r *Resolver) value(ctx context.Context, e graph.AnnotationExpr, expected types.Type, path *set.Set[*graph.AnnotationUsage]) (AnnotationValue, error) {
	switch e := e.(type) {
	case *graph.Literal:
		return LiteralValue{Value: e.Value}, nil
	case *graph.EnumRef:
		return EnumValue{Class: e.Class, Entry: e.Entry}, nil
	case *graph.ClassLiteral:
		return r.classValue(e.Type), nil
	case *graph.Array:
		elem := arrayElement(expected)
		arr := ArrayValue{Elements: make([]AnnotationValue, 0, len(e.Elements))}
		for _, el := range e.Elements {
			v, err := r.value(ctx, el, elem, path)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, v)
		}
		return arr, nil
	case *graph.Nested:
		nested, err := r.evaluate(ctx, e.Usage, path)
		if err != nil {
			var cycle *AnnotationCycleError
			if errors.As(err, &cycle) && path.Contains(cycle.usage) {
				return nil, err
			}
			r.log.annotation.Debug("nested annotation failed", "class", e.Usage.Class, "err", err)
			return ErrorValue{Reason: err.Error(), Err: err}, nil
		}
		return NestedValue{Annotation: nested}, nil
	case *graph.Source:
		v, err := r.engine.evalConst(ctx, e.Text)
		if err != nil {
			r.log.annotation.Debug("constant evaluation failed", "source", e.Text, "err", err)
			return ErrorValue{Reason: "cannot evaluate " + e.Text, Err: err}, nil
		}
		return constantValue(v), nil
	case nil:
		return ErrorValue{Reason: "missing expression"}, nil
	}
	return ErrorValue{Reason: fmt.Sprintf("unsupported expression %T", e)}, nil
}

// classValue keeps the class name of a literal even when it or its
// arguments are unresolved; unresolved arguments become error types.
func (r *Resolver) classValue(t types.Type) AnnotationValue {
	n, ok := t.(*types.Nominal)
	if !ok {
		return ClassValue{Type: t}
	}
	if platform.IsPrimitive(n.Class) || strings.HasPrefix(n.Class, "java.") {
		if m, ok := platform.MapType(n, platform.Hints{Nullness: platform.NotNullAnnotated}).(*types.Nominal); ok {
			n = m
		}
	}
	out := &types.Nominal{Class: n.Class}
	known := r.lookup(n.Class) != nil
	if !known {
		r.log.annotation.Debug("unresolved class literal", "class", n.Class)
	}
	for _, a := range n.Args {
		switch {
		case a.Type == nil:
			out.Args = append(out.Args, a)
		case !known || !r.resolvable(a.Type):
			out.Args = append(out.Args, types.Argument{Projection: a.Projection, Type: r.unresolved(types.Format(a.Type))})
		default:
			out.Args = append(out.Args, a)
		}
	}
	return ClassValue{Type: out}
}

// resolvable reports whether every class t names resolves.
func (r *Resolver) resolvable(t types.Type) bool {
	ok := !types.ContainsError(t)
	types.Walk(t, func(x types.Type) bool {
		if n, isNominal := x.(*types.Nominal); isNominal && r.lookup(n.Class) == nil {
			ok = false
		}
		return ok
	})
	return ok
}

func constantValue(v any) AnnotationValue {
	switch v := v.(type) {
	case []any:
		arr := ArrayValue{Elements: make([]AnnotationValue, 0, len(v))}
		for _, el := range v {
			arr.Elements = append(arr.Elements, constantValue(el))
		}
		return arr
	case int:
		return LiteralValue{Value: int64(v)}
	}
	return LiteralValue{Value: v}
}

func wrapArray(v AnnotationValue) AnnotationValue {
	switch v.(type) {
	case ArrayValue, ErrorValue:
		return v
	}
	return ArrayValue{Elements: []AnnotationValue{v}}
}

func isArrayType(t types.Type) bool {
	if f, ok := t.(*types.Flexible); ok {
		t = f.Lower
	}
	n, ok := t.(*types.Nominal)
	if !ok {
		return false
	}
	pkg, name := graph.PackageOf(n.Class)
	return pkg == "kotlin" && strings.HasSuffix(name, "Array")
}

func arrayElement(t types.Type) types.Type {
	if f, ok := t.(*types.Flexible); ok {
		t = f.Lower
	}
	if n, ok := t.(*types.Nominal); ok && n.Class == "kotlin.Array" && len(n.Args) == 1 {
		return n.Args[0].Type
	}
	return nil
}
