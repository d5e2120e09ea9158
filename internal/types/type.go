// Package types is the immutable value model for types: nominal references,
// type-parameter references, function types, error markers and flexible
// (platform) types, together with substitution over them.
package types

// Type is a closed set of type forms. The concrete implementations are
// *Nominal, *ParamRef, *Function, *Error and *Flexible.
type Type interface {
	isType()
}

// Variance is both a declaration-site property of a type parameter and a
// use-site projection on a type argument.
type Variance int

const (
	Invariant Variance = iota
	Out
	In
	Star
)

func (v Variance) String() string {
	switch v {
	case Out:
		return "out"
	case In:
		return "in"
	case Star:
		return "*"
	}
	return ""
}

// Nullability of a type-parameter reference. Inherit means the reference
// takes whatever nullability the substituted type has.
type Nullability int

const (
	Inherit Nullability = iota
	Nullable
	NotNull
)

// TypeParameter is a declared type parameter. Owner is the ID of the
// declaring class, function or alias.
type TypeParameter struct {
	ID       string
	Name     string
	Variance Variance
	Bounds   []Type
	Owner    string
	Reified  bool
}

// Argument is one type argument of a nominal reference.
type Argument struct {
	Projection Variance
	Type       Type // nil for star projections
}

// Nominal references a classifier by qualified name.
type Nominal struct {
	Class    string
	Args     []Argument
	Nullable bool
}

// ParamRef references a type parameter.
type ParamRef struct {
	Param       *TypeParameter
	Nullability Nullability
}

// Function is a function type, optionally with an extension receiver.
type Function struct {
	Receiver Type
	Params   []Type
	Return   Type
	Nullable bool
	Suspend  bool
}

// Error marks an unresolved or erroneous type. Two errors are never equal.
type Error struct {
	Reason string
}

// Flexible is a platform type whose nullability is unknown: any type
// between Lower and Upper is acceptable.
type Flexible struct {
	Lower Type
	Upper Type
}

func (*Nominal) isType()  {}
func (*ParamRef) isType() {}
func (*Function) isType() {}
func (*Error) isType()    {}
func (*Flexible) isType() {}

// Class builds a non-null nominal reference with invariant arguments.
func Class(name string, args ...Type) *Nominal {
	n := &Nominal{Class: name}
	for _, a := range args {
		n.Args = append(n.Args, Argument{Type: a})
	}
	return n
}

// Ref builds a plain reference to p.
func Ref(p *TypeParameter) *ParamRef {
	return &ParamRef{Param: p}
}

// Errorf builds an error type.
func Errorf(reason string) *Error {
	return &Error{Reason: reason}
}

// IsError reports whether t is an error type at the top level.
func IsError(t Type) bool {
	_, ok := t.(*Error)
	return ok
}

// ContainsError reports whether an error type occurs anywhere inside t.
func ContainsError(t Type) bool {
	found := false
	Walk(t, func(t Type) bool {
		if _, ok := t.(*Error); ok {
			found = true
		}
		return !found
	})
	return found
}

// IsNullable reports whether null is a value of t. Flexible types are
// nullable when their upper bound is.
func IsNullable(t Type) bool {
	switch t := t.(type) {
	case *Nominal:
		return t.Nullable
	case *ParamRef:
		if t.Nullability == Nullable {
			return true
		}
		if t.Nullability == NotNull {
			return false
		}
		if len(t.Param.Bounds) == 0 {
			return true
		}
		for _, b := range t.Param.Bounds {
			if !IsNullable(b) {
				return false
			}
		}
		return true
	case *Function:
		return t.Nullable
	case *Flexible:
		return IsNullable(t.Upper)
	}
	return false
}

// MakeNullable returns the nullable variant of t.
func MakeNullable(t Type) Type {
	switch t := t.(type) {
	case *Nominal:
		if t.Nullable {
			return t
		}
		c := *t
		c.Nullable = true
		return &c
	case *ParamRef:
		return &ParamRef{Param: t.Param, Nullability: Nullable}
	case *Function:
		if t.Nullable {
			return t
		}
		c := *t
		c.Nullable = true
		return &c
	case *Flexible:
		return MakeNullable(t.Upper)
	}
	return t
}

// MakeNotNull returns the definitely non-null variant of t.
func MakeNotNull(t Type) Type {
	switch t := t.(type) {
	case *Nominal:
		if !t.Nullable {
			return t
		}
		c := *t
		c.Nullable = false
		return &c
	case *ParamRef:
		return &ParamRef{Param: t.Param, Nullability: NotNull}
	case *Function:
		if !t.Nullable {
			return t
		}
		c := *t
		c.Nullable = false
		return &c
	case *Flexible:
		return MakeNotNull(t.Lower)
	}
	return t
}

// Walk visits t and every type nested in it in pre-order. Returning false
// from fn stops descent into the current node's children.
func Walk(t Type, fn func(Type) bool) {
	if t == nil || !fn(t) {
		return
	}
	switch t := t.(type) {
	case *Nominal:
		for _, a := range t.Args {
			if a.Type != nil {
				Walk(a.Type, fn)
			}
		}
	case *Function:
		if t.Receiver != nil {
			Walk(t.Receiver, fn)
		}
		for _, p := range t.Params {
			Walk(p, fn)
		}
		Walk(t.Return, fn)
	case *Flexible:
		Walk(t.Lower, fn)
		Walk(t.Upper, fn)
	}
}

// FreeParams returns the type parameters referenced by t, in order of first
// occurrence.
func FreeParams(t Type) []*TypeParameter {
	var out []*TypeParameter
	seen := map[string]bool{}
	Walk(t, func(t Type) bool {
		if r, ok := t.(*ParamRef); ok && !seen[r.Param.ID] {
			seen[r.Param.ID] = true
			out = append(out, r.Param)
		}
		return true
	})
	return out
}
