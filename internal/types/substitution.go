package types

import (
	"strings"

	"github.com/benbjohnson/immutable"
)

// Substitution maps type-parameter IDs to types. It is a persistent value:
// With returns a new substitution and leaves the receiver untouched, so
// partial maps can be shared freely while walking a supertype chain.
type Substitution struct {
	m *immutable.SortedMap[string, Type]
}

// NewSubstitution returns an empty substitution.
func NewSubstitution() Substitution {
	return Substitution{m: immutable.NewSortedMap[string, Type](nil)}
}

// Bind pairs params with args positionally. Params without a matching
// argument are bound to an error type, keeping the result total over params.
func Bind(params []*TypeParameter, args []Argument) Substitution {
	s := NewSubstitution()
	for i, p := range params {
		if i >= len(args) {
			s = s.With(p, Errorf("missing type argument for "+p.Name))
			continue
		}
		a := args[i]
		if a.Projection == Star || a.Type == nil {
			s = s.With(p, starApproximation(p))
			continue
		}
		s = s.With(p, a.Type)
	}
	return s
}

// starApproximation is the type a star-projected argument stands for when it
// is read: the parameter's first bound, or Any? when unbounded.
func starApproximation(p *TypeParameter) Type {
	if len(p.Bounds) > 0 {
		return p.Bounds[0]
	}
	return &Nominal{Class: "kotlin.Any", Nullable: true}
}

func (s Substitution) sorted() *immutable.SortedMap[string, Type] {
	if s.m == nil {
		return immutable.NewSortedMap[string, Type](nil)
	}
	return s.m
}

// With returns s extended with p -> t.
func (s Substitution) With(p *TypeParameter, t Type) Substitution {
	return Substitution{m: s.sorted().Set(p.ID, t)}
}

// Lookup returns the type bound to p.
func (s Substitution) Lookup(p *TypeParameter) (Type, bool) {
	if s.m == nil {
		return nil, false
	}
	return s.m.Get(p.ID)
}

// Len reports the number of bindings.
func (s Substitution) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Each calls fn for every binding in key order.
func (s Substitution) Each(fn func(id string, t Type)) {
	if s.m == nil {
		return
	}
	itr := s.m.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		fn(k, v)
	}
}

// Compose returns the substitution equivalent to applying s and then outer.
// Bindings of outer for parameters that s does not mention are kept.
func (s Substitution) Compose(outer Substitution) Substitution {
	res := outer.sorted()
	s.Each(func(id string, t Type) {
		res = res.Set(id, outer.Apply(t))
	})
	return Substitution{m: res}
}

// Apply substitutes s into t.
func (s Substitution) Apply(t Type) Type {
	return Substitute(t, s)
}

func (s Substitution) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	s.Each(func(id string, t Type) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(id)
		sb.WriteString(" -> ")
		sb.WriteString(Format(t))
	})
	sb.WriteByte('}')
	return sb.String()
}

// Substitute rewrites every type-parameter reference in t that m binds.
// Unbound parameters are left as they are. The nullability of a reference
// combines with the replacement: T? makes it nullable, T & Any makes it
// non-null, plain T keeps the replacement's own nullability.
func Substitute(t Type, m Substitution) Type {
	if t == nil || m.Len() == 0 {
		return t
	}
	switch t := t.(type) {
	case *Nominal:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]Argument, len(t.Args))
		for i, a := range t.Args {
			args[i] = a
			if a.Type != nil {
				args[i].Type = Substitute(a.Type, m)
			}
		}
		return &Nominal{Class: t.Class, Args: args, Nullable: t.Nullable}
	case *ParamRef:
		r, ok := m.Lookup(t.Param)
		if !ok {
			return t
		}
		switch t.Nullability {
		case Nullable:
			return MakeNullable(r)
		case NotNull:
			return MakeNotNull(r)
		}
		return r
	case *Function:
		f := &Function{Nullable: t.Nullable, Suspend: t.Suspend}
		if t.Receiver != nil {
			f.Receiver = Substitute(t.Receiver, m)
		}
		f.Params = make([]Type, len(t.Params))
		for i, p := range t.Params {
			f.Params[i] = Substitute(p, m)
		}
		f.Return = Substitute(t.Return, m)
		return f
	case *Flexible:
		return &Flexible{Lower: Substitute(t.Lower, m), Upper: Substitute(t.Upper, m)}
	}
	return t
}
