package trellis

import (
	"github.com/jward/trellis/internal/graph"
	tlog "github.com/jward/trellis/internal/log"
	"github.com/jward/trellis/internal/types"
)

// AsMemberOf returns the type decl has when accessed through receiver: the
// declared type with every type parameter of decl's container chain
// replaced by the receiver's (possibly inherited) type arguments.
//
// Properties yield their type, functions and accessors a function type,
// constructors a function type returning the receiver. A receiver that is
// not a subtype of decl's container is a *NotMemberError. An error-typed
// receiver, or an unresolved supertype on the search path, yields an error
// type and no error.
func (r *Resolver) AsMemberOf(decl *graph.Declaration, receiver types.Type) (types.Type, error) {
	key, cacheable := "", false
	if r.engine.cache {
		if k, ok := types.Key(receiver); ok {
			key, cacheable = r.name+"|"+declKey(decl)+"|"+k, true
			if v, ok := r.engine.members.Load(key); ok {
				return v.(types.Type), nil
			}
		}
	}
	t, err := r.asMemberOf(decl, receiver)
	if err != nil {
		return t, err
	}
	if types.IsError(t) {
		r.log.member.Debug("error type", "decl", decl.ID, "receiver", tlog.Type(receiver), "result", tlog.Type(t))
	} else if cacheable {
		r.engine.members.Store(key, t)
	}
	return t, nil
}

func (r *Resolver) asMemberOf(decl *graph.Declaration, receiver types.Type) (types.Type, error) {
	container := graph.Container(decl)
	if container == nil {
		return nil, &NotMemberError{Decl: decl.ID, Receiver: types.Format(receiver)}
	}
	n, errType := r.receiverNominal(receiver)
	if errType != nil {
		return errType, nil
	}
	if n == nil {
		return nil, &NotMemberError{Decl: decl.ID, Receiver: types.Format(receiver)}
	}
	cls, expanded := r.classOf(n)
	if cls == nil {
		return r.unresolved(n.Class), nil
	}
	if cls != container && cls.QualifiedName == container.QualifiedName {
		// Same name declared in another module: bind against the container.
		cls = container
	}

	// Bind the receiver's arguments, then compose with the path from the
	// receiver class up to the container.
	subst := types.Bind(cls.TypeParams(), expanded.Args)
	if cls != container {
		anc, found, broken := r.findAncestor(cls, container)
		if !found {
			if broken {
				return types.Errorf("unresolved supertype of " + cls.QualifiedName), nil
			}
			return nil, &NotMemberError{Decl: decl.ID, Receiver: types.Format(receiver)}
		}
		subst = anc.subst.Compose(subst)
	}
	return subst.Apply(r.memberSignature(decl, types.MakeNotNull(expanded))), nil
}

// receiverNominal reduces a receiver to the nominal type it is accessed
// through. Error receivers return an error type.
func (r *Resolver) receiverNominal(receiver types.Type) (*types.Nominal, types.Type) {
	for i := 0; i < 16; i++ {
		switch t := receiver.(type) {
		case *types.Nominal:
			return t, nil
		case *types.Flexible:
			receiver = t.Lower
		case *types.ParamRef:
			if len(t.Param.Bounds) == 0 {
				return &types.Nominal{Class: "kotlin.Any"}, nil
			}
			receiver = t.Param.Bounds[0]
		case *types.Error:
			return nil, t
		case nil:
			return nil, types.Errorf("nil receiver")
		default:
			return nil, nil
		}
	}
	return nil, types.Errorf("receiver bound chain too deep")
}

// memberSignature is decl's declared type before substitution: a property
// type, or a function type for callables.
func (r *Resolver) memberSignature(decl *graph.Declaration, receiver types.Type) types.Type {
	switch decl.Kind {
	case graph.KindProperty:
		return r.declaredType(decl)
	case graph.KindEnumEntry:
		return types.Class(graph.Container(decl).QualifiedName)
	case graph.KindConstructor:
		return &types.Function{Params: r.paramTypes(decl), Return: receiver}
	case graph.KindFunction, graph.KindGetter, graph.KindSetter:
		f := &types.Function{
			Receiver: decl.Details().Receiver,
			Params:   r.paramTypes(decl),
			Return:   r.declaredType(decl),
		}
		if decl.Has(graph.ModSuspend) {
			f.Suspend = true
		}
		return f
	}
	return types.Errorf(decl.ID + " has no member type")
}

func (r *Resolver) paramTypes(decl *graph.Declaration) []types.Type {
	params := decl.Params()
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = r.paramType(decl, p)
	}
	return out
}
