package trellis

import (
	set "github.com/hashicorp/go-set/v3"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// Expand applies the type alias to args and expands the result fully:
// aliases nested in the right-hand side or in the arguments are expanded
// too. Missing arguments become error types. A cycle is an
// *AliasCycleError.
func (r *Resolver) Expand(alias *graph.Declaration, args []types.Argument) (types.Type, error) {
	if alias.Kind != graph.KindTypeAlias {
		return nil, &UnresolvedReferenceError{Name: alias.QualifiedName + " (not a type alias)", Module: r.name}
	}
	var path []string
	return r.expandAlias(alias, args, set.New[string](4), &path)
}

// ExpandType expands every alias reference inside t.
func (r *Resolver) ExpandType(t types.Type) (types.Type, error) {
	var path []string
	return r.expand(t, set.New[string](4), &path)
}

// AliasEqual reports whether a and b are equal after full alias
// expansion.
func (r *Resolver) AliasEqual(a, b types.Type) (bool, error) {
	ea, err := r.ExpandType(a)
	if err != nil {
		return false, err
	}
	eb, err := r.ExpandType(b)
	if err != nil {
		return false, err
	}
	return types.Equal(ea, eb), nil
}

func (r *Resolver) expand(t types.Type, visiting *set.Set[string], path *[]string) (types.Type, error) {
	switch t := t.(type) {
	case *types.Nominal:
		args := make([]types.Argument, len(t.Args))
		for i, a := range t.Args {
			args[i] = a
			if a.Type == nil {
				continue
			}
			et, err := r.expand(a.Type, visiting, path)
			if err != nil {
				return nil, err
			}
			args[i].Type = et
		}
		if d := r.lookup(t.Class); d != nil && d.Kind == graph.KindTypeAlias {
			out, err := r.expandAlias(d, args, visiting, path)
			if err != nil {
				return nil, err
			}
			if t.Nullable {
				out = types.MakeNullable(out)
			}
			return out, nil
		}
		return &types.Nominal{Class: t.Class, Args: args, Nullable: t.Nullable}, nil
	case *types.Function:
		out := &types.Function{Nullable: t.Nullable, Suspend: t.Suspend}
		var err error
		if t.Receiver != nil {
			if out.Receiver, err = r.expand(t.Receiver, visiting, path); err != nil {
				return nil, err
			}
		}
		for _, p := range t.Params {
			ep, err := r.expand(p, visiting, path)
			if err != nil {
				return nil, err
			}
			out.Params = append(out.Params, ep)
		}
		if out.Return, err = r.expand(t.Return, visiting, path); err != nil {
			return nil, err
		}
		return out, nil
	case *types.Flexible:
		lo, err := r.expand(t.Lower, visiting, path)
		if err != nil {
			return nil, err
		}
		up, err := r.expand(t.Upper, visiting, path)
		if err != nil {
			return nil, err
		}
		return &types.Flexible{Lower: lo, Upper: up}, nil
	}
	return t, nil
}

func (r *Resolver) expandAlias(alias *graph.Declaration, args []types.Argument, visiting *set.Set[string], path *[]string) (types.Type, error) {
	*path = append(*path, alias.QualifiedName)
	defer func() { *path = (*path)[:len(*path)-1] }()
	if !visiting.Insert(alias.QualifiedName) {
		cycle := append([]string{}, *path...)
		return nil, &AliasCycleError{Path: cycle}
	}
	defer visiting.Remove(alias.QualifiedName)

	rhs := alias.Type()
	if rhs == nil {
		return r.unresolved(alias.QualifiedName), nil
	}
	bound := types.Bind(alias.TypeParams(), args)
	return r.expand(bound.Apply(rhs), visiting, path)
}
