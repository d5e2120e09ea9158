package trellis

import (
	set "github.com/hashicorp/go-set/v3"

	"github.com/jward/trellis/internal/graph"
	tlog "github.com/jward/trellis/internal/log"
	"github.com/jward/trellis/internal/platform"
	"github.com/jward/trellis/internal/types"
)

// ancestor is one proper supertype of a classifier, as seen from it.
type ancestor struct {
	decl *graph.Declaration
	// typ is the supertype expressed in the root's type parameters.
	typ *types.Nominal
	// subst binds decl's type parameters.
	subst types.Substitution
}

type linearization struct {
	list   []ancestor
	broken bool
}

// ancestors linearizes the supertypes of d breadth-first: direct
// supertypes in declared order, then theirs, keeping each class's first
// visit. broken reports an unresolved or error supertype on the way, or a
// supertype edge leading back to d.
func (r *Resolver) ancestors(d *graph.Declaration) ([]ancestor, bool) {
	key := r.name + "|" + declKey(d)
	if r.engine.cache {
		if v, ok := r.engine.ancestors.Load(key); ok {
			l := v.(linearization)
			return l.list, l.broken
		}
	}

	type item struct {
		decl  *graph.Declaration
		subst types.Substitution
	}
	visited := set.New[string](8)
	visited.Insert(d.QualifiedName)
	queue := []item{{decl: d, subst: types.NewSubstitution()}}
	var out []ancestor
	broken := false
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, st := range r.supertypesOf(cur.decl) {
			st = cur.subst.Apply(st)
			cls, n := r.classOf(st)
			if cls == nil || !cls.Kind.IsClassifier() {
				broken = true
				r.log.member.Debug("unresolved supertype", "decl", cur.decl.ID, "type", tlog.Type(st))
				continue
			}
			if cls == d || cls == cur.decl {
				// The hierarchy leads back to itself.
				broken = true
				r.log.member.Debug("supertype cycle", "decl", d.ID, "through", cur.decl.ID)
				continue
			}
			if !visited.Insert(cls.QualifiedName) {
				continue
			}
			sub := types.Bind(cls.TypeParams(), n.Args)
			out = append(out, ancestor{decl: cls, typ: n, subst: sub})
			queue = append(queue, item{decl: cls, subst: sub})
		}
	}

	if r.engine.cache {
		r.engine.ancestors.Store(key, linearization{list: out, broken: broken})
	}
	return out, broken
}

// findAncestor returns the ancestor of d declared by target.
func (r *Resolver) findAncestor(d, target *graph.Declaration) (ancestor, bool, bool) {
	anc, broken := r.ancestors(d)
	for _, a := range anc {
		if a.decl == target || a.decl.QualifiedName == target.QualifiedName {
			return a, true, broken
		}
	}
	return ancestor{}, false, broken
}

// supertypesOf returns d's declared supertypes in primary-language terms:
// platform supertypes go through the bridge, a broken declaration has a
// single error supertype.
func (r *Resolver) supertypesOf(d *graph.Declaration) []types.Type {
	det := d.Details()
	if det.Broken {
		r.log.member.Debug("stub failed to load", "decl", d.ID, "err", d.LoadError())
		return []types.Type{types.Errorf("unresolved declaration " + d.ID)}
	}
	if !d.Origin.IsPlatform() {
		return det.Supertypes
	}
	out := make([]types.Type, len(det.Supertypes))
	for i, st := range det.Supertypes {
		out[i] = platform.MapType(st, platform.Hints{Nullness: platform.NotNullAnnotated})
	}
	return out
}

// IsSubtype reports whether a is a subtype of b. It accounts for
// declaration-site and use-site variance, star projections, nullability,
// Nothing and Any, flexible bounds and function types. Error types are
// never subtypes of anything.
func (r *Resolver) IsSubtype(a, b types.Type) bool {
	return r.isSubtype(a, b, set.New[string](4))
}

// IsAssignableFrom reports whether a value of type source can be assigned
// to target.
func (r *Resolver) IsAssignableFrom(target, source types.Type) bool {
	return r.IsSubtype(source, target)
}

func (r *Resolver) isSubtype(a, b types.Type, visiting *set.Set[string]) bool {
	if a == nil || b == nil || types.ContainsError(a) || types.ContainsError(b) {
		return false
	}
	if fb, ok := b.(*types.Flexible); ok {
		return r.isSubtype(a, fb.Upper, visiting)
	}
	if fa, ok := a.(*types.Flexible); ok {
		return r.isSubtype(fa.Lower, b, visiting)
	}
	if types.IsNullable(a) && !types.IsNullable(b) {
		return false
	}
	if na, ok := a.(*types.Nominal); ok && na.Class == "kotlin.Nothing" {
		return true
	}
	if nb, ok := b.(*types.Nominal); ok && nb.Class == "kotlin.Any" {
		return true
	}

	switch a := a.(type) {
	case *types.ParamRef:
		if pb, ok := b.(*types.ParamRef); ok && pb.Param.ID == a.Param.ID {
			return true
		}
		if !visiting.Insert(a.Param.ID) {
			return false
		}
		defer visiting.Remove(a.Param.ID)
		for _, bound := range a.Param.Bounds {
			if r.isSubtype(types.MakeNotNull(bound), types.MakeNotNull(b), visiting) {
				return true
			}
		}
		return false
	case *types.Function:
		fb, ok := b.(*types.Function)
		if !ok || len(a.Params) != len(fb.Params) || (a.Receiver == nil) != (fb.Receiver == nil) {
			return false
		}
		if a.Receiver != nil && !r.isSubtype(fb.Receiver, a.Receiver, visiting) {
			return false
		}
		for i := range a.Params {
			if !r.isSubtype(fb.Params[i], a.Params[i], visiting) {
				return false
			}
		}
		return r.isSubtype(a.Return, fb.Return, visiting)
	case *types.Nominal:
		nb, ok := b.(*types.Nominal)
		if !ok {
			return false
		}
		return r.nominalSubtype(a, nb, visiting)
	}
	return false
}

func (r *Resolver) nominalSubtype(a, b *types.Nominal, visiting *set.Set[string]) bool {
	ca, ea := r.classOf(a)
	cb, eb := r.classOf(b)
	if ca == nil || cb == nil {
		return false
	}
	if ca.QualifiedName == cb.QualifiedName {
		return r.argsSubtype(cb.TypeParams(), ea.Args, eb.Args, visiting)
	}
	anc, found, _ := r.findAncestor(ca, cb)
	if !found {
		return false
	}
	super, ok := types.Bind(ca.TypeParams(), ea.Args).Apply(anc.typ).(*types.Nominal)
	if !ok {
		return false
	}
	return r.argsSubtype(cb.TypeParams(), super.Args, eb.Args, visiting)
}

// argsSubtype checks type arguments pairwise under each parameter's
// declaration-site variance combined with the use-site projection.
func (r *Resolver) argsSubtype(params []*types.TypeParameter, as, bs []types.Argument, visiting *set.Set[string]) bool {
	if len(as) != len(bs) {
		return len(bs) == 0
	}
	for i := range bs {
		a, b := as[i], bs[i]
		if b.Projection == types.Star || b.Type == nil {
			continue
		}
		if a.Projection == types.Star || a.Type == nil {
			return false
		}
		variance := b.Projection
		if variance == types.Invariant && i < len(params) {
			variance = params[i].Variance
		}
		switch variance {
		case types.Out:
			if a.Projection == types.In || !r.isSubtype(a.Type, b.Type, visiting) {
				return false
			}
		case types.In:
			if a.Projection == types.Out || !r.isSubtype(b.Type, a.Type, visiting) {
				return false
			}
		default:
			if a.Projection != types.Invariant {
				return false
			}
			if !r.isSubtype(a.Type, b.Type, visiting) || !r.isSubtype(b.Type, a.Type, visiting) {
				return false
			}
		}
	}
	return true
}
