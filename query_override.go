package trellis

import (
	"github.com/jward/trellis/internal/graph"
	tlog "github.com/jward/trellis/internal/log"
	"github.com/jward/trellis/internal/types"
)

// overrideFamily groups kinds that may override each other.
func overrideFamily(d *graph.Declaration) string {
	switch d.Kind {
	case graph.KindFunction:
		return "function"
	case graph.KindProperty:
		return "property"
	}
	return ""
}

// declaresOverride reports an explicit override marker: the override
// modifier, or the platform @Override annotation.
func declaresOverride(d *graph.Declaration) bool {
	if d.Has(graph.ModOverride) {
		return true
	}
	if !d.Origin.IsPlatform() {
		return false
	}
	for _, a := range d.Annotations() {
		if a.Class == "java.lang.Override" {
			return true
		}
	}
	return false
}

// OverridesMember reports whether candidate overrides target: same name
// and kind family, target inheritable and declared in a proper supertype of
// candidate's container, and signatures compatible after substitution.
func (r *Resolver) OverridesMember(candidate, target *graph.Declaration) bool {
	if candidate == target || candidate.Name != target.Name {
		return false
	}
	fam := overrideFamily(candidate)
	if fam == "" || fam != overrideFamily(target) {
		return false
	}
	if target.Visibility == graph.Private || target.Has(graph.ModStatic) || candidate.Has(graph.ModStatic) {
		return false
	}
	if target.Visibility == graph.PackagePrivate && target.Package != candidate.Package {
		return false
	}
	cc, tc := graph.Container(candidate), graph.Container(target)
	if cc == nil || tc == nil {
		return false
	}
	anc, found, _ := r.findAncestor(cc, tc)
	if !found {
		return false
	}
	return r.signaturesCompatible(candidate, target, anc.subst)
}

// signaturesCompatible compares candidate with target seen through subst,
// the binding of target's container parameters from candidate's container.
func (r *Resolver) signaturesCompatible(candidate, target *graph.Declaration, subst types.Substitution) bool {
	cp, tp := candidate.Params(), target.Params()
	ctps, ttps := candidate.TypeParams(), target.TypeParams()
	if len(cp) != len(tp) || len(ctps) != len(ttps) {
		return false
	}
	cRecv, tRecv := candidate.Details().Receiver, target.Details().Receiver
	if (cRecv == nil) != (tRecv == nil) {
		return false
	}

	// The target's own type parameters are renamed to the candidate's.
	for i, p := range ttps {
		subst = subst.With(p, types.Ref(ctps[i]))
	}
	for i := range cp {
		if !r.sameType(r.paramType(candidate, cp[i]), subst.Apply(r.paramType(target, tp[i]))) {
			return false
		}
	}
	if cRecv != nil && !r.sameType(cRecv, subst.Apply(tRecv)) {
		return false
	}

	cr, tr := r.declaredType(candidate), subst.Apply(r.declaredType(target))
	if target.Kind == graph.KindProperty && target.Has(graph.ModVar) {
		return r.sameType(cr, tr)
	}
	return r.IsSubtype(cr, tr)
}

// sameType is equality after alias expansion. A flexible type on either
// side matches every nullability variant of its bounds. A type whose
// aliases do not expand matches nothing.
func (r *Resolver) sameType(a, b types.Type) bool {
	ea, err := r.ExpandType(a)
	if err == nil {
		var eb types.Type
		if eb, err = r.ExpandType(b); err == nil {
			return types.EqualModuloFlexibility(ea, eb)
		}
	}
	r.log.override.Debug("alias expansion failed", "a", tlog.Type(a), "b", tlog.Type(b), "err", err)
	return false
}

// Overrides reports whether candidate overrides some member of the class
// inSupertype, which must be a proper supertype of candidate's container.
func (r *Resolver) Overrides(candidate, inSupertype *graph.Declaration) bool {
	cc := graph.Container(candidate)
	if cc == nil {
		return false
	}
	if _, found, _ := r.findAncestor(cc, inSupertype); !found {
		return false
	}
	classes := []*graph.Declaration{inSupertype}
	anc, _ := r.ancestors(inSupertype)
	for _, a := range anc {
		classes = append(classes, a.decl)
	}
	for _, c := range classes {
		for _, m := range c.Members() {
			if r.OverridesMember(candidate, m) {
				return true
			}
		}
	}
	return false
}

// FindOverridden returns every declaration candidate overrides, nearest
// first, following the breadth-first supertype linearization. When the
// candidate is marked override and the result is empty, the error is an
// *OverrideInconsistencyError, unless the linearization is broken (an
// unresolved or cyclic supertype), where the empty result stands alone.
func (r *Resolver) FindOverridden(candidate *graph.Declaration) ([]*graph.Declaration, error) {
	var out []*graph.Declaration
	broken := false
	cc := graph.Container(candidate)
	if cc != nil && overrideFamily(candidate) != "" && !candidate.Has(graph.ModStatic) {
		var anc []ancestor
		anc, broken = r.ancestors(cc)
		for _, a := range anc {
			for _, m := range a.decl.Members() {
				if r.OverridesMember(candidate, m) {
					out = append(out, m)
				}
			}
		}
	}
	if len(out) == 0 && declaresOverride(candidate) {
		if broken {
			// The overridden member may sit behind the broken supertype.
			r.log.override.Debug("override target unknown", "decl", candidate.ID)
			return out, nil
		}
		r.log.override.Warn("override inconsistency", "decl", candidate.ID)
		return out, &OverrideInconsistencyError{Decl: candidate.ID}
	}
	return out, nil
}

// FindOverridee returns the nearest declaration candidate overrides, or
// nil.
func (r *Resolver) FindOverridee(candidate *graph.Declaration) *graph.Declaration {
	out, _ := r.FindOverridden(candidate)
	if len(out) == 0 {
		return nil
	}
	return out[0]
}

// CheckOverrides returns the override inconsistencies among the members of
// every classifier in m, in declaration order.
func (r *Resolver) CheckOverrides(m *graph.Module) []*OverrideInconsistencyError {
	var out []*OverrideInconsistencyError
	for _, c := range m.Classifiers() {
		for _, mem := range c.Members() {
			if !declaresOverride(mem) {
				continue
			}
			if _, err := r.FindOverridden(mem); err != nil {
				if oe, ok := err.(*OverrideInconsistencyError); ok {
					out = append(out, oe)
				}
			}
		}
	}
	return out
}
