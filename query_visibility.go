package trellis

import "github.com/jward/trellis/internal/graph"

// EffectiveVisibility returns the visibility of d as seen from module from:
// the narrowest visibility along d's containment chain, where internal
// counts as private outside the declaring module and its friends. A
// declaration outside from's dependency closure is private. A nil from
// means the resolver's own module.
func (r *Resolver) EffectiveVisibility(d *graph.Declaration, from *graph.Module) graph.Visibility {
	if from == nil {
		from = r.module
	}
	if from != nil && d.Module != nil && !r.graph.Reachable(from, d.Module) {
		return graph.Private
	}
	friend := from == nil || d.Module == nil || d.Module.IsFriend(from)
	vis := graph.Public
	for x := d; x != nil; x = x.Parent {
		v := x.Visibility
		if v == graph.Internal && !friend {
			v = graph.Private
		}
		if v.Rank() < vis.Rank() {
			vis = v
		}
	}
	return vis
}
