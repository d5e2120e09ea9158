package trellis

import "github.com/jward/trellis/internal/graph"

// SealedSubclasses returns the direct subclasses of a sealed class or
// interface, in declaration order. Transitive descendants are not
// included. The result is empty for declarations that are not sealed.
func (r *Resolver) SealedSubclasses(d *graph.Declaration) []*graph.Declaration {
	if d.Modality != graph.Sealed || !d.Kind.IsClassifier() {
		return nil
	}
	var out []*graph.Declaration
	for _, sub := range r.graph.DirectSubclasses(d) {
		// Enum entries subclass their enum, not a sealed hierarchy.
		if sub.Kind == graph.KindEnumEntry {
			continue
		}
		out = append(out, sub)
	}
	return out
}

// DirectSubclasses returns every classifier in the graph that names d as a
// direct supertype.
func (r *Resolver) DirectSubclasses(d *graph.Declaration) []*graph.Declaration {
	return r.graph.DirectSubclasses(d)
}
