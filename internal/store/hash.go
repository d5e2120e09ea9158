package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ComputeSignatureHash computes a deterministic hash from a declaration's
// semantic identity. Covers: qualified name, kind, visibility, modality,
// modifiers, type, receiver, supertypes, params and type params. Ordinals
// and annotation ordering do NOT affect the hash.
func ComputeSignatureHash(d *Declaration, typeParams []*TypeParam, supertypes []*Supertype, params []*Param) string {
	h := sha256.New()

	fmt.Fprintf(h, "qname:%s\n", d.QualifiedName)
	fmt.Fprintf(h, "kind:%s\n", d.Kind)
	fmt.Fprintf(h, "visibility:%s\n", d.Visibility)
	fmt.Fprintf(h, "modality:%s\n", d.Modality)

	sorted := make([]string, len(d.Modifiers))
	copy(sorted, d.Modifiers)
	sort.Strings(sorted)
	fmt.Fprintf(h, "modifiers:%s\n", strings.Join(sorted, ","))
	fmt.Fprintf(h, "type:%s\n", d.TypeJSON)
	fmt.Fprintf(h, "receiver:%s\n", d.ReceiverJSON)

	tps := append([]*TypeParam(nil), typeParams...)
	sort.Slice(tps, func(i, j int) bool { return tps[i].Ordinal < tps[j].Ordinal })
	for _, tp := range tps {
		fmt.Fprintf(h, "typeparam:%s:%d:%v:%s\n", tp.Name, tp.Variance, tp.Reified, tp.BoundsJSON)
	}

	// Supertype order is not semantic.
	sts := make([]string, len(supertypes))
	for i, st := range supertypes {
		sts[i] = st.TypeJSON
	}
	sort.Strings(sts)
	for _, st := range sts {
		fmt.Fprintf(h, "supertype:%s\n", st)
	}

	ps := append([]*Param(nil), params...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Ordinal < ps[j].Ordinal })
	for _, p := range ps {
		fmt.Fprintf(h, "param:%s:%d:%s:%v:%v\n", p.Name, p.Ordinal, p.TypeJSON, p.Vararg, p.HasDefault)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
