// Package trellis resolves symbols and types over a multi-module
// declaration graph that mixes two interoperating type systems: a primary
// language with null-safety, sealed hierarchies and type aliases, and a
// platform language with its own classes, interfaces and generics.
//
// # Pipeline
//
// Trellis works on a graph that is already built:
//
//  1. Build: assemble modules and declarations with graph.Builder, or index
//     platform sources with the javasrc loader. Declarations may be stubs
//     whose details load on first access.
//
//  2. Query: create an [Engine] over the graph and ask a [Resolver] (one per
//     querying module) structural and type-theoretic questions.
//
// A graph can be written to SQLite with [Engine.Save] and reopened lazily
// with [Open].
//
// # Usage
//
//	e := trellis.New(g, trellis.WithLogger(logger))
//	r, err := e.Query("app")
//	if err != nil { ... }
//
//	list, _ := r.ClassByName("kotlin.collections.List")
//	get := r.FunctionsByName("kotlin.collections.List.get")[0]
//	t, err := r.AsMemberOf(get, types.MustParse("kotlin.collections.List<kotlin.String>", nil))
//
// # Query API
//
//   - [Resolver.AsMemberOf] - the type of a member seen through a receiver.
//   - [Resolver.FindOverridden] and [Resolver.Overrides] - override
//     resolution.
//   - [Resolver.MapType] - platform to primary type mapping.
//   - [Resolver.Evaluate] - annotation argument evaluation.
//   - [Resolver.EffectiveVisibility] and [Resolver.MangledName] - visibility
//     across module and friend boundaries, and binary names.
//   - [Resolver.SealedSubclasses] and [Resolver.Expand] - sealed hierarchies
//     and type aliases.
//
// # Errors
//
// Unresolved names degrade to error types so batch queries keep going.
// Invalid calls (an unrelated receiver) and detected cycles are returned as
// typed errors carrying an [ErrorCode].
package trellis

import trt "github.com/jward/trellis/internal/runtime"

var _ trt.Queries = (*Resolver)(nil)
