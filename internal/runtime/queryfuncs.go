package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// Queries is the engine surface exposed to scripts. It is implemented by
// the root package's Resolver.
type Queries interface {
	Module() *graph.Module
	FindDeclaration(path string) *graph.Declaration
	ClassByName(fqn string) (*graph.Declaration, error)
	AsMemberOf(decl *graph.Declaration, receiver types.Type) (types.Type, error)
	FindOverridden(decl *graph.Declaration) ([]*graph.Declaration, error)
	MangledName(decl *graph.Declaration) string
	SealedSubclasses(decl *graph.Declaration) []*graph.Declaration
	MapType(t types.Type, annotations []*graph.AnnotationUsage) types.Type
	EffectiveVisibility(decl *graph.Declaration, from *graph.Module) graph.Visibility
}

// Host functions over Queries. Scripts address declarations by path (see
// Resolver.FindDeclaration) and types by their textual form; results are
// maps, lists and strings.

func makeDeclarationFn(q Queries) *object.Builtin {
	return object.NewBuiltin("declaration", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("declaration", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("declaration: %v", err)
		}
		d := q.FindDeclaration(path)
		if d == nil {
			return object.Nil
		}
		return declToMap(d)
	})
}

func makeClassByNameFn(q Queries) *object.Builtin {
	return object.NewBuiltin("class_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("class_by_name", 1, len(args))
		}
		fqn, err := toString(args[0])
		if err != nil {
			return object.Errorf("class_by_name: %v", err)
		}
		d, lookupErr := q.ClassByName(fqn)
		if lookupErr != nil {
			return object.Errorf("class_by_name: %v", lookupErr)
		}
		return declToMap(d)
	})
}

// as_member_of(path, receiver) → type string
func makeAsMemberOfFn(q Queries) *object.Builtin {
	return object.NewBuiltin("as_member_of", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("as_member_of", 2, len(args))
		}
		d, errObj := lookupArg(q, "as_member_of", args[0])
		if errObj != nil {
			return errObj
		}
		src, err := toString(args[1])
		if err != nil {
			return object.Errorf("as_member_of: %v", err)
		}
		receiver, err := types.Parse(src, nil)
		if err != nil {
			return object.Errorf("as_member_of: receiver: %v", err)
		}
		t, err := q.AsMemberOf(d, receiver)
		if err != nil {
			return object.Errorf("as_member_of: %v", err)
		}
		return object.NewString(types.Format(t))
	})
}

// find_overridden(path) → list of declaration maps. An override
// inconsistency is not an error here; the list is simply empty.
func makeFindOverriddenFn(q Queries) *object.Builtin {
	return object.NewBuiltin("find_overridden", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("find_overridden", 1, len(args))
		}
		d, errObj := lookupArg(q, "find_overridden", args[0])
		if errObj != nil {
			return errObj
		}
		overridden, _ := q.FindOverridden(d)
		return declsToList(overridden)
	})
}

func makeMangledNameFn(q Queries) *object.Builtin {
	return object.NewBuiltin("mangled_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("mangled_name", 1, len(args))
		}
		d, errObj := lookupArg(q, "mangled_name", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(q.MangledName(d))
	})
}

func makeSealedSubclassesFn(q Queries) *object.Builtin {
	return object.NewBuiltin("sealed_subclasses", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sealed_subclasses", 1, len(args))
		}
		d, errObj := lookupArg(q, "sealed_subclasses", args[0])
		if errObj != nil {
			return errObj
		}
		return declsToList(q.SealedSubclasses(d))
	})
}

// map_type(platformType) → primary type string
func makeMapTypeFn(q Queries) *object.Builtin {
	return object.NewBuiltin("map_type", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("map_type", 1, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("map_type: %v", err)
		}
		t, err := types.Parse(src, nil)
		if err != nil {
			return object.Errorf("map_type: %v", err)
		}
		return object.NewString(types.Format(q.MapType(t, nil)))
	})
}

// visibility(path) → effective visibility as seen from the resolver's module
func makeVisibilityFn(q Queries) *object.Builtin {
	return object.NewBuiltin("visibility", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("visibility", 1, len(args))
		}
		d, errObj := lookupArg(q, "visibility", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(string(q.EffectiveVisibility(d, q.Module())))
	})
}

// --- conversion helpers ---

func lookupArg(q Queries, fn string, arg object.Object) (*graph.Declaration, object.Object) {
	path, err := toString(arg)
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	d := q.FindDeclaration(path)
	if d == nil {
		return nil, object.Errorf("%s: no declaration %q", fn, path)
	}
	return d, nil
}

func declToMap(d *graph.Declaration) object.Object {
	mods := d.Modifiers.Strings()
	modObjs := make([]object.Object, len(mods))
	for i, m := range mods {
		modObjs[i] = object.NewString(m)
	}
	m := map[string]object.Object{
		"id":             object.NewString(d.ID),
		"name":           object.NewString(d.Name),
		"qualified_name": object.NewString(d.QualifiedName),
		"package":        object.NewString(d.Package),
		"kind":           object.NewString(string(d.Kind)),
		"origin":         object.NewString(string(d.Origin)),
		"visibility":     object.NewString(string(d.Visibility)),
		"modality":       object.NewString(string(d.Modality)),
		"modifiers":      object.NewList(modObjs),
	}
	if d.Module != nil {
		m["module"] = object.NewString(d.Module.Name)
	}
	if d.Parent != nil {
		m["parent"] = object.NewString(d.Parent.ID)
	}
	return object.NewMap(m)
}

func declsToList(decls []*graph.Declaration) object.Object {
	results := make([]object.Object, 0, len(decls))
	for _, d := range decls {
		results = append(results, declToMap(d))
	}
	return object.NewList(results)
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
