package graph

import "github.com/jward/trellis/internal/types"

// complete adds the elements a compiler would generate for d: implicit
// supertypes, a default constructor and property accessors. It runs once
// per Details value.
func complete(d *Declaration, det *Details) {
	if det.completed || det.Broken {
		return
	}
	det.completed = true
	switch {
	case d.Kind.IsClassifier():
		implicitSupertypes(d, det)
		implicitConstructor(d, det)
	case d.Kind == KindProperty && !d.Origin.IsPlatform():
		implicitAccessors(d, det)
	}
}

func implicitSupertypes(d *Declaration, det *Details) {
	if len(det.Supertypes) > 0 {
		return
	}
	switch d.QualifiedName {
	case "kotlin.Any", "java.lang.Object":
		return
	}
	var st types.Type
	switch {
	case d.Kind == KindEnumEntry && d.Parent != nil:
		// The enclosing enum is mid-resolution here, so its self type is
		// built without reading its details. Enum classes have no type
		// parameters.
		st = types.Class(d.Parent.QualifiedName)
	case d.Origin.IsPlatform():
		st = types.Class("java.lang.Object")
	case d.Kind == KindEnumClass:
		st = types.Class("kotlin.Enum", types.Class(d.QualifiedName))
	case d.Kind == KindAnnotationClass:
		st = types.Class("kotlin.Annotation")
	default:
		st = types.Class("kotlin.Any")
	}
	det.Supertypes = []types.Type{st}
}

func implicitConstructor(d *Declaration, det *Details) {
	if d.Kind != KindClass && d.Kind != KindEnumClass {
		return
	}
	if d.Module.Name == BuiltinsModule {
		return
	}
	for _, m := range det.Members {
		if m.Kind == KindConstructor {
			return
		}
	}
	vis := Public
	switch {
	case d.Kind == KindEnumClass:
		vis = Private
	case d.Modality == Sealed:
		vis = Protected
	}
	ctor := NewResolved(&Declaration{
		Name:       "<init>",
		Kind:       KindConstructor,
		Origin:     OriginSynthetic,
		Visibility: vis,
		Modality:   Final,
	}, &Details{})
	det.Members = append(det.Members, ctor)
}

func implicitAccessors(d *Declaration, det *Details) {
	var hasGetter, hasSetter bool
	for _, m := range det.Members {
		switch m.Kind {
		case KindGetter:
			hasGetter = true
		case KindSetter:
			hasSetter = true
		}
	}

	var kept, onGet, onSet, onSetParam []*AnnotationUsage
	for _, a := range det.Annotations {
		switch a.Target {
		case "get":
			onGet = append(onGet, a)
		case "set":
			onSet = append(onSet, a)
		case "setparam":
			onSetParam = append(onSetParam, a)
		default:
			kept = append(kept, a)
		}
	}
	det.Annotations = kept

	if !hasGetter {
		det.Members = append(det.Members, NewResolved(&Declaration{
			Name:       "<get-" + d.Name + ">",
			Kind:       KindGetter,
			Origin:     OriginSynthetic,
			Visibility: d.Visibility,
			Modality:   d.Modality,
		}, &Details{Type: det.Type, Receiver: det.Receiver, Annotations: onGet}))
	}
	if d.Has(ModVar) && !hasSetter {
		det.Members = append(det.Members, NewResolved(&Declaration{
			Name:       "<set-" + d.Name + ">",
			Kind:       KindSetter,
			Origin:     OriginSynthetic,
			Visibility: d.Visibility,
			Modality:   d.Modality,
		}, &Details{
			Type:        types.Class("kotlin.Unit"),
			Receiver:    det.Receiver,
			Params:      []*Parameter{{Name: "value", Type: det.Type, Annotations: onSetParam}},
			Annotations: onSet,
		}))
	}
}

// Getter returns the getter of a property, or nil.
func Getter(prop *Declaration) *Declaration {
	for _, m := range prop.Members() {
		if m.Kind == KindGetter {
			return m
		}
	}
	return nil
}

// Setter returns the setter of a mutable property, or nil.
func Setter(prop *Declaration) *Declaration {
	for _, m := range prop.Members() {
		if m.Kind == KindSetter {
			return m
		}
	}
	return nil
}
