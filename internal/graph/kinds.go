package graph

import (
	"sort"

	set "github.com/hashicorp/go-set/v3"
)

// Kind classifies a declaration.
type Kind string

const (
	KindClass           Kind = "class"
	KindInterface       Kind = "interface"
	KindObject          Kind = "object"
	KindEnumClass       Kind = "enum_class"
	KindEnumEntry       Kind = "enum_entry"
	KindAnnotationClass Kind = "annotation_class"
	KindFunction        Kind = "function"
	KindProperty        Kind = "property"
	KindConstructor     Kind = "constructor"
	KindTypeAlias       Kind = "type_alias"
	KindGetter          Kind = "getter"
	KindSetter          Kind = "setter"
)

// IsClassifier reports whether declarations of this kind can be named as
// types and have members.
func (k Kind) IsClassifier() bool {
	switch k {
	case KindClass, KindInterface, KindObject, KindEnumClass, KindEnumEntry, KindAnnotationClass:
		return true
	}
	return false
}

// IsCallable reports whether the kind takes parameters.
func (k Kind) IsCallable() bool {
	return k == KindFunction || k == KindConstructor || k == KindGetter || k == KindSetter
}

// Origin records which language produced a declaration.
type Origin string

const (
	OriginSource      Origin = "source"
	OriginPlatform    Origin = "platform"
	OriginSynthetic   Origin = "synthetic"
	OriginSourceLib   Origin = "source-lib"
	OriginPlatformLib Origin = "platform-lib"
)

// IsPlatform reports whether types on the declaration need bridging.
func (o Origin) IsPlatform() bool {
	return o == OriginPlatform || o == OriginPlatformLib
}

// Visibility of a declaration. The builder normalizes an empty value to
// Public.
type Visibility string

const (
	Public         Visibility = "public"
	Protected      Visibility = "protected"
	Internal       Visibility = "internal"
	PackagePrivate Visibility = "package"
	Private        Visibility = "private"
)

// Rank orders visibilities from narrowest (0) to widest.
func (v Visibility) Rank() int {
	switch v {
	case Private:
		return 0
	case PackagePrivate:
		return 1
	case Protected:
		return 2
	case Internal:
		return 3
	}
	return 4
}

// Modality of a class or member. The builder normalizes an empty value to
// Final.
type Modality string

const (
	Final    Modality = "final"
	Open     Modality = "open"
	Abstract Modality = "abstract"
	Sealed   Modality = "sealed"
)

// Modifier is a flag that does not fit visibility or modality.
type Modifier string

const (
	ModOverride  Modifier = "override"
	ModOperator  Modifier = "operator"
	ModInfix     Modifier = "infix"
	ModInline    Modifier = "inline"
	ModData      Modifier = "data"
	ModValue     Modifier = "value"
	ModCompanion Modifier = "companion"
	ModInner     Modifier = "inner"
	ModConst     Modifier = "const"
	ModLateinit  Modifier = "lateinit"
	ModSuspend   Modifier = "suspend"
	ModStatic    Modifier = "static"
	ModExpect    Modifier = "expect"
	ModActual    Modifier = "actual"
	ModExternal  Modifier = "external"
	ModTailrec   Modifier = "tailrec"
	ModFun       Modifier = "fun"
	ModVar       Modifier = "var"
	ModDefault   Modifier = "default"
)

// Modifiers is an unordered flag set.
type Modifiers struct {
	s *set.Set[Modifier]
}

// NewModifiers builds a set from ms.
func NewModifiers(ms ...Modifier) Modifiers {
	return Modifiers{s: set.From(ms)}
}

// Has reports whether m is present.
func (m Modifiers) Has(mod Modifier) bool {
	return m.s != nil && m.s.Contains(mod)
}

// With returns a copy of m with mods added.
func (m Modifiers) With(mods ...Modifier) Modifiers {
	out := set.From(m.Slice())
	for _, mod := range mods {
		out.Insert(mod)
	}
	return Modifiers{s: out}
}

// Slice returns the flags in sorted order.
func (m Modifiers) Slice() []Modifier {
	if m.s == nil {
		return nil
	}
	out := m.s.Slice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the flags as sorted strings.
func (m Modifiers) Strings() []string {
	var out []string
	for _, mod := range m.Slice() {
		out = append(out, string(mod))
	}
	return out
}
