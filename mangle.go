package trellis

import (
	"crypto/md5"
	"encoding/base64"
	"strings"
	"unicode"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

const jvmNameAnnotation = "kotlin.jvm.JvmName"

// MangledName returns the binary name of d qualified by its container (or
// package for top-level declarations). An explicit JvmName wins. Otherwise
// functions taking value-class parameters get a "-<hash>" suffix and
// internal members a "$<module>" suffix.
func (r *Resolver) MangledName(d *graph.Declaration) string {
	prefix := d.Package
	if c := graph.Container(d); c != nil {
		prefix = c.QualifiedName
	}
	name := r.jvmName(d)
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func (r *Resolver) jvmName(d *graph.Declaration) string {
	if explicit := explicitJvmName(d); explicit != "" {
		return explicit
	}
	name := d.Name
	vis := d.Visibility
	switch d.Kind {
	case graph.KindConstructor:
		return "<init>"
	case graph.KindGetter:
		name = getterName(d.Parent.Name)
		vis = d.Parent.Visibility
	case graph.KindSetter:
		name = setterName(d.Parent.Name)
		vis = d.Parent.Visibility
	}
	if d.Kind.IsCallable() {
		if sig, ok := r.valueClassSignature(d); ok {
			name += "-" + mangleHash(sig)
		}
	}
	if vis == graph.Internal && d.Module != nil {
		name += "$" + sanitizeModuleName(d.Module.Name)
	}
	return name
}

func explicitJvmName(d *graph.Declaration) string {
	if n := d.Details().JvmName; n != "" {
		return n
	}
	for _, a := range d.Annotations() {
		if a.Class != jvmNameAnnotation {
			continue
		}
		for _, arg := range a.Args {
			if arg.Name != "" && arg.Name != "name" {
				continue
			}
			if lit, ok := arg.Value.(*graph.Literal); ok {
				if s, ok := lit.Value.(string); ok {
					return s
				}
			}
		}
	}
	return ""
}

func getterName(prop string) string {
	if isPrefixed(prop) {
		return prop
	}
	return "get" + capitalize(prop)
}

func setterName(prop string) string {
	if isPrefixed(prop) {
		return "set" + prop[2:]
	}
	return "set" + capitalize(prop)
}

// isPrefixed reports a boolean-style property name such as isEmpty.
func isPrefixed(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "is") && unicode.IsUpper(rune(name[2]))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// valueClassSignature builds the string hashed for value-class mangling.
// The receiver and each parameter contribute "_", or "L<binary name>;"
// (plus "?" when nullable) for a value class. ok is false when no value
// class is involved.
func (r *Resolver) valueClassSignature(d *graph.Declaration) (string, bool) {
	var ts []types.Type
	if recv := d.Details().Receiver; recv != nil {
		ts = append(ts, recv)
	}
	for _, p := range d.Params() {
		ts = append(ts, p.Type)
	}
	var sb strings.Builder
	found := false
	for _, t := range ts {
		if t != nil {
			if et, err := r.ExpandType(t); err == nil {
				t = et
			}
		}
		n, ok := t.(*types.Nominal)
		if !ok {
			sb.WriteByte('_')
			continue
		}
		c := r.lookup(n.Class)
		if c == nil || !c.Has(graph.ModValue) {
			sb.WriteByte('_')
			continue
		}
		found = true
		sb.WriteString("L" + r.binaryName(n.Class) + ";")
		if n.Nullable {
			sb.WriteByte('?')
		}
	}
	return sb.String(), found
}

// mangleHash is the first five bytes of the MD5 of sig, base64url encoded
// without padding.
func mangleHash(sig string) string {
	sum := md5.Sum([]byte(sig))
	return base64.RawURLEncoding.EncodeToString(sum[:5])
}

func sanitizeModuleName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
}
