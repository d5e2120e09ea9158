package graph

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jward/trellis/internal/types"
)

// Declaration is a named program entity. Identity, kind, modifiers and
// origin are available immediately. Everything else lives in Details, which
// for stub declarations is produced on first access by a Loader and then
// memoized.
type Declaration struct {
	ID            string
	Name          string
	QualifiedName string
	Package       string
	Kind          Kind
	Origin        Origin
	Visibility    Visibility
	Modality      Modality
	Modifiers     Modifiers

	Module *Module
	Parent *Declaration

	once     sync.Once
	resolved atomic.Bool
	loader   Loader
	details  *Details
	loadErr  error
}

// Details is the resolved part of a declaration.
type Details struct {
	TypeParams []*types.TypeParameter
	// Supertypes of a classifier in declared order.
	Supertypes []types.Type
	Params     []*Parameter
	// Receiver is the extension receiver of a function or property.
	Receiver types.Type
	// Type is the property type, the function return type, or the
	// right-hand side of a type alias.
	Type        types.Type
	Annotations []*AnnotationUsage
	Members     []*Declaration
	Throws      []types.Type
	// JvmName is an explicit binary name that overrides mangling.
	JvmName string
	// Default is the declared default value of a platform annotation
	// method.
	Default AnnotationExpr
	// Broken is set when the loader failed.
	Broken bool

	completed bool
}

// Parameter is a value parameter of a callable or an annotation class.
type Parameter struct {
	Name        string
	Type        types.Type
	Vararg      bool
	Default     AnnotationExpr
	HasDefault  bool
	Annotations []*AnnotationUsage
}

// Loader resolves a stub declaration. It is called at most once.
type Loader func(d *Declaration) (*Details, error)

// NewStub creates an unresolved declaration.
func NewStub(d *Declaration, load Loader) *Declaration {
	d.loader = load
	return d
}

// NewResolved marks d as already resolved with det.
func NewResolved(d *Declaration, det *Details) *Declaration {
	if det == nil {
		det = &Details{}
	}
	d.once.Do(func() {
		d.details = det
		d.adopt(det)
		d.resolved.Store(true)
	})
	return d
}

// Resolved reports whether the declaration's details are available without
// running a loader.
func (d *Declaration) Resolved() bool {
	return d.loader == nil || d.resolved.Load()
}

// Details resolves the declaration if needed and returns its details. It is
// safe for concurrent use. A failing loader yields empty details marked
// Broken; the error is available from LoadError.
func (d *Declaration) Details() *Details {
	d.once.Do(func() {
		defer d.resolved.Store(true)
		if d.loader == nil {
			d.details = &Details{}
			return
		}
		det, err := d.loader(d)
		if err != nil || det == nil {
			d.loadErr = err
			d.details = &Details{Broken: true}
			return
		}
		d.details = det
		d.adopt(det)
	})
	return d.details
}

// LoadError returns the loader error, if any.
func (d *Declaration) LoadError() error {
	d.Details()
	return d.loadErr
}

// adopt links members back to d. It does nothing until d is placed in a
// module; the builder re-runs adoption top-down for eager trees.
func (d *Declaration) adopt(det *Details) {
	if d.QualifiedName == "" || d.Module == nil {
		return
	}
	complete(d, det)
	for _, m := range det.Members {
		if m.Parent == nil {
			m.Parent = d
		}
		if m.Module == nil {
			m.Module = d.Module
		}
		if m.Package == "" {
			m.Package = d.Package
		}
		normalize(m)
		if m.Resolved() {
			m.adopt(m.Details())
		}
	}
}

// Has reports whether the modifier flag is set.
func (d *Declaration) Has(m Modifier) bool {
	return d.Modifiers.Has(m)
}

// IsAbstract reports whether the declaration has no body to inherit.
func (d *Declaration) IsAbstract() bool {
	return d.Modality == Abstract || d.Kind == KindInterface
}

// TypeParams returns the declared type parameters.
func (d *Declaration) TypeParams() []*types.TypeParameter { return d.Details().TypeParams }

// Supertypes returns the declared supertypes.
func (d *Declaration) Supertypes() []types.Type { return d.Details().Supertypes }

// Params returns the value parameters.
func (d *Declaration) Params() []*Parameter { return d.Details().Params }

// Members returns the declared members in declaration order.
func (d *Declaration) Members() []*Declaration { return d.Details().Members }

// Annotations returns the annotation usages in source order.
func (d *Declaration) Annotations() []*AnnotationUsage { return d.Details().Annotations }

// Type returns the declared type (see Details.Type).
func (d *Declaration) Type() types.Type { return d.Details().Type }

// SelfType is the type a classifier has inside its own body: the class
// applied to its own type parameters.
func (d *Declaration) SelfType() *types.Nominal {
	n := &types.Nominal{Class: d.QualifiedName}
	for _, tp := range d.TypeParams() {
		n.Args = append(n.Args, types.Argument{Type: types.Ref(tp)})
	}
	return n
}

// ParamScope resolves type-parameter names visible inside d: its own
// parameters, then those of enclosing declarations.
func (d *Declaration) ParamScope() types.Scope {
	return func(name string) *types.TypeParameter {
		for cur := d; cur != nil; cur = cur.Parent {
			for _, tp := range cur.TypeParams() {
				if tp.Name == name {
					return tp
				}
			}
			if cur.Kind.IsClassifier() && !cur.Has(ModInner) && cur != d {
				break
			}
		}
		return nil
	}
}

func (d *Declaration) String() string {
	return d.ID
}

// TypeParamID is the ID of a type parameter named name declared on owner.
func TypeParamID(ownerID, name string) string {
	return ownerID + "#" + name
}

// CallableID builds the ID of a function or constructor from its qualified
// name and parameter types.
func CallableID(qualifiedName string, params []*Parameter) string {
	var sb strings.Builder
	sb.WriteString(qualifiedName)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteByte(',')
		}
		if p.Type == nil {
			sb.WriteString("?")
			continue
		}
		sb.WriteString(types.Format(types.Erase(p.Type)))
	}
	sb.WriteByte(')')
	return sb.String()
}

func normalize(d *Declaration) {
	if d.Visibility == "" {
		d.Visibility = Public
	}
	if d.Modality == "" {
		d.Modality = Final
		if d.Kind == KindInterface {
			d.Modality = Abstract
		}
	}
	if d.QualifiedName == "" {
		switch {
		case d.Parent != nil:
			d.QualifiedName = d.Parent.QualifiedName + "." + d.Name
		case d.Package != "":
			d.QualifiedName = d.Package + "." + d.Name
		default:
			d.QualifiedName = d.Name
		}
	}
	if d.ID == "" {
		d.ID = d.QualifiedName
		if d.Kind.IsCallable() && d.Resolved() {
			d.ID = CallableID(d.QualifiedName, d.Details().Params)
		}
	}
}
