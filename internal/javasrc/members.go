package javasrc

import (
	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/platform"
	"github.com/jward/trellis/internal/types"
)

// load resolves the stub d from the file at path.
func (l *Loader) load(path string, d *graph.Declaration) (*graph.Details, error) {
	f, err := l.file(path)
	if err != nil {
		l.logger.Debug("stub failed to load", "decl", d.QualifiedName, "err", err)
		return nil, err
	}
	node := f.findType(d.QualifiedName)
	if node == nil {
		return nil, errors.Errorf("%s: type %s not found", path, d.QualifiedName)
	}
	x := &extractor{l: l, f: f, owner: d}
	det := x.classDetails(node)
	l.logger.Debug("resolved stub", "decl", d.QualifiedName, "members", len(det.Members))
	return det, nil
}

// findType locates the declaration node of the type with the qualified name.
func (f *sourceFile) findType(fqn string) *sitter.Node {
	prefix := f.pkg
	var search func(body *sitter.Node, prefix string) *sitter.Node
	search = func(body *sitter.Node, prefix string) *sitter.Node {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			node := body.NamedChild(i)
			if node.Type() == "enum_body_declarations" {
				if n := search(node, prefix); n != nil {
					return n
				}
				continue
			}
			if _, ok := typeKinds[node.Type()]; !ok {
				continue
			}
			name := f.text(node.ChildByFieldName("name"))
			q := name
			if prefix != "" {
				q = prefix + "." + name
			}
			if q == fqn {
				return node
			}
			if len(fqn) > len(q) && fqn[:len(q)+1] == q+"." {
				if tb := node.ChildByFieldName("body"); tb != nil {
					return search(tb, q)
				}
			}
		}
		return nil
	}
	return search(f.root, prefix)
}

// extractor builds details for one classifier. Type-parameter scope grows
// as it descends into generic methods.
type extractor struct {
	l     *Loader
	f     *sourceFile
	owner *graph.Declaration
	scope []*types.TypeParameter
	// self is the owner applied to its own type parameters. The owner is
	// mid-resolution, so its details must not be read.
	self *types.Nominal
}

func (x *extractor) classDetails(node *sitter.Node) *graph.Details {
	d := x.owner
	det := &graph.Details{}

	// enclosing type parameters are visible in inner classes
	for p := d.Parent; p != nil && d.Has(graph.ModInner); p = p.Parent {
		x.scope = append(x.scope, p.TypeParams()...)
		if !p.Has(graph.ModInner) {
			break
		}
	}

	det.TypeParams = x.typeParams(node.ChildByFieldName("type_parameters"), d.QualifiedName)
	x.scope = append(x.scope, det.TypeParams...)
	x.self = &types.Nominal{Class: d.QualifiedName}
	for _, tp := range det.TypeParams {
		x.self.Args = append(x.self.Args, types.Argument{Type: types.Ref(tp)})
	}
	det.Annotations = x.annotations(modifiersNode(node))
	det.Supertypes = x.supertypes(node)

	switch node.Type() {
	case "record_declaration":
		x.recordComponents(node, det)
	case "enum_declaration":
		det.Supertypes = append([]types.Type{types.Class("java.lang.Enum", types.Class(d.QualifiedName))}, det.Supertypes...)
	case "annotation_type_declaration":
		det.Supertypes = append(det.Supertypes, types.Class("java.lang.annotation.Annotation"))
	}

	if body := node.ChildByFieldName("body"); body != nil {
		x.members(body, det)
	}
	return det
}

func (x *extractor) typeParams(list *sitter.Node, owner string) []*types.TypeParameter {
	if list == nil {
		return nil
	}
	var out []*types.TypeParameter
	var bounds [][]*sitter.Node
	for i := 0; i < int(list.NamedChildCount()); i++ {
		n := list.NamedChild(i)
		if n.Type() != "type_parameter" {
			continue
		}
		tp := &types.TypeParameter{Owner: owner}
		var bs []*sitter.Node
		for j := 0; j < int(n.NamedChildCount()); j++ {
			c := n.NamedChild(j)
			switch c.Type() {
			case "type_identifier", "identifier":
				tp.Name = x.f.text(c)
			case "type_bound":
				for k := 0; k < int(c.NamedChildCount()); k++ {
					bs = append(bs, c.NamedChild(k))
				}
			}
		}
		tp.ID = graph.TypeParamID(owner, tp.Name)
		out = append(out, tp)
		bounds = append(bounds, bs)
	}
	// Bounds may refer to any parameter of the same list.
	saved := x.scope
	x.scope = append(append([]*types.TypeParameter{}, x.scope...), out...)
	for i, tp := range out {
		for _, b := range bounds[i] {
			tp.Bounds = append(tp.Bounds, x.typeOf(b))
		}
	}
	x.scope = saved
	return out
}

func (x *extractor) supertypes(node *sitter.Node) []types.Type {
	var out []types.Type
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		switch c.Type() {
		case "superclass":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				out = append(out, x.typeOf(c.NamedChild(j)))
			}
		case "super_interfaces", "extends_interfaces":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				tl := c.NamedChild(j)
				if tl.Type() != "type_list" {
					out = append(out, x.typeOf(tl))
					continue
				}
				for k := 0; k < int(tl.NamedChildCount()); k++ {
					out = append(out, x.typeOf(tl.NamedChild(k)))
				}
			}
		}
	}
	return out
}

func (x *extractor) members(body *sitter.Node, det *graph.Details) {
	d := x.owner
	inInterface := d.Kind == graph.KindInterface || d.Kind == graph.KindAnnotationClass
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		switch n.Type() {
		case "field_declaration", "constant_declaration":
			det.Members = append(det.Members, x.fields(n, inInterface)...)
		case "method_declaration":
			det.Members = append(det.Members, x.method(n, inInterface))
		case "constructor_declaration", "compact_constructor_declaration":
			det.Members = append(det.Members, x.constructor(n))
		case "annotation_type_element_declaration":
			det.Members = append(det.Members, x.annotationMethod(n))
		case "enum_constant":
			det.Members = append(det.Members, x.enumEntry(n))
		case "enum_body_declarations":
			x.members(n, det)
		default:
			if _, ok := typeKinds[n.Type()]; ok {
				q := d.QualifiedName + "." + x.f.text(n.ChildByFieldName("name"))
				if nested := x.l.lookupStub(q); nested != nil {
					det.Members = append(det.Members, nested)
				}
			}
		}
	}
}

func (x *extractor) fields(n *sitter.Node, inInterface bool) []*graph.Declaration {
	mods := x.f.modifierKeywords(n)
	if inInterface {
		// interface fields are implicitly public static final
		mods = append(mods, "public", "static", "final")
	}
	vis, modality, flags := platform.MapModifiers(mods, graph.KindProperty, false)
	anns := x.annotations(modifiersNode(n))
	typeNode := n.ChildByFieldName("type")

	var out []*graph.Declaration
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v := n.NamedChild(i)
		if v.Type() != "variable_declarator" {
			continue
		}
		t := x.typeOf(typeNode)
		t = wrapDimensions(t, v.ChildByFieldName("dimensions"))
		out = append(out, graph.NewResolved(&graph.Declaration{
			Name:       x.f.text(v.ChildByFieldName("name")),
			Kind:       graph.KindProperty,
			Origin:     x.owner.Origin,
			Visibility: vis,
			Modality:   modality,
			Modifiers:  flags,
		}, &graph.Details{Type: t, Annotations: anns}))
	}
	return out
}

func (x *extractor) method(n *sitter.Node, inInterface bool) *graph.Declaration {
	name := x.f.text(n.ChildByFieldName("name"))
	vis, modality, flags := platform.MapModifiers(x.f.modifierKeywords(n), graph.KindFunction, inInterface)
	qname := x.owner.QualifiedName + "." + name

	saved := x.scope
	defer func() { x.scope = saved }()
	tps := x.typeParams(n.ChildByFieldName("type_parameters"), qname)
	x.scope = append(append([]*types.TypeParameter{}, x.scope...), tps...)

	det := &graph.Details{
		TypeParams:  tps,
		Annotations: x.annotations(modifiersNode(n)),
		Params:      x.params(n.ChildByFieldName("parameters")),
		Type:        wrapDimensions(x.typeOf(n.ChildByFieldName("type")), n.ChildByFieldName("dimensions")),
		Throws:      x.throws(n),
	}
	// Method type parameters are owned by the overload, whose ID is only
	// known once the parameter types are.
	id := graph.CallableID(qname, det.Params)
	for _, tp := range tps {
		tp.Owner = id
		tp.ID = graph.TypeParamID(id, tp.Name)
	}
	return graph.NewResolved(&graph.Declaration{
		Name:       name,
		Kind:       graph.KindFunction,
		Origin:     x.owner.Origin,
		Visibility: vis,
		Modality:   modality,
		Modifiers:  flags,
	}, det)
}

func (x *extractor) constructor(n *sitter.Node) *graph.Declaration {
	vis, _, flags := platform.MapModifiers(x.f.modifierKeywords(n), graph.KindConstructor, false)
	if x.owner.Kind == graph.KindEnumClass {
		vis = graph.Private
	}
	det := &graph.Details{
		Annotations: x.annotations(modifiersNode(n)),
		Params:      x.params(n.ChildByFieldName("parameters")),
		Type:        x.self,
		Throws:      x.throws(n),
	}
	return graph.NewResolved(&graph.Declaration{
		Name:       "<init>",
		Kind:       graph.KindConstructor,
		Origin:     x.owner.Origin,
		Visibility: vis,
		Modality:   graph.Final,
		Modifiers:  flags,
	}, det)
}

// recordComponents adds a property and an accessor for each record
// component, plus the canonical constructor.
func (x *extractor) recordComponents(n *sitter.Node, det *graph.Details) {
	params := x.params(n.ChildByFieldName("parameters"))
	for _, p := range params {
		det.Members = append(det.Members,
			graph.NewResolved(&graph.Declaration{
				Name:       p.Name,
				Kind:       graph.KindProperty,
				Origin:     x.owner.Origin,
				Visibility: graph.Private,
				Modality:   graph.Final,
			}, &graph.Details{Type: p.Type, Annotations: p.Annotations}),
			graph.NewResolved(&graph.Declaration{
				Name:       p.Name,
				Kind:       graph.KindFunction,
				Origin:     x.owner.Origin,
				Visibility: graph.Public,
				Modality:   graph.Final,
			}, &graph.Details{Type: p.Type}),
		)
	}
	det.Members = append(det.Members, graph.NewResolved(&graph.Declaration{
		Name:       "<init>",
		Kind:       graph.KindConstructor,
		Origin:     x.owner.Origin,
		Visibility: graph.Public,
		Modality:   graph.Final,
	}, &graph.Details{Params: params, Type: x.self}))
}

func (x *extractor) annotationMethod(n *sitter.Node) *graph.Declaration {
	det := &graph.Details{
		Annotations: x.annotations(modifiersNode(n)),
		Type:        wrapDimensions(x.typeOf(n.ChildByFieldName("type")), n.ChildByFieldName("dimensions")),
	}
	if v := n.ChildByFieldName("value"); v != nil {
		det.Default = x.expr(v)
	}
	return graph.NewResolved(&graph.Declaration{
		Name:       x.f.text(n.ChildByFieldName("name")),
		Kind:       graph.KindFunction,
		Origin:     x.owner.Origin,
		Visibility: graph.Public,
		Modality:   graph.Abstract,
	}, det)
}

func (x *extractor) enumEntry(n *sitter.Node) *graph.Declaration {
	return graph.NewResolved(&graph.Declaration{
		Name:       x.f.text(n.ChildByFieldName("name")),
		Kind:       graph.KindEnumEntry,
		Origin:     x.owner.Origin,
		Visibility: graph.Public,
		Modality:   graph.Final,
		Modifiers:  graph.NewModifiers(graph.ModStatic),
	}, &graph.Details{Annotations: x.annotations(modifiersNode(n))})
}

func (x *extractor) params(list *sitter.Node) []*graph.Parameter {
	if list == nil {
		return nil
	}
	var out []*graph.Parameter
	for i := 0; i < int(list.NamedChildCount()); i++ {
		n := list.NamedChild(i)
		switch n.Type() {
		case "formal_parameter":
			out = append(out, &graph.Parameter{
				Name:        x.f.text(n.ChildByFieldName("name")),
				Type:        wrapDimensions(x.typeOf(n.ChildByFieldName("type")), n.ChildByFieldName("dimensions")),
				Annotations: x.annotations(modifiersNode(n)),
			})
		case "spread_parameter":
			p := &graph.Parameter{Vararg: true, Annotations: x.annotations(modifiersNode(n))}
			for j := 0; j < int(n.NamedChildCount()); j++ {
				c := n.NamedChild(j)
				switch {
				case c.Type() == "variable_declarator":
					p.Name = x.f.text(c.ChildByFieldName("name"))
				case c.Type() == "modifiers":
				case p.Type == nil && isTypeNode(c):
					p.Type = x.typeOf(c)
				}
			}
			out = append(out, p)
		}
	}
	return out
}

func (x *extractor) throws(n *sitter.Node) []types.Type {
	var out []types.Type
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "throws" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			out = append(out, x.typeOf(c.NamedChild(j)))
		}
	}
	return out
}
