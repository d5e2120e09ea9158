package javasrc

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/trellis/internal/graph"
)

// annotations converts the annotations in a modifiers node, in source
// order. Repeated annotations are all kept.
func (x *extractor) annotations(mods *sitter.Node) []*graph.AnnotationUsage {
	if mods == nil {
		return nil
	}
	var out []*graph.AnnotationUsage
	for i := 0; i < int(mods.NamedChildCount()); i++ {
		c := mods.NamedChild(i)
		if u := x.usage(c); u != nil {
			out = append(out, u)
		}
	}
	return out
}

func (x *extractor) usage(n *sitter.Node) *graph.AnnotationUsage {
	switch n.Type() {
	case "marker_annotation", "annotation":
	default:
		return nil
	}
	u := &graph.AnnotationUsage{Class: x.resolve(x.f.text(n.ChildByFieldName("name")))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return u
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		c := args.NamedChild(i)
		if c.Type() == "element_value_pair" {
			u.Args = append(u.Args, graph.AnnotationArg{
				Name:  x.f.text(c.ChildByFieldName("key")),
				Value: x.expr(c.ChildByFieldName("value")),
			})
			continue
		}
		// A single unnamed element is the "value" element.
		u.Args = append(u.Args, graph.AnnotationArg{Name: "value", Value: x.expr(c)})
	}
	return u
}

// expr converts an element value. Anything that is not a plain literal,
// enum constant, class literal, array or annotation is kept as source text
// for the constant evaluator.
func (x *extractor) expr(n *sitter.Node) graph.AnnotationExpr {
	if n == nil {
		return &graph.Source{}
	}
	text := x.f.text(n)
	switch n.Type() {
	case "string_literal":
		if s, err := strconv.Unquote(text); err == nil {
			return &graph.Literal{Value: s}
		}
		return &graph.Literal{Value: strings.Trim(text, `"`)}
	case "character_literal":
		if s, err := strconv.Unquote(text); err == nil && s != "" {
			return &graph.Literal{Value: []rune(s)[0]}
		}
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if v, err := strconv.ParseInt(strings.TrimRight(text, "lL"), 0, 64); err == nil {
			return &graph.Literal{Value: v}
		}
	case "decimal_floating_point_literal":
		clean := strings.ReplaceAll(strings.TrimRight(text, "fFdD"), "_", "")
		if v, err := strconv.ParseFloat(clean, 64); err == nil {
			return &graph.Literal{Value: v}
		}
	case "true":
		return &graph.Literal{Value: true}
	case "false":
		return &graph.Literal{Value: false}
	case "field_access":
		obj := x.f.text(n.ChildByFieldName("object"))
		return &graph.EnumRef{Class: x.resolve(obj), Entry: x.f.text(n.ChildByFieldName("field"))}
	case "class_literal":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); isTypeNode(c) {
				return &graph.ClassLiteral{Type: x.typeOf(c)}
			}
		}
	case "element_value_array_initializer":
		arr := &graph.Array{}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "line_comment" || c.Type() == "block_comment" {
				continue
			}
			arr.Elements = append(arr.Elements, x.expr(c))
		}
		return arr
	case "marker_annotation", "annotation":
		return &graph.Nested{Usage: x.usage(n)}
	}
	return &graph.Source{Text: text}
}
