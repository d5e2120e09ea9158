package graph

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jward/trellis/internal/types"
)

// AnnotationUsage is one annotation applied to a declaration or parameter.
type AnnotationUsage struct {
	// Class is the qualified name of the annotation class.
	Class string
	Args  []AnnotationArg
	// Target is the use-site target (get, set, field, param, ...), if any.
	Target string
}

// ShortName is the simple name of the annotation class.
func (u *AnnotationUsage) ShortName() string {
	for i := len(u.Class) - 1; i >= 0; i-- {
		if u.Class[i] == '.' {
			return u.Class[i+1:]
		}
	}
	return u.Class
}

// AnnotationArg is an explicit argument. Name is empty for positional
// arguments.
type AnnotationArg struct {
	Name  string
	Value AnnotationExpr
}

// AnnotationExpr is an unevaluated annotation argument: *Literal, *EnumRef,
// *ClassLiteral, *Nested, *Array or *Source.
type AnnotationExpr interface {
	isAnnotationExpr()
}

// Literal is a constant: bool, int64, float64, string or rune.
type Literal struct {
	Value any
}

// EnumRef names an enum entry.
type EnumRef struct {
	Class string
	Entry string
}

// ClassLiteral is a class reference such as Foo::class.
type ClassLiteral struct {
	Type types.Type
}

// Nested is an annotation used as an argument.
type Nested struct {
	Usage *AnnotationUsage
}

// Array is an array of expressions.
type Array struct {
	Elements []AnnotationExpr
}

// Source is constant-expression text that has not been folded.
type Source struct {
	Text string
}

func (*Literal) isAnnotationExpr()      {}
func (*EnumRef) isAnnotationExpr()      {}
func (*ClassLiteral) isAnnotationExpr() {}
func (*Nested) isAnnotationExpr()       {}
func (*Array) isAnnotationExpr()        {}
func (*Source) isAnnotationExpr()       {}

// --- JSON encoding ---

type wireUsage struct {
	Class  string    `json:"class"`
	Target string    `json:"target,omitempty"`
	Args   []wireArg `json:"args,omitempty"`
}

type wireArg struct {
	Name  string    `json:"name,omitempty"`
	Value *wireExpr `json:"value"`
}

type wireExpr struct {
	K      string          `json:"k"`
	Lit    any             `json:"lit"`
	LitK   string          `json:"lk,omitempty"`
	Class  string          `json:"class,omitempty"`
	Entry  string          `json:"entry,omitempty"`
	Type   json.RawMessage `json:"type,omitempty"`
	Usage  *wireUsage      `json:"usage,omitempty"`
	Elems  []*wireExpr     `json:"elems,omitempty"`
	Source string          `json:"src,omitempty"`
}

// MarshalUsages encodes annotation usages as JSON.
func MarshalUsages(us []*AnnotationUsage) ([]byte, error) {
	out := make([]*wireUsage, 0, len(us))
	for _, u := range us {
		w, err := usageToWire(u)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

// UnmarshalUsages decodes usages produced by MarshalUsages.
func UnmarshalUsages(data []byte, params types.ParamResolver) ([]*AnnotationUsage, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var ws []*wireUsage
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, errors.Wrap(err, "decoding annotations")
	}
	out := make([]*AnnotationUsage, 0, len(ws))
	for _, w := range ws {
		u, err := usageFromWire(w, params)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// MarshalExpr encodes a single expression, used for parameter defaults.
func MarshalExpr(e AnnotationExpr) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	w, err := exprToWire(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalExpr decodes an expression produced by MarshalExpr.
func UnmarshalExpr(data []byte, params types.ParamResolver) (AnnotationExpr, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var w wireExpr
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "decoding annotation expression")
	}
	return exprFromWire(&w, params)
}

func usageToWire(u *AnnotationUsage) (*wireUsage, error) {
	w := &wireUsage{Class: u.Class, Target: u.Target}
	for _, a := range u.Args {
		v, err := exprToWire(a.Value)
		if err != nil {
			return nil, err
		}
		w.Args = append(w.Args, wireArg{Name: a.Name, Value: v})
	}
	return w, nil
}

func exprToWire(e AnnotationExpr) (*wireExpr, error) {
	switch e := e.(type) {
	case *Literal:
		w := &wireExpr{K: "lit", Lit: e.Value}
		switch v := e.Value.(type) {
		case int64, int:
			w.LitK = "int"
		case float64:
			w.LitK = "float"
		case rune:
			w.LitK = "char"
			w.Lit = string(v)
		}
		return w, nil
	case *EnumRef:
		return &wireExpr{K: "enum", Class: e.Class, Entry: e.Entry}, nil
	case *ClassLiteral:
		data, err := types.Marshal(e.Type)
		if err != nil {
			return nil, errors.Wrap(err, "encoding class literal")
		}
		return &wireExpr{K: "class", Type: data}, nil
	case *Nested:
		u, err := usageToWire(e.Usage)
		if err != nil {
			return nil, err
		}
		return &wireExpr{K: "nested", Usage: u}, nil
	case *Array:
		w := &wireExpr{K: "array"}
		for _, el := range e.Elements {
			we, err := exprToWire(el)
			if err != nil {
				return nil, err
			}
			w.Elems = append(w.Elems, we)
		}
		return w, nil
	case *Source:
		return &wireExpr{K: "src", Source: e.Text}, nil
	}
	return nil, errors.Errorf("unknown annotation expression %T", e)
}

func usageFromWire(w *wireUsage, params types.ParamResolver) (*AnnotationUsage, error) {
	u := &AnnotationUsage{Class: w.Class, Target: w.Target}
	for _, a := range w.Args {
		v, err := exprFromWire(a.Value, params)
		if err != nil {
			return nil, err
		}
		u.Args = append(u.Args, AnnotationArg{Name: a.Name, Value: v})
	}
	return u, nil
}

func exprFromWire(w *wireExpr, params types.ParamResolver) (AnnotationExpr, error) {
	if w == nil {
		return nil, nil
	}
	switch w.K {
	case "lit":
		switch w.LitK {
		case "int":
			if f, ok := w.Lit.(float64); ok {
				return &Literal{Value: int64(f)}, nil
			}
		case "float":
			if f, ok := w.Lit.(float64); ok {
				return &Literal{Value: f}, nil
			}
		case "char":
			if s, ok := w.Lit.(string); ok && len([]rune(s)) == 1 {
				return &Literal{Value: []rune(s)[0]}, nil
			}
		}
		return &Literal{Value: w.Lit}, nil
	case "enum":
		return &EnumRef{Class: w.Class, Entry: w.Entry}, nil
	case "class":
		t, err := types.Unmarshal(w.Type, params)
		if err != nil {
			return nil, err
		}
		return &ClassLiteral{Type: t}, nil
	case "nested":
		u, err := usageFromWire(w.Usage, params)
		if err != nil {
			return nil, err
		}
		return &Nested{Usage: u}, nil
	case "array":
		arr := &Array{}
		for _, we := range w.Elems {
			el, err := exprFromWire(we, params)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, el)
		}
		return arr, nil
	case "src":
		return &Source{Text: w.Source}, nil
	}
	return nil, errors.Errorf("unknown annotation expression kind %q", w.K)
}
