package types

import (
	"encoding/json"
	"fmt"
)

// wireType is the JSON shape of a Type. Type parameters are referenced by ID
// and re-linked on decode.
type wireType struct {
	K        string      `json:"k"`
	Class    string      `json:"c,omitempty"`
	Args     []wireArg   `json:"a,omitempty"`
	Nullable bool        `json:"n,omitempty"`
	Param    string      `json:"p,omitempty"`
	PNull    Nullability `json:"pn,omitempty"`
	Receiver *wireType   `json:"r,omitempty"`
	Params   []*wireType `json:"ps,omitempty"`
	Return   *wireType   `json:"ret,omitempty"`
	Suspend  bool        `json:"s,omitempty"`
	Lower    *wireType   `json:"lo,omitempty"`
	Upper    *wireType   `json:"up,omitempty"`
	Reason   string      `json:"e,omitempty"`
}

type wireArg struct {
	V Variance  `json:"v,omitempty"`
	T *wireType `json:"t,omitempty"`
}

// ParamResolver finds a type parameter by ID during decoding.
type ParamResolver func(id string) (*TypeParameter, bool)

// Marshal encodes t as JSON. A nil type encodes as "null".
func Marshal(t Type) ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(toWire(t))
}

// Unmarshal decodes a type produced by Marshal. References to parameters the
// resolver does not know decode as error types.
func Unmarshal(data []byte, params ParamResolver) (Type, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var w wireType
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding type: %w", err)
	}
	return fromWire(&w, params), nil
}

func toWire(t Type) *wireType {
	switch t := t.(type) {
	case *Nominal:
		w := &wireType{K: "n", Class: t.Class, Nullable: t.Nullable}
		for _, a := range t.Args {
			wa := wireArg{V: a.Projection}
			if a.Type != nil {
				wa.T = toWire(a.Type)
			}
			w.Args = append(w.Args, wa)
		}
		return w
	case *ParamRef:
		return &wireType{K: "p", Param: t.Param.ID, PNull: t.Nullability}
	case *Function:
		w := &wireType{K: "f", Nullable: t.Nullable, Suspend: t.Suspend, Return: toWire(t.Return)}
		if t.Receiver != nil {
			w.Receiver = toWire(t.Receiver)
		}
		for _, p := range t.Params {
			w.Params = append(w.Params, toWire(p))
		}
		return w
	case *Flexible:
		return &wireType{K: "x", Lower: toWire(t.Lower), Upper: toWire(t.Upper)}
	case *Error:
		return &wireType{K: "e", Reason: t.Reason}
	}
	return nil
}

func fromWire(w *wireType, params ParamResolver) Type {
	if w == nil {
		return nil
	}
	switch w.K {
	case "n":
		n := &Nominal{Class: w.Class, Nullable: w.Nullable}
		for _, a := range w.Args {
			n.Args = append(n.Args, Argument{Projection: a.V, Type: fromWire(a.T, params)})
		}
		return n
	case "p":
		if params != nil {
			if p, ok := params(w.Param); ok {
				return &ParamRef{Param: p, Nullability: w.PNull}
			}
		}
		return Errorf("unknown type parameter " + w.Param)
	case "f":
		f := &Function{Nullable: w.Nullable, Suspend: w.Suspend, Return: fromWire(w.Return, params)}
		if w.Receiver != nil {
			f.Receiver = fromWire(w.Receiver, params)
		}
		for _, p := range w.Params {
			f.Params = append(f.Params, fromWire(p, params))
		}
		return f
	case "x":
		return &Flexible{Lower: fromWire(w.Lower, params), Upper: fromWire(w.Upper, params)}
	case "e":
		return Errorf(w.Reason)
	}
	return Errorf("unknown type kind " + w.K)
}
