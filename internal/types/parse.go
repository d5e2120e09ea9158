package types

import (
	"fmt"
	"strings"
	"unicode"
)

// PlatformArray is the class name used for platform-language array types
// (elem[]). The element type is the single argument.
const PlatformArray = "[]"

// Scope resolves a simple name to a type parameter in scope, or nil.
type Scope func(name string) *TypeParameter

// Parse reads a type written in the notation produced by Format. Single
// segment names are first looked up in scope as type parameters. Platform
// array suffixes (int[], String[][]) are accepted.
func Parse(src string, scope Scope) (Type, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, scope: scope}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("parse type %q: unexpected %q", src, p.peek())
	}
	return t, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(src string, scope Scope) Type {
	t, err := Parse(src, scope)
	if err != nil {
		panic(err)
	}
	return t
}

func lex(src string) ([]string, error) {
	var toks []string
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(rs) && rs[i+1] == '>':
			toks = append(toks, "->")
			i += 2
		case strings.ContainsRune("()<>,.?!*&[]", r):
			toks = append(toks, string(r))
			i++
		case r == '_' || r == '$' || unicode.IsLetter(r):
			j := i + 1
			for j < len(rs) && (rs[j] == '_' || rs[j] == '$' || unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j])) {
				j++
			}
			toks = append(toks, string(rs[i:j]))
			i = j
		default:
			return nil, fmt.Errorf("parse type %q: unexpected character %q", src, r)
		}
	}
	return toks, nil
}

type parser struct {
	toks  []string
	pos   int
	scope Scope
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) string {
	if p.pos+n >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos+n]
}

func (p *parser) accept(tok string) bool {
	if p.peek() == tok {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(tok string) error {
	if !p.accept(tok) {
		return fmt.Errorf("parse type: expected %q, got %q", tok, p.peek())
	}
	return nil
}

func (p *parser) parseType() (Type, error) {
	suspend := false
	if p.peek() == "suspend" && (p.peekAt(1) == "(" || isIdent(p.peekAt(1))) {
		p.pos++
		suspend = true
	}
	var t Type
	var err error
	if p.peek() == "(" {
		t, err = p.parseParenthesized()
	} else {
		t, err = p.parseNamed()
	}
	if err != nil {
		return nil, err
	}
	if suspend {
		f, ok := t.(*Function)
		if !ok {
			return nil, fmt.Errorf("parse type: suspend applies to function types only")
		}
		f.Suspend = true
	}
	return p.parseSuffixes(t)
}

func (p *parser) parseSuffixes(t Type) (Type, error) {
	for {
		switch {
		case p.peek() == "[" && p.peekAt(1) == "]":
			p.pos += 2
			t = &Nominal{Class: PlatformArray, Args: []Argument{{Type: t}}}
		case p.accept("?"):
			t = MakeNullable(t)
		case p.accept("!"):
			t = &Flexible{Lower: MakeNotNull(t), Upper: MakeNullable(t)}
		case p.peek() == "&" && p.peekAt(1) == "Any":
			p.pos += 2
			t = MakeNotNull(t)
		default:
			return t, nil
		}
	}
}

// parseParenthesized handles both function types and grouping parentheses.
func (p *parser) parseParenthesized() (Type, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var elems []Type
	for !p.accept(")") {
		if len(elems) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
	}
	if p.accept("->") {
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &Function{Params: elems, Return: ret}, nil
	}
	if len(elems) != 1 {
		return nil, fmt.Errorf("parse type: expected -> after parameter list")
	}
	return elems[0], nil
}

func (p *parser) parseNamed() (Type, error) {
	if !isIdent(p.peek()) {
		return nil, fmt.Errorf("parse type: expected name, got %q", p.peek())
	}
	parts := []string{p.toks[p.pos]}
	p.pos++
	for p.peek() == "." && isIdent(p.peekAt(1)) {
		parts = append(parts, p.toks[p.pos+1])
		p.pos += 2
	}
	var t Type
	if len(parts) == 1 && p.scope != nil && p.peek() != "<" {
		if tp := p.scope(parts[0]); tp != nil {
			t = Ref(tp)
		}
	}
	if t == nil {
		n := &Nominal{Class: strings.Join(parts, ".")}
		if p.accept("<") {
			for !p.accept(">") {
				if len(n.Args) > 0 {
					if err := p.expect(","); err != nil {
						return nil, err
					}
				}
				a, err := p.parseArgument()
				if err != nil {
					return nil, err
				}
				n.Args = append(n.Args, a)
			}
		}
		t = n
	}
	// Extension function type: Receiver.(Params) -> Return
	if p.peek() == "." && p.peekAt(1) == "(" {
		p.pos++
		ft, err := p.parseParenthesized()
		if err != nil {
			return nil, err
		}
		f, ok := ft.(*Function)
		if !ok {
			return nil, fmt.Errorf("parse type: expected function type after receiver")
		}
		f.Receiver = t
		return f, nil
	}
	return t, nil
}

func (p *parser) parseArgument() (Argument, error) {
	if p.accept("*") {
		return Argument{Projection: Star}, nil
	}
	proj := Invariant
	if (p.peek() == "out" || p.peek() == "in") && p.peekAt(1) != "," && p.peekAt(1) != ">" && p.peekAt(1) != "." {
		if p.toks[p.pos] == "out" {
			proj = Out
		} else {
			proj = In
		}
		p.pos++
	}
	t, err := p.parseType()
	if err != nil {
		return Argument{}, err
	}
	return Argument{Projection: proj, Type: t}, nil
}

func isIdent(tok string) bool {
	if tok == "" {
		return false
	}
	r := []rune(tok)[0]
	return r == '_' || r == '$' || unicode.IsLetter(r)
}
