package types

import (
	"strconv"
	"strings"
)

// Equal reports structural equality. Error types are never equal to
// anything, including themselves.
func Equal(a, b Type) bool {
	return equal(a, b, false)
}

// EqualModuloFlexibility is Equal, except that a flexible type on either side
// matches any type whose nullability-stripped form equals its bounds.
func EqualModuloFlexibility(a, b Type) bool {
	return equal(a, b, true)
}

func equal(a, b Type, lenient bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if lenient {
		if fa, ok := a.(*Flexible); ok {
			if fb, ok := b.(*Flexible); ok {
				return equal(fa.Lower, fb.Lower, true) && equal(fa.Upper, fb.Upper, true)
			}
			return equal(MakeNotNull(fa.Lower), MakeNotNull(b), true)
		}
		if _, ok := b.(*Flexible); ok {
			return equal(b, a, true)
		}
	}
	switch a := a.(type) {
	case *Nominal:
		b, ok := b.(*Nominal)
		if !ok || a.Class != b.Class || a.Nullable != b.Nullable || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !equalArg(a.Args[i], b.Args[i], lenient) {
				return false
			}
		}
		return true
	case *ParamRef:
		b, ok := b.(*ParamRef)
		return ok && a.Param.ID == b.Param.ID && a.Nullability == b.Nullability
	case *Function:
		b, ok := b.(*Function)
		if !ok || a.Nullable != b.Nullable || a.Suspend != b.Suspend || len(a.Params) != len(b.Params) {
			return false
		}
		if (a.Receiver == nil) != (b.Receiver == nil) {
			return false
		}
		if a.Receiver != nil && !equal(a.Receiver, b.Receiver, lenient) {
			return false
		}
		for i := range a.Params {
			if !equal(a.Params[i], b.Params[i], lenient) {
				return false
			}
		}
		return equal(a.Return, b.Return, lenient)
	case *Flexible:
		b, ok := b.(*Flexible)
		return ok && equal(a.Lower, b.Lower, lenient) && equal(a.Upper, b.Upper, lenient)
	}
	return false
}

func equalArg(a, b Argument, lenient bool) bool {
	if a.Projection != b.Projection {
		return false
	}
	if a.Projection == Star {
		return true
	}
	return equal(a.Type, b.Type, lenient)
}

// Key returns a canonical string for t such that Equal(a, b) implies
// Key(a) == Key(b). It returns false for types containing an error, which
// must not be used as cache keys.
func Key(t Type) (string, bool) {
	var sb strings.Builder
	if !writeKey(&sb, t) {
		return "", false
	}
	return sb.String(), true
}

func writeKey(sb *strings.Builder, t Type) bool {
	switch t := t.(type) {
	case nil:
		sb.WriteString("_")
	case *Nominal:
		sb.WriteString("N(")
		sb.WriteString(t.Class)
		for _, a := range t.Args {
			sb.WriteString(",")
			sb.WriteString(strconv.Itoa(int(a.Projection)))
			if a.Projection != Star && !writeKey(sb, a.Type) {
				return false
			}
		}
		sb.WriteString(")")
		if t.Nullable {
			sb.WriteString("?")
		}
	case *ParamRef:
		sb.WriteString("P(")
		sb.WriteString(t.Param.ID)
		sb.WriteString(")")
		sb.WriteString(strconv.Itoa(int(t.Nullability)))
	case *Function:
		sb.WriteString("F(")
		if !writeKey(sb, t.Receiver) {
			return false
		}
		for _, p := range t.Params {
			sb.WriteString(",")
			if !writeKey(sb, p) {
				return false
			}
		}
		sb.WriteString("->")
		if !writeKey(sb, t.Return) {
			return false
		}
		sb.WriteString(")")
		if t.Nullable {
			sb.WriteString("?")
		}
		if t.Suspend {
			sb.WriteString("s")
		}
	case *Flexible:
		sb.WriteString("X(")
		if !writeKey(sb, t.Lower) {
			return false
		}
		sb.WriteString("..")
		if !writeKey(sb, t.Upper) {
			return false
		}
		sb.WriteString(")")
	case *Error:
		return false
	}
	return true
}
