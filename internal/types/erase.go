package types

import (
	"strconv"

	set "github.com/hashicorp/go-set/v3"
)

// ErrorClass is the erasure of an error type.
const ErrorClass = "error.NonExistentClass"

// Erase returns the class a type erases to: type parameters erase to their
// first bound (kotlin.Any when unbounded), function types to
// kotlin.FunctionN, flexible types to their lower bound.
func Erase(t Type) *Nominal {
	return erase(t, set.New[string](0))
}

func erase(t Type, visiting *set.Set[string]) *Nominal {
	switch t := t.(type) {
	case *Nominal:
		if t.Class == PlatformArray && len(t.Args) == 1 && t.Args[0].Type != nil {
			return &Nominal{Class: PlatformArray, Args: []Argument{{Type: erase(t.Args[0].Type, visiting)}}, Nullable: t.Nullable}
		}
		if t.Class == "kotlin.Array" && len(t.Args) == 1 && t.Args[0].Type != nil {
			return &Nominal{Class: t.Class, Args: []Argument{{Type: erase(t.Args[0].Type, visiting)}}, Nullable: t.Nullable}
		}
		return &Nominal{Class: t.Class, Nullable: t.Nullable}
	case *ParamRef:
		nullable := IsNullable(t)
		if len(t.Param.Bounds) == 0 || !visiting.Insert(t.Param.ID) {
			return &Nominal{Class: "kotlin.Any", Nullable: nullable}
		}
		defer visiting.Remove(t.Param.ID)
		e := erase(t.Param.Bounds[0], visiting)
		e.Nullable = nullable
		return e
	case *Function:
		n := len(t.Params)
		if t.Receiver != nil {
			n++
		}
		return &Nominal{Class: "kotlin.Function" + strconv.Itoa(n), Nullable: t.Nullable}
	case *Flexible:
		return erase(t.Lower, visiting)
	}
	return &Nominal{Class: ErrorClass}
}
