package types

import "strings"

// Format renders t in source-like notation using qualified class names:
//
//	kotlin.collections.List<out kotlin.String>?
//	(kotlin.Int) -> kotlin.Unit
//	kotlin.String!          flexible between kotlin.String and kotlin.String?
func Format(t Type) string {
	var sb strings.Builder
	format(&sb, t)
	return sb.String()
}

func format(sb *strings.Builder, t Type) {
	switch t := t.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Nominal:
		sb.WriteString(t.Class)
		if len(t.Args) > 0 {
			sb.WriteByte('<')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				if a.Projection == Star {
					sb.WriteByte('*')
					continue
				}
				if a.Projection != Invariant {
					sb.WriteString(a.Projection.String())
					sb.WriteByte(' ')
				}
				format(sb, a.Type)
			}
			sb.WriteByte('>')
		}
		if t.Nullable {
			sb.WriteByte('?')
		}
	case *ParamRef:
		sb.WriteString(t.Param.Name)
		switch t.Nullability {
		case Nullable:
			sb.WriteByte('?')
		case NotNull:
			sb.WriteString(" & Any")
		}
	case *Function:
		if t.Nullable {
			sb.WriteByte('(')
		}
		if t.Suspend {
			sb.WriteString("suspend ")
		}
		if t.Receiver != nil {
			format(sb, t.Receiver)
			sb.WriteByte('.')
		}
		sb.WriteByte('(')
		for i, p := range t.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, p)
		}
		sb.WriteString(") -> ")
		format(sb, t.Return)
		if t.Nullable {
			sb.WriteString(")?")
		}
	case *Error:
		sb.WriteString("<ERROR")
		if t.Reason != "" {
			sb.WriteString(": ")
			sb.WriteString(t.Reason)
		}
		sb.WriteByte('>')
	case *Flexible:
		if Equal(MakeNullable(t.Lower), t.Upper) {
			format(sb, t.Lower)
			sb.WriteByte('!')
			return
		}
		sb.WriteByte('(')
		format(sb, t.Lower)
		sb.WriteString("..")
		format(sb, t.Upper)
		sb.WriteByte(')')
	}
}
