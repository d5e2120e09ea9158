package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// EvalConstant evaluates a constant-expression source text, such as an
// annotation parameter default, and returns its Go value: int64, float64,
// string, bool, nil, []any or map[string]any.
func EvalConstant(ctx context.Context, src string) (any, error) {
	result, err := risor.Eval(ctx, normalizeConstant(src))
	if err != nil {
		return nil, fmt.Errorf("runtime: constant %q: %w", src, err)
	}
	v, err := ToGo(result)
	if err != nil {
		return nil, fmt.Errorf("runtime: constant %q: %w", src, err)
	}
	return v, nil
}

// ToGo converts a Risor result object to a plain Go value.
func ToGo(obj object.Object) (any, error) {
	switch v := obj.(type) {
	case nil, *object.NilType:
		return nil, nil
	case *object.Int:
		return v.Value(), nil
	case *object.Float:
		return v.Value(), nil
	case *object.String:
		return v.Value(), nil
	case *object.Bool:
		return v.Value(), nil
	case *object.List:
		items := v.Value()
		out := make([]any, len(items))
		for i, item := range items {
			g, err := ToGo(item)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case *object.Map:
		out := make(map[string]any, len(v.Value()))
		for k, item := range v.Value() {
			g, err := ToGo(item)
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	case *object.Proxy:
		return v.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported result type %s", obj.Type())
}

// normalizeConstant strips primary-language numeric suffixes (10L, 1.5f,
// 3uL) and digit separators outside string literals so the text parses as
// a Risor expression.
func normalizeConstant(src string) string {
	var sb strings.Builder
	inString := false
	for i := 0; i < len(src); {
		c := src[i]
		if c == '"' && (i == 0 || src[i-1] != '\\') {
			inString = !inString
		}
		if inString || !isDigit(c) || (i > 0 && isIdentByte(src[i-1])) {
			sb.WriteByte(c)
			i++
			continue
		}
		i = writeNumber(&sb, src, i)
	}
	return sb.String()
}

// writeNumber copies the numeric literal starting at i without its suffix
// and returns the index after it.
func writeNumber(sb *strings.Builder, src string, i int) int {
	suffixes := "fFlLuU"
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		sb.WriteString(src[i : i+2])
		i += 2
		for i < len(src) && (isHexDigit(src[i]) || src[i] == '_') {
			if src[i] != '_' {
				sb.WriteByte(src[i])
			}
			i++
		}
		suffixes = "lLuU"
	} else {
		for i < len(src) && (isDigit(src[i]) || src[i] == '.' || src[i] == '_' || src[i] == 'e' || src[i] == 'E' ||
			((src[i] == '+' || src[i] == '-') && (src[i-1] == 'e' || src[i-1] == 'E'))) {
			if src[i] != '_' {
				sb.WriteByte(src[i])
			}
			i++
		}
	}
	for i < len(src) && strings.IndexByte(suffixes, src[i]) >= 0 {
		i++
	}
	return i
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool { return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' }
func isIdentByte(c byte) bool {
	return isDigit(c) || c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
