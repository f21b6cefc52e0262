package sandbox

import (
	"math"
	"strconv"
	"strings"
)

// Format renders v the way Python str() does: 4, 4.0, True, [1, 'a'].
func Format(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Repr(v)
}

// Repr renders v the way Python repr() does; strings are quoted.
func Repr(v Value) string {
	var sb strings.Builder
	writeRepr(&sb, v)
	return sb.String()
}

func writeRepr(sb *strings.Builder, v Value) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("None")
	case bool:
		if v {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case float64:
		sb.WriteString(FormatFloat(v))
	case string:
		writeQuoted(sb, v)
	case List:
		sb.WriteString("[")
		writeElems(sb, v)
		sb.WriteString("]")
	case Tuple:
		sb.WriteString("(")
		writeElems(sb, v)
		if len(v) == 1 {
			sb.WriteString(",")
		}
		sb.WriteString(")")
	case *Dict:
		sb.WriteString("{")
		for i, k := range v.Keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeRepr(sb, k)
			sb.WriteString(": ")
			writeRepr(sb, v.Values[i])
		}
		sb.WriteString("}")
	case *Native:
		sb.WriteString("<built-in function ")
		sb.WriteString(v.Name)
		sb.WriteString(">")
	case *Namespace:
		sb.WriteString("<module '")
		sb.WriteString(v.Name)
		sb.WriteString("'>")
	default:
		sb.WriteString("<")
		sb.WriteString(typeName(v))
		sb.WriteString(">")
	}
}

func writeElems(sb *strings.Builder, elems []Value) {
	for i, e := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeRepr(sb, e)
	}
}

func writeQuoted(sb *strings.Builder, s string) {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	sb.WriteByte(quote)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r == rune(quote) {
				sb.WriteByte('\\')
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(quote)
}

// FormatFloat gives the shortest repr that round-trips, switching to
// exponent notation outside [1e-4, 1e16) like Python.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	exp := strconv.FormatFloat(f, 'e', -1, 64)
	idx := strings.IndexByte(exp, 'e')
	e, _ := strconv.Atoi(exp[idx+1:])
	if e < -4 || e >= 16 {
		return exp
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
