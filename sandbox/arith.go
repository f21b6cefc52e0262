package sandbox

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrMathDomain     = errors.New("math domain error")
	ErrMathRange      = errors.New("numerical result out of range")
)

func unsupportedOperands(op string, a, b Value) error {
	return fmt.Errorf("unsupported operand type(s) for %s: '%s' and '%s'", op, typeName(a), typeName(b))
}

func (m *machine) binary(op string, a, b Value) (Value, error) {
	ai, af, aInt, aNum := asNumber(a)
	bi, bf, bInt, bNum := asNumber(b)

	if aNum && bNum {
		if aInt && bInt {
			return intBinary(op, ai, bi)
		}
		return floatBinary(op, af, bf)
	}

	switch op {
	case "+":
		switch a := a.(type) {
		case string:
			if b, ok := b.(string); ok {
				return m.checkString(a + b)
			}
		case List:
			if b, ok := b.(List); ok {
				return m.checkSeq(concat(a, b))
			}
		case Tuple:
			if b, ok := b.(Tuple); ok {
				return m.checkSeq(Tuple(concat(a, b)))
			}
		}

	case "*":
		if n, ok := asInt(b); ok {
			if ret, ok, err := m.repeat(a, n); ok {
				return ret, err
			}
		}
		if n, ok := asInt(a); ok {
			if ret, ok, err := m.repeat(b, n); ok {
				return ret, err
			}
		}

	}

	return nil, unsupportedOperands(op, a, b)
}

func concat(a, b []Value) List {
	ret := make(List, 0, len(a)+len(b))
	ret = append(ret, a...)
	ret = append(ret, b...)
	return ret
}

func (m *machine) repeat(v Value, n int64) (Value, bool, error) {
	if n < 0 {
		n = 0
	}
	size := func(l int) error {
		if l > 0 && n > int64(m.limits.MaxStringLength/l) {
			return violation(ReasonStepBudget, Pos{}, "repetition result longer than %d", m.limits.MaxStringLength)
		}
		return nil
	}
	switch v := v.(type) {
	case string:
		if err := size(len(v)); err != nil {
			return nil, true, err
		}
		return strings.Repeat(v, int(n)), true, nil
	case List:
		if err := size(len(v)); err != nil {
			return nil, true, err
		}
		ret := make(List, 0, len(v)*int(n))
		for range n {
			ret = append(ret, v...)
		}
		return ret, true, nil
	case Tuple:
		if err := size(len(v)); err != nil {
			return nil, true, err
		}
		ret := make(Tuple, 0, len(v)*int(n))
		for range n {
			ret = append(ret, v...)
		}
		return ret, true, nil
	}
	return nil, false, nil
}

func (m *machine) checkString(s string) (Value, error) {
	if len(s) > m.limits.MaxStringLength {
		return nil, violation(ReasonStepBudget, Pos{}, "string longer than %d", m.limits.MaxStringLength)
	}
	return s, nil
}

func (m *machine) checkSeq(l []Value) (Value, error) {
	if len(l) > m.limits.MaxStringLength {
		return nil, violation(ReasonStepBudget, Pos{}, "sequence longer than %d", m.limits.MaxStringLength)
	}
	return l, nil
}

// intBinary keeps int results exact and falls back to float on overflow.
func intBinary(op string, a, b int64) (Value, error) {
	switch op {

	case "+":
		s := a + b
		if (s > a) == (b > 0) {
			return s, nil
		}
		return float64(a) + float64(b), nil

	case "-":
		s := a - b
		if (s < a) == (b > 0) {
			return s, nil
		}
		return float64(a) - float64(b), nil

	case "*":
		if p, ok := mulInt(a, b); ok {
			return p, nil
		}
		return float64(a) * float64(b), nil

	case "/":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return float64(a) / float64(b), nil

	case "//":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		if a == math.MinInt64 && b == -1 {
			return -float64(a), nil
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, nil

	case "%":
		if b == 0 {
			return nil, fmt.Errorf("integer modulo by zero")
		}
		if b == -1 {
			return int64(0), nil
		}
		r := a % b
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, nil

	case "**":
		if b < 0 {
			if a == 0 {
				return nil, fmt.Errorf("0.0 cannot be raised to a negative power")
			}
			return math.Pow(float64(a), float64(b)), nil
		}
		if p, ok := powInt(a, b); ok {
			return p, nil
		}
		f := math.Pow(float64(a), float64(b))
		if math.IsInf(f, 0) {
			return nil, ErrMathRange
		}
		return f, nil

	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	neg := (a < 0) != (b < 0)
	ua, ub := absUint(a), absUint(b)
	hi, lo := bits.Mul64(ua, ub)
	if hi != 0 {
		return 0, false
	}
	if neg {
		if lo > 1<<63 {
			return 0, false
		}
		return int64(-lo), true
	}
	if lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

func absUint(a int64) uint64 {
	if a < 0 {
		return uint64(-a)
	}
	return uint64(a)
}

func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			var ok bool
			result, ok = mulInt(result, base)
			if !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			var ok bool
			base, ok = mulInt(base, base)
			if !ok {
				return 0, false
			}
		}
	}
	return result, true
}

func floatBinary(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("float division by zero")
		}
		return a / b, nil
	case "//":
		if b == 0 {
			return nil, fmt.Errorf("float floor division by zero")
		}
		return math.Floor(a / b), nil
	case "%":
		if b == 0 {
			return nil, fmt.Errorf("float modulo")
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, nil
	case "**":
		return floatPow(a, b)
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

func floatPow(a, b float64) (Value, error) {
	if a == 0 && b < 0 {
		return nil, fmt.Errorf("0.0 cannot be raised to a negative power")
	}
	if a < 0 && b != math.Trunc(b) {
		return nil, fmt.Errorf("complex result: %w", ErrMathDomain)
	}
	r := math.Pow(a, b)
	if math.IsInf(r, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
		return nil, ErrMathRange
	}
	return r, nil
}

func unary(op string, v Value) (Value, error) {
	if op == "not" {
		return !Truthy(v), nil
	}
	i, f, isInt, ok := asNumber(v)
	if !ok {
		return nil, fmt.Errorf("bad operand type for unary %s: '%s'", op, typeName(v))
	}
	switch op {
	case "-":
		if isInt {
			if i == math.MinInt64 {
				return -float64(i), nil
			}
			return -i, nil
		}
		return -f, nil
	case "+":
		if isInt {
			return i, nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported unary operator %s", op)
}

func contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(c, s), nil
	case List:
		return containsValue(c, item), nil
	case Tuple:
		return containsValue(c, item), nil
	case *Dict:
		_, ok := c.Get(item)
		return ok, nil
	}
	return false, fmt.Errorf("argument of type '%s' is not iterable", typeName(container))
}

func containsValue(seq []Value, item Value) bool {
	for _, e := range seq {
		if equal(e, item) {
			return true
		}
	}
	return false
}

func index(container, key Value) (Value, error) {
	switch c := container.(type) {
	case List:
		i, err := seqIndex(len(c), key, "list")
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case Tuple:
		i, err := seqIndex(len(c), key, "tuple")
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case string:
		runes := []rune(c)
		i, err := seqIndex(len(runes), key, "string")
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	case *Dict:
		if !hashable(key) {
			return nil, fmt.Errorf("unhashable type: '%s'", typeName(key))
		}
		v, ok := c.Get(key)
		if !ok {
			return nil, fmt.Errorf("KeyError: %s", Repr(key))
		}
		return v, nil
	}
	return nil, fmt.Errorf("'%s' object is not subscriptable", typeName(container))
}

func seqIndex(length int, key Value, what string) (int, error) {
	i, ok := asInt(key)
	if !ok {
		return 0, fmt.Errorf("%s indices must be integers, not %s", what, typeName(key))
	}
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, fmt.Errorf("%s index out of range", what)
	}
	return int(i), nil
}
