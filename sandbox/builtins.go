package sandbox

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

var Abs = &Native{
	Name: "abs",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("abs", args, 1, 1); err != nil {
			return nil, err
		}
		i, f, isInt, ok := asNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("bad operand type for abs(): '%s'", typeName(args[0]))
		}
		if isInt {
			if i == math.MinInt64 {
				return -float64(i), nil
			}
			if i < 0 {
				return -i, nil
			}
			return i, nil
		}
		return math.Abs(f), nil
	},
}

var Round = &Native{
	Name: "round",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("round", args, 1, 2); err != nil {
			return nil, err
		}
		i, f, isInt, ok := asNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("type %s doesn't define __round__ method", typeName(args[0]))
		}

		if len(args) == 1 || args[1] == nil {
			if isInt {
				return i, nil
			}
			return floatToInt(math.RoundToEven(f))
		}

		digits, ok := asInt(args[1])
		if !ok {
			return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", typeName(args[1]))
		}

		if isInt {
			if digits >= 0 {
				return i, nil
			}
			if digits < -18 {
				return int64(0), nil
			}
			p := int64(math.Pow10(int(-digits)))
			q, r := i/p, i%p
			if r < 0 {
				q--
				r += p
			}
			if 2*r > p || (2*r == p && q%2 != 0) {
				q++
			}
			return q * p, nil
		}

		if math.IsInf(f, 0) || math.IsNaN(f) {
			return f, nil
		}
		if digits > 300 {
			return f, nil
		}
		if digits < 0 {
			p := math.Pow10(int(-digits))
			return math.RoundToEven(f/p) * p, nil
		}
		// strconv rounds the exact binary value half to even, as Python does.
		ret, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(digits), 64), 64)
		if err != nil {
			return nil, err
		}
		return ret, nil
	},
}

var Min = &Native{
	Name: "min",
	Func: func(m *machine, args []Value) (Value, error) {
		return extreme(m, "min", args, -1)
	},
}

var Max = &Native{
	Name: "max",
	Func: func(m *machine, args []Value) (Value, error) {
		return extreme(m, "max", args, 1)
	},
}

func extreme(m *machine, name string, args []Value, want int) (Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s expected at least 1 argument, got 0", name)
	}
	candidates := args
	if len(args) == 1 {
		seq, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		candidates = seq
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%s() arg is an empty sequence", name)
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if err := m.step(); err != nil {
			return nil, err
		}
		op := "<"
		if want > 0 {
			op = ">"
		}
		n, err := compare(op, c, best)
		if errors.Is(err, errUnordered) {
			continue
		} else if err != nil {
			return nil, err
		}
		if n == want {
			best = c
		}
	}
	return best, nil
}

var Int = &Native{
	Name: "int",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("int", args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return int64(0), nil
		}
		switch v := args[0].(type) {
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case int64:
			return v, nil
		case float64:
			return floatToInt(math.Trunc(v))
		case string:
			s := strings.ReplaceAll(strings.TrimSpace(v), "_", "")
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid literal for int() with base 10: %s", Repr(v))
			}
			return i, nil
		}
		return nil, fmt.Errorf("int() argument must be a string or a number, not '%s'", typeName(args[0]))
	},
}

var Float = &Native{
	Name: "float",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("float", args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return float64(0), nil
		}
		if s, ok := args[0].(string); ok {
			f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), "_", ""), 64)
			if err != nil {
				var numErr *strconv.NumError
				if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
					return f, nil
				}
				return nil, fmt.Errorf("could not convert string to float: %s", Repr(s))
			}
			return f, nil
		}
		_, f, _, ok := asNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("float() argument must be a string or a number, not '%s'", typeName(args[0]))
		}
		return f, nil
	},
}

var Pow = &Native{
	Name: "pow",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("pow", args, 2, 3); err != nil {
			return nil, err
		}
		if len(args) == 2 {
			return m.binary("**", args[0], args[1])
		}
		base, ok1 := asInt(args[0])
		exp, ok2 := asInt(args[1])
		mod, ok3 := asInt(args[2])
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("pow() 3rd argument not allowed unless all arguments are integers")
		}
		if mod == 0 {
			return nil, fmt.Errorf("pow() 3rd argument cannot be 0")
		}
		if exp < 0 {
			return nil, fmt.Errorf("pow() 2nd argument cannot be negative when 3rd argument specified")
		}
		absMod := new(big.Int).Abs(big.NewInt(mod))
		r := new(big.Int).Exp(big.NewInt(base), big.NewInt(exp), absMod)
		if r.Sign() < 0 {
			r.Add(r, absMod)
		}
		ret := r.Int64()
		if mod < 0 && ret != 0 {
			ret += mod
		}
		return ret, nil
	},
}

var Sum = &Native{
	Name: "sum",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("sum", args, 1, 2); err != nil {
			return nil, err
		}
		seq, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		var total Value = int64(0)
		if len(args) == 2 {
			if _, ok := args[1].(string); ok {
				return nil, fmt.Errorf("sum() can't sum strings")
			}
			total = args[1]
		}
		for _, v := range seq {
			if err := m.step(); err != nil {
				return nil, err
			}
			total, err = m.binary("+", total, v)
			if err != nil {
				return nil, err
			}
		}
		return total, nil
	},
}

var Len = &Native{
	Name: "len",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("len", args, 1, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case string:
			return int64(len([]rune(v))), nil
		case List:
			return int64(len(v)), nil
		case Tuple:
			return int64(len(v)), nil
		case *Dict:
			return int64(v.Len()), nil
		}
		return nil, fmt.Errorf("object of type '%s' has no len()", typeName(args[0]))
	},
}

func arity(name string, args []Value, min, max int) error {
	if len(args) >= min && len(args) <= max {
		return nil
	}
	if min == max {
		return fmt.Errorf("%s() takes exactly %d argument(s) (%d given)", name, min, len(args))
	}
	return fmt.Errorf("%s() takes from %d to %d arguments (%d given)", name, min, max, len(args))
}

func iterate(v Value) ([]Value, error) {
	switch v := v.(type) {
	case List:
		return v, nil
	case Tuple:
		return v, nil
	case string:
		ret := make([]Value, 0, len(v))
		for _, r := range v {
			ret = append(ret, string(r))
		}
		return ret, nil
	case *Dict:
		return v.Keys, nil
	}
	return nil, fmt.Errorf("'%s' object is not iterable", typeName(v))
}

func floatToInt(f float64) (Value, error) {
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot convert float infinity to integer")
	}
	if math.IsNaN(f) {
		return nil, fmt.Errorf("cannot convert float NaN to integer")
	}
	if f >= -9.223372036854775808e18 && f < 9.223372036854775808e18 {
		return int64(f), nil
	}
	// out of int64 range, keep the integral float
	return f, nil
}
