package sandbox

import (
	"fmt"
	"math"
)

func mathFunc1(name string, fn func(float64) (float64, error)) *Native {
	return &Native{
		Name: name,
		Func: func(m *machine, args []Value) (Value, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			_, f, _, ok := asNumber(args[0])
			if !ok {
				return nil, fmt.Errorf("must be real number, not %s", typeName(args[0]))
			}
			return fn(f)
		},
	}
}

func total(fn func(float64) float64) func(float64) (float64, error) {
	return func(f float64) (float64, error) {
		return fn(f), nil
	}
}

func unitDomain(fn func(float64) float64) func(float64) (float64, error) {
	return func(f float64) (float64, error) {
		if f < -1 || f > 1 {
			return 0, ErrMathDomain
		}
		return fn(f), nil
	}
}

func finiteDomain(fn func(float64) float64) func(float64) (float64, error) {
	return func(f float64) (float64, error) {
		if math.IsInf(f, 0) {
			return 0, ErrMathDomain
		}
		return fn(f), nil
	}
}

var (
	Sqrt = mathFunc1("sqrt", func(f float64) (float64, error) {
		if f < 0 {
			return 0, ErrMathDomain
		}
		return math.Sqrt(f), nil
	})
	Sin     = mathFunc1("sin", finiteDomain(math.Sin))
	Cos     = mathFunc1("cos", finiteDomain(math.Cos))
	Tan     = mathFunc1("tan", finiteDomain(math.Tan))
	Asin    = mathFunc1("asin", unitDomain(math.Asin))
	Acos    = mathFunc1("acos", unitDomain(math.Acos))
	Atan    = mathFunc1("atan", total(math.Atan))
	Degrees = mathFunc1("degrees", total(func(f float64) float64 {
		return f * 180 / math.Pi
	}))
	Radians = mathFunc1("radians", total(func(f float64) float64 {
		return f * math.Pi / 180
	}))
)

var Ceil = &Native{
	Name: "ceil",
	Func: func(m *machine, args []Value) (Value, error) {
		return rounding("ceil", args, math.Ceil)
	},
}

var Floor = &Native{
	Name: "floor",
	Func: func(m *machine, args []Value) (Value, error) {
		return rounding("floor", args, math.Floor)
	},
}

func rounding(name string, args []Value, fn func(float64) float64) (Value, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return nil, err
	}
	i, f, isInt, ok := asNumber(args[0])
	if !ok {
		return nil, fmt.Errorf("must be real number, not %s", typeName(args[0]))
	}
	if isInt {
		return i, nil
	}
	return floatToInt(fn(f))
}

var Gcd = &Native{
	Name: "gcd",
	Func: func(m *machine, args []Value) (Value, error) {
		var ret int64
		for _, arg := range args {
			i, ok := asInt(arg)
			if !ok {
				return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", typeName(arg))
			}
			ret = gcd(ret, i)
		}
		return ret, nil
	},
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

var RandInt = &Native{
	Name: "randint",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("randint", args, 2, 2); err != nil {
			return nil, err
		}
		a, ok1 := asInt(args[0])
		b, ok2 := asInt(args[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("randint() arguments must be integers")
		}
		if b < a {
			return nil, fmt.Errorf("empty range for randint(%d, %d)", a, b)
		}
		return m.rand.Int(a, b), nil
	},
}

var Uniform = &Native{
	Name: "uniform",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("uniform", args, 2, 2); err != nil {
			return nil, err
		}
		_, a, _, ok1 := asNumber(args[0])
		_, b, _, ok2 := asNumber(args[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("uniform() arguments must be numbers")
		}
		return m.rand.Float(a, b), nil
	},
}

var Choice = &Native{
	Name: "choice",
	Func: func(m *machine, args []Value) (Value, error) {
		if err := arity("choice", args, 1, 1); err != nil {
			return nil, err
		}
		var seq []Value
		switch v := args[0].(type) {
		case List:
			seq = v
		case Tuple:
			seq = v
		case string:
			for _, r := range v {
				seq = append(seq, string(r))
			}
		default:
			return nil, fmt.Errorf("'%s' object is not subscriptable", typeName(args[0]))
		}
		if len(seq) == 0 {
			return nil, fmt.Errorf("cannot choose from an empty sequence")
		}
		return seq[m.rand.Choose(len(seq))], nil
	},
}

// whitelist kinds, shared by the checker and the environment builder
type entryKind uint8

const (
	entryFunc entryKind = iota + 1
	entryConst
	entryNamespace
)

var builtinFuncs = []*Native{
	Abs, Round, Min, Max, Int, Float, Pow, Sum, Len,
}

var mathFuncs = []*Native{
	Sqrt, Sin, Cos, Tan, Asin, Acos, Atan, Degrees, Radians, Gcd, Ceil, Floor,
}

var mathConsts = map[string]Value{
	"pi": math.Pi,
	"e":  math.E,
}

var randomFuncs = []*Native{
	RandInt, Uniform, Choice,
}

const (
	mathName   = "math"
	randomName = "random"
)

func namespace(name string, funcs []*Native, consts map[string]Value) *Namespace {
	ns := &Namespace{
		Name:    name,
		Members: make(map[string]Value),
	}
	for _, fn := range funcs {
		ns.Members[fn.Name] = fn
	}
	for k, v := range consts {
		ns.Members[k] = v
	}
	return ns
}

var (
	mathNamespace   = namespace(mathName, mathFuncs, mathConsts)
	randomNamespace = namespace(randomName, randomFuncs, nil)
)

// baseEnv holds every name an expression may reference without random.
var baseEnv = func() *Env {
	env := new(Env)
	for _, fn := range builtinFuncs {
		env.Def(fn.Name, fn)
	}
	for _, fn := range mathFuncs {
		env.Def(fn.Name, fn)
	}
	for k, v := range mathConsts {
		env.Def(k, v)
	}
	env.Def(mathName, mathNamespace)
	return env
}()

var randomEnv = func() *Env {
	env := baseEnv.NewChild()
	for _, fn := range randomFuncs {
		env.Def(fn.Name, fn)
	}
	env.Def(randomName, randomNamespace)
	return env
}()

// whitelist maps each pre-registered name to its kind.
func whitelist(allowRandom bool) map[string]entryKind {
	if allowRandom {
		return randomWhitelist
	}
	return baseWhitelist
}

var baseWhitelist, randomWhitelist = func() (map[string]entryKind, map[string]entryKind) {
	base := make(map[string]entryKind)
	for _, fn := range builtinFuncs {
		base[fn.Name] = entryFunc
	}
	for _, fn := range mathFuncs {
		base[fn.Name] = entryFunc
	}
	for k := range mathConsts {
		base[k] = entryConst
	}
	base[mathName] = entryNamespace
	withRandom := make(map[string]entryKind, len(base)+len(randomFuncs)+1)
	for k, v := range base {
		withRandom[k] = v
	}
	for _, fn := range randomFuncs {
		withRandom[fn.Name] = entryFunc
	}
	withRandom[randomName] = entryNamespace
	return base, withRandom
}()

// IsReserved reports whether name is a pre-registered function, constant or namespace.
func IsReserved(name string) bool {
	_, ok := randomWhitelist[name]
	return ok
}
