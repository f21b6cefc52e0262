package sandbox

import (
	"errors"
	"strings"
	"testing"

	"github.com/reusee/patgen/rands"
)

func TestEvaluate(t *testing.T) {
	e := New(DefaultLimits())
	scope := map[string]any{
		"a":    3,
		"b":    4,
		"x":    -5,
		"xs":   []int{4, 2, 8},
		"name": "Ada",
	}

	cases := []struct {
		expr     string
		expected string
	}{
		{"2+2", "4"},
		{"sqrt(16)", "4.0"},
		{"math.sqrt(a*a + b*b)", "5.0"},
		{"7/2", "3.5"},
		{"4/2", "2.0"},
		{"7//2", "3"},
		{"-7//2", "-4"},
		{"-7%3", "2"},
		{"7%-3", "-2"},
		{"7.5//2", "3.0"},
		{"2**10", "1024"},
		{"-2**2", "-4"},
		{"2**-1", "0.5"},
		{"2**3**2", "512"},
		{"1 < 2 < 3", "True"},
		{"3 > 2 > 2", "False"},
		{"1 == 1.0", "True"},
		{"True + 1", "2"},
		{"0.1 + 0.2", "0.30000000000000004"},
		{"9223372036854775807 + 1", "9.223372036854776e+18"},
		{"1e-05 * 1", "1e-05"},
		{"x if x > 0 else -x", "5"},
		{"a > 0 and b", "4"},
		{"0 or 'none'", "none"},
		{"not a", "False"},
		{"abs(x)", "5"},
		{"round(2.5)", "2"},
		{"round(3.5)", "4"},
		{"round(2.675, 2)", "2.67"},
		{"round(1250, -2)", "1200"},
		{"max(1, 5, 3)", "5"},
		{"min(xs)", "2"},
		{"sum(xs)", "14"},
		{"sum([0.5, 0.25])", "0.75"},
		{"len(name)", "3"},
		{"int(3.9)", "3"},
		{"int('42')", "42"},
		{"float(2)", "2.0"},
		{"pow(2, 10)", "1024"},
		{"pow(3, 4, 5)", "1"},
		{"math.pi", "3.141592653589793"},
		{"floor(2.5) + ceil(2.5)", "5"},
		{"gcd(12, 18)", "6"},
		{"degrees(0)", "0.0"},
		{"xs[-1]", "8"},
		{"{'k': a}['k']", "3"},
		{"'ab' * 3", "ababab"},
		{"name + '!'", "Ada!"},
		{"[a, b]", "[3, 4]"},
		{"(a,)", "(3,)"},
		{"a, b", "(3, 4)"},
		{"2 in xs", "True"},
		{"'d' not in name", "True"},
		{"None is None", "True"},
	}

	for _, c := range cases {
		v, err := e.Evaluate(c.expr, scope)
		if err != nil {
			t.Fatalf("%s: %v", c.expr, err)
		}
		if got := Format(v); got != c.expected {
			t.Fatalf("%s: got %s, expected %s", c.expr, got, c.expected)
		}
	}
}

func TestEvaluateBool(t *testing.T) {
	e := New(DefaultLimits())
	ok, err := e.EvaluateBool("b*b - 4*a*c > 0", map[string]any{
		"a": 1, "b": 5, "c": 6,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("should be true")
	}
	ok, err = e.EvaluateBool("[]", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("empty list should be false")
	}
}

func TestRejected(t *testing.T) {
	e := New(DefaultLimits())
	scope := map[string]any{
		"x":    1,
		"sqrt": 4,
		"s":    "abc",
	}

	cases := []struct {
		expr   string
		reason Reason
	}{
		{"", ReasonEmpty},
		{"   ", ReasonEmpty},
		{"__import__('os')", ReasonDisallowedName},
		{"__builtins__", ReasonDisallowedName},
		{"().__class__", ReasonDisallowedAttribute},
		{"().__class__.__bases__[0].__subclasses__()", ReasonDisallowedAttribute},
		{"x.real", ReasonDisallowedAttribute},
		{"s.upper()", ReasonDisallowedAttribute},
		{"math.__dict__", ReasonDisallowedAttribute},
		{"math.os", ReasonDisallowedAttribute},
		{"math.sqrt.__call__(4)", ReasonDisallowedAttribute},
		{"(y := 5)", ReasonDisallowedNode},
		{"y := 5", ReasonDisallowedNode},
		{"[i for i in [1, 2]]", ReasonDisallowedNode},
		{"{i: i for i in [1, 2]}", ReasonDisallowedNode},
		{"sum(i for i in [1, 2])", ReasonDisallowedNode},
		{"lambda: 1", ReasonDisallowedNode},
		{"(lambda q: q)(1)", ReasonDisallowedNode},
		{"{1, 2}", ReasonDisallowedNode},
		{"s[0:1]", ReasonDisallowedNode},
		{"abs(*[1])", ReasonDisallowedNode},
		{"abs(x=1)", ReasonDisallowedNode},
		{"1 & 2", ReasonDisallowedNode},
		{"~x", ReasonDisallowedNode},
		{"x = 1", ReasonDisallowedNode},
		{"import os", ReasonDisallowedNode},
		{"open('f')", ReasonUnknownName},
		{"eval('1')", ReasonUnknownName},
		{"undefined + 1", ReasonUnknownName},
		{"sqrt(16)", ReasonDisallowedCall},
		{"x(1)", ReasonDisallowedCall},
		{"pi(1)", ReasonDisallowedCall},
		{"max(1, 2)(3)", ReasonDisallowedCall},
		{"randint(1, 6)", ReasonDisallowedName},
		{"random.randint(1, 6)", ReasonDisallowedAttribute},
		{"'a' * 100000", ReasonStepBudget},
		{"1 +", ReasonSyntax},
		{"'unterminated", ReasonSyntax},
		{"99999999999999999999", ReasonSyntax},
		{strings.Repeat("(", 80) + "1" + strings.Repeat(")", 80), ReasonTooDeep},
		{strings.Repeat("1+", 600) + "1", ReasonTooLong},
	}

	for _, c := range cases {
		v, err := e.Evaluate(c.expr, scope)
		if err == nil {
			t.Fatalf("%s: got %v", c.expr, v)
		}
		if !errors.Is(err, ErrSandbox) {
			t.Fatalf("%s: got %v", c.expr, err)
		}
		var sandboxErr *SandboxError
		if !errors.As(err, &sandboxErr) {
			t.Fatalf("%s: got %T", c.expr, err)
		}
		if sandboxErr.Reason != c.reason {
			t.Fatalf("%s: got %v, expected %v", c.expr, sandboxErr.Reason, c.reason)
		}
	}
}

func TestRuntimeErrors(t *testing.T) {
	e := New(DefaultLimits())

	_, err := e.Evaluate("1/0", nil)
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("got %v", err)
	}
	if errors.Is(err, ErrSandbox) {
		t.Fatal("division by zero is not a sandbox violation")
	}
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("got %T", err)
	}
	if evalErr.Pos.Column != 2 {
		t.Fatalf("got %v", evalErr.Pos)
	}

	_, err = e.Evaluate("sqrt(-1)", nil)
	if !errors.Is(err, ErrMathDomain) {
		t.Fatalf("got %v", err)
	}

	_, err = e.Evaluate("[1][5]", nil)
	if err == nil || errors.Is(err, ErrSandbox) {
		t.Fatalf("got %v", err)
	}

	_, err = e.Evaluate("'a' + 1", nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported operand") {
		t.Fatalf("got %v", err)
	}
}

func TestStepBudget(t *testing.T) {
	e := New(Limits{
		MaxSteps: 10,
	})
	_, err := e.Evaluate("1+1+1+1+1+1+1+1+1+1+1", nil)
	var sandboxErr *SandboxError
	if !errors.As(err, &sandboxErr) || sandboxErr.Reason != ReasonStepBudget {
		t.Fatalf("got %v", err)
	}
	if e.Limits().MaxDepth != DefaultLimits().MaxDepth {
		t.Fatalf("got %+v", e.Limits())
	}
}

func TestRandom(t *testing.T) {
	e := New(DefaultLimits())
	for range 100 {
		v, err := e.Evaluate("randint(1, 6)", nil, AllowRandom(rands.New(7)))
		if err != nil {
			t.Fatal(err)
		}
		n := v.(int64)
		if n < 1 || n > 6 {
			t.Fatalf("got %v", n)
		}
	}

	a, err := e.Evaluate("random.choice(['x', 'y', 'z']) + str_", map[string]any{
		"str_": "!",
	}, AllowRandom(rands.FromString("seed")))
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Evaluate("random.choice(['x', 'y', 'z']) + str_", map[string]any{
		"str_": "!",
	}, AllowRandom(rands.FromString("seed")))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("got %v %v", a, b)
	}

	v, err := e.Evaluate("uniform(1, 2)", nil, AllowRandom(nil))
	if err != nil {
		t.Fatal(err)
	}
	if f := v.(float64); f < 1 || f >= 2 {
		t.Fatalf("got %v", f)
	}
}

func TestPurity(t *testing.T) {
	e := New(DefaultLimits())
	xs := []any{1, 2, 3}
	scope := map[string]any{
		"xs": xs,
		"n":  1,
	}
	for range 3 {
		v, err := e.Evaluate("xs + [n * 2]", scope)
		if err != nil {
			t.Fatal(err)
		}
		if got := Format(v); got != "[1, 2, 3, 2]" {
			t.Fatalf("got %s", got)
		}
	}
	if len(xs) != 3 || scope["n"] != 1 {
		t.Fatalf("scope mutated: %v", scope)
	}
}

func TestScope(t *testing.T) {
	e := New(DefaultLimits())
	s, err := e.NewScope(map[string]any{
		"a": 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	node, err := e.Parse("a * 10")
	if err != nil {
		t.Fatal(err)
	}
	v, err := s.Eval(node, "a * 10")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Define("b", v); err != nil {
		t.Fatal(err)
	}
	if got, ok := s.Get("b"); !ok || got != int64(20) {
		t.Fatalf("got %v", got)
	}
	if len(s.Vars()) != 2 {
		t.Fatalf("got %v", s.Vars())
	}

	for _, name := range []string{"sqrt", "math", "pi", "__x", "randint"} {
		err := s.Define(name, int64(1))
		if !errors.Is(err, ErrSandbox) {
			t.Fatalf("%s: got %v", name, err)
		}
	}

	if _, err := e.NewScope(map[string]any{"__class__": 1}); !errors.Is(err, ErrSandbox) {
		t.Fatalf("got %v", err)
	}
	if _, err := e.NewScope(map[string]any{"f": func() {}}); err == nil {
		t.Fatal("should error")
	}
}

func TestErrorMessage(t *testing.T) {
	e := New(DefaultLimits())
	_, err := e.Evaluate("1 + foo", nil)
	if err == nil {
		t.Fatal("should error")
	}
	expected := "sandbox: unknown name: foo at 1:5\n1 + foo\n    ^"
	if err.Error() != expected {
		t.Fatalf("got %q", err.Error())
	}
}
