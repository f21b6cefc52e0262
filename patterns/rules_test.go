package patterns

import (
	"errors"
	"testing"

	"github.com/reusee/patgen/sandbox"
)

func TestValidatorCheck(t *testing.T) {
	v := NewValidator(sandbox.New(sandbox.DefaultLimits()))
	scope := map[string]any{
		"a": 1,
		"b": 4,
		"c": 4,
	}

	if err := v.Check([]string{"{b}**2 - 4*{a}*{c} >= 0", "a != 0"}, scope); err != nil {
		t.Fatal(err)
	}

	err := v.Check([]string{"a > 0", "b < a"}, scope)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("got %v", err)
	}
	if ruleErr.Index != 1 || ruleErr.Err != nil {
		t.Fatalf("got %+v", ruleErr)
	}

	err = v.Check([]string{"1 / (a - 1) > 0"}, scope)
	if !errors.As(err, &ruleErr) || !errors.Is(err, sandbox.ErrDivisionByZero) {
		t.Fatalf("got %v", err)
	}
	if errors.Is(err, sandbox.ErrSandbox) {
		t.Fatal("runtime failure is not a violation")
	}

	err = v.Check([]string{"__import__('os')"}, scope)
	if !errors.Is(err, sandbox.ErrSandbox) {
		t.Fatalf("got %v", err)
	}

	if err := v.Parse([]string{"a >", "b"}); err == nil {
		t.Fatal("should error")
	}
}

func TestRuleTokensInStringLiterals(t *testing.T) {
	v := NewValidator(sandbox.New(sandbox.DefaultLimits()))
	scope := map[string]any{
		"unit": "cm",
	}
	if err := v.Check([]string{"'{unit}' == 'cm'", "{unit} == 'cm'"}, scope); err != nil {
		t.Fatal(err)
	}
	err := v.Check([]string{"'{unit}' == 'unit'"}, scope)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) || ruleErr.Err != nil {
		t.Fatalf("got %v", err)
	}
	err = v.Check([]string{"'{other}' == 'cm'"}, scope)
	if !errors.Is(err, sandbox.ErrSandbox) {
		t.Fatalf("got %v", err)
	}
	if err := v.Parse([]string{"'{unit}' + 'x'"}); err != nil {
		t.Fatal(err)
	}
}
