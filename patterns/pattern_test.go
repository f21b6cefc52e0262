package patterns

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodePattern(t *testing.T) {
	p, err := DecodePattern([]byte(`{
		"pattern_id": "circle-area",
		"topic": "mensuration",
		"marks": 2,
		"difficulty": 0.3,
		"template_text": "Find the area of a circle of radius {r}",
		"variables": {
			"r": {"type": "float", "min": 1, "max": 10},
			"n": {"type": "int", "min": 1, "max": 3.0},
			"area": {"type": "calculated", "formula": "pi * {r} ** 2"},
			"unit": {"type": "choice", "choices": ["cm", "m", 2]}
		},
		"solution_template": ["A = pi r^2"],
		"answer_template": "{round(area, 2)}",
		"socratic_hints": [{"level": 1, "hint": "Recall the formula", "nudge": "pi r squared"}],
		"validation_rules": ["area > 0"],
		"created_at": "2024-01-02T03:04:05Z"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(p.Variables.Names(), ","); got != "r,n,area,unit" {
		t.Fatalf("got %s", got)
	}
	r, ok := p.Variables.Get("r")
	if !ok {
		t.Fatal("missing r")
	}
	if spec := r.(FloatSpec); spec.Decimals != DefaultDecimals || spec.Max != 10 {
		t.Fatalf("got %+v", spec)
	}
	if n, _ := p.Variables.Get("n"); n.(IntSpec).Max != 3 {
		t.Fatalf("got %+v", n)
	}
	if p.CreatedAt.Year() != 2024 || !p.UpdatedAt.IsZero() {
		t.Fatalf("got %v %v", p.CreatedAt, p.UpdatedAt)
	}
	if p.SocraticHints[0].Nudge != "pi r squared" {
		t.Fatalf("got %+v", p.SocraticHints)
	}

	data, err := EncodePattern(p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "updated_at") || strings.Contains(string(data), "solver_code") {
		t.Fatalf("got %s", data)
	}
	again, err := DecodePattern(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(again.Variables.Names(), ","); got != "r,n,area,unit" {
		t.Fatalf("got %s", got)
	}
	if unit, _ := again.Variables.Get("unit"); len(unit.(ChoiceSpec).Choices) != 3 {
		t.Fatalf("got %+v", unit)
	}
}

func TestDecodeBadVariables(t *testing.T) {
	cases := []string{
		`{"x": {"type": "int", "min": 1.5, "max": 2}}`,
		`{"x": {"type": "int", "max": 2}}`,
		`{"x": {"type": "int", "min": 9.223372036854775807e18, "max": 2}}`,
		`{"x": {"type": "int", "min": 1, "max": -1e19}}`,
		`{"x": {"type": "lambda"}}`,
		`{"x": {"min": 1}}`,
		`{"x": {"type": "choice"}, "x": {"type": "choice"}}`,
		`[]`,
	}
	for _, c := range cases {
		var vars Variables
		if err := json.Unmarshal([]byte(c), &vars); err == nil {
			t.Fatalf("%s: got %v", c, vars)
		}
	}
}

func TestCheck(t *testing.T) {
	testScope(t, nil).Call(func(
		checker *Checker,
	) {
		if err := checker.Check(quadraticPattern()); err != nil {
			t.Fatal(err)
		}

		p := quadraticPattern()
		p.ID = "../escape"
		p.Difficulty = 2
		p.Variables = append(p.Variables,
			Variable{Name: "__class__", Spec: IntSpec{Min: 1, Max: 2}},
			Variable{Name: "lo", Spec: IntSpec{Min: 3, Max: 2}},
			Variable{Name: "f", Spec: FloatSpec{Min: 0, Max: 1, Decimals: 20}},
			Variable{Name: "none", Spec: ChoiceSpec{}},
			Variable{Name: "blank", Spec: CalculatedSpec{Formula: " "}},
		)
		p.ValidationRules = append(p.ValidationRules, "")
		p.SolverCode = "answer = 1; a = 2"
		err := checker.Check(p)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("got %v", err)
		}
		problems := strings.Join(validationErr.Problems, "\n")
		for _, expected := range []string{
			"Pattern.ID",
			"Pattern.Difficulty",
			"ValidationRules[1]",
			"variable __class__: reserved name",
			"variable lo: min 3 greater than max 2",
			"variable f: decimals",
			"variable none: no choices",
			"variable blank: empty formula",
			"solver assigns declared variable a",
		} {
			if !strings.Contains(problems, expected) {
				t.Fatalf("missing %q in %s", expected, problems)
			}
		}

		p = quadraticPattern()
		p.SolverCode = "return 1"
		p.Variables = append(p.Variables, Variable{Name: "answer", Spec: IntSpec{Min: 1, Max: 1}})
		if err := checker.Check(p); !errors.As(err, &validationErr) {
			t.Fatalf("got %v", err)
		}

		p = quadraticPattern()
		p.Variables = append(p.Variables,
			Variable{Name: "e", Spec: IntSpec{Min: 10, Max: 10}},
			Variable{Name: "max", Spec: CalculatedSpec{Formula: "{e} + 1"}},
		)
		if err := checker.Check(p); err != nil {
			t.Fatal(err)
		}

		p = quadraticPattern()
		p.TemplateText = "{a +}"
		if err := checker.Check(p); err != nil {
			t.Fatal(err)
		}
		if warnings := checker.Warnings(p); len(warnings) != 1 {
			t.Fatalf("got %v", warnings)
		}
	})
}
