package patterns

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/reusee/dscope"
	"github.com/reusee/patgen/sandbox"
	"github.com/reusee/patgen/solvers"
)

var (
	patternIDPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

const maxDecimals = 15

var validate = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("patternid", func(fl validator.FieldLevel) bool {
		return patternIDPattern.MatchString(fl.Field().String())
	})
	return v
}()

// Checker validates pattern definitions before they enter the repository.
type Checker struct {
	Resolver  dscope.Inject[*Resolver]
	Validator dscope.Inject[*Validator]
	Solver    dscope.Inject[*solvers.Executor]
	Evaluator dscope.Inject[*sandbox.Evaluator]
}

// Check returns a *ValidationError listing every problem found in p.
func (c *Checker) Check(p *Pattern) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				add("%s: failed %s %s", fieldErr.Namespace(), fieldErr.Tag(), fieldErr.Param())
			}
		} else {
			add("%v", err)
		}
	}

	variablesOK := true
	for _, variable := range p.Variables {
		name := variable.Name
		bad := func(format string, args ...any) {
			variablesOK = false
			add("variable %s: "+format, append([]any{name}, args...)...)
		}
		if !identifierPattern.MatchString(name) {
			bad("not an identifier")
			continue
		}
		if sandbox.IsDunder(name) {
			bad("reserved name")
			continue
		}

		switch spec := variable.Spec.(type) {
		case IntSpec:
			if spec.Min > spec.Max {
				bad("min %d greater than max %d", spec.Min, spec.Max)
			}
		case FloatSpec:
			if math.IsNaN(spec.Min) || math.IsNaN(spec.Max) || math.IsInf(spec.Min, 0) || math.IsInf(spec.Max, 0) {
				bad("bounds must be finite")
			} else if spec.Min > spec.Max {
				bad("min %v greater than max %v", spec.Min, spec.Max)
			}
			if spec.Decimals < 0 || spec.Decimals > maxDecimals {
				bad("decimals must be in [0, %d]", maxDecimals)
			}
		case ChoiceSpec:
			if len(spec.Choices) == 0 {
				bad("no choices")
			}
			for i, choice := range spec.Choices {
				if _, err := sandbox.FromGo(choice); err != nil {
					bad("choice %d: %v", i, err)
				}
			}
		case CalculatedSpec:
			if strings.TrimSpace(spec.Formula) == "" {
				bad("empty formula")
			}
		case nil:
			bad("missing spec")
		}
	}

	if variablesOK {
		if err := c.Resolver().CheckGraph(p.Variables); err != nil {
			add("%v", err)
		}
	}

	if err := c.Validator().Parse(p.ValidationRules); err != nil {
		add("%v", err)
	}

	if p.SolverCode != "" {
		program, err := c.Solver().Compile(p.SolverCode)
		if err != nil {
			add("solver: %v", err)
		} else {
			for _, target := range program.Targets() {
				if _, ok := p.Variables.Get(target); ok {
					add("solver assigns declared variable %s", target)
				}
			}
		}
		if _, ok := p.Variables.Get(AnswerVariable); ok {
			add("variable %s is reserved for the solver result", AnswerVariable)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{
			PatternID: p.ID,
			Problems:  problems,
		}
	}
	return nil
}

// Warnings lists template placeholders that will not evaluate as
// expressions. They are not errors since rendering keeps such text.
func (c *Checker) Warnings(p *Pattern) (ret []string) {
	templates := append([]string{p.TemplateText, p.AnswerTemplate}, p.SolutionTemplate...)
	evaluator := c.Evaluator()
	for _, template := range templates {
		for _, expr := range Placeholders(template) {
			if _, err := evaluator.Parse(expr); err != nil {
				ret = append(ret, fmt.Sprintf("placeholder {%s}: %v", expr, err))
			}
		}
	}
	return
}
