package patterns

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/reusee/patgen/metrics"
	"github.com/reusee/patgen/rands"
	"github.com/reusee/patgen/sandbox"
)

// Resolved maps variable names to the values of one generation attempt.
type Resolved map[string]sandbox.Value

// Scope returns a copy usable as an evaluation scope.
func (r Resolved) Scope() map[string]any {
	return maps.Clone(r)
}

func (r Resolved) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = sandbox.ToGo(v)
	}
	return json.Marshal(m)
}

func (r *Resolved) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var m map[string]any
	if err := decoder.Decode(&m); err != nil {
		return err
	}
	ret := make(Resolved, len(m))
	for k, v := range m {
		value, err := sandbox.FromGo(v)
		if err != nil {
			return fmt.Errorf("variable %s: %w", k, err)
		}
		ret[k] = value
	}
	*r = ret
	return nil
}

type Resolver struct {
	evaluator *sandbox.Evaluator
}

func NewResolver(evaluator *sandbox.Evaluator) *Resolver {
	return &Resolver{
		evaluator: evaluator,
	}
}

// Plan is the checked dependency graph of a variable set. It can resolve
// any number of times.
type Plan struct {
	resolver  *Resolver
	variables Variables
	graph     *graph
}

// Compile builds and checks the dependency graph without drawing anything.
func (r *Resolver) Compile(vars Variables) (*Plan, error) {
	g, err := buildGraph(r.evaluator, vars)
	if err != nil {
		return nil, err
	}
	if err := g.err(); err != nil {
		return nil, err
	}
	return &Plan{
		resolver:  r,
		variables: vars,
		graph:     g,
	}, nil
}

// CheckGraph reports formula syntax errors, cycles and undefined references.
func (r *Resolver) CheckGraph(vars Variables) error {
	_, err := r.Compile(vars)
	return err
}

func (r *Resolver) Resolve(vars Variables, src rands.Source) (Resolved, error) {
	plan, err := r.Compile(vars)
	if err != nil {
		return nil, err
	}
	return plan.Resolve(src)
}

// Resolve draws the int, float and choice variables in declaration order,
// then evaluates the calculated ones in dependency order.
func (p *Plan) Resolve(src rands.Source) (Resolved, error) {
	scope, err := p.resolver.evaluator.NewScope(nil)
	if err != nil {
		return nil, err
	}

	for _, variable := range p.variables {
		var value sandbox.Value
		switch spec := variable.Spec.(type) {

		case IntSpec:
			if spec.Max < spec.Min {
				return nil, fmt.Errorf("variable %s: empty range [%d, %d]", variable.Name, spec.Min, spec.Max)
			}
			value = src.Int(spec.Min, spec.Max)

		case FloatSpec:
			if spec.Max < spec.Min {
				return nil, fmt.Errorf("variable %s: empty range [%v, %v]", variable.Name, spec.Min, spec.Max)
			}
			value = roundTo(src.Float(spec.Min, spec.Max), spec.Decimals)

		case ChoiceSpec:
			if len(spec.Choices) == 0 {
				return nil, fmt.Errorf("variable %s: no choices", variable.Name)
			}
			value, err = sandbox.FromGo(spec.Choices[src.Choose(len(spec.Choices))])
			if err != nil {
				return nil, fmt.Errorf("variable %s: %w", variable.Name, err)
			}

		case CalculatedSpec:
			continue

		default:
			return nil, fmt.Errorf("variable %s: unknown spec %T", variable.Name, spec)
		}

		if err := scope.Bind(variable.Name, value); err != nil {
			return nil, fmt.Errorf("variable %s: %w", variable.Name, err)
		}
	}

	for _, name := range p.graph.order {
		calc := p.graph.calcs[name]
		node := calc.node
		expr, _ := SubstituteTokens(calc.formula, scope.Get)
		if calc.quoted {
			node, err = p.resolver.evaluator.Parse(expr)
			if err != nil {
				return nil, &FormulaError{
					Variable: name,
					Formula:  calc.formula,
					Err:      err,
				}
			}
		}
		value, err := scope.Eval(node, expr)
		if err != nil {
			var sandboxErr *sandbox.SandboxError
			if errors.As(err, &sandboxErr) {
				metrics.SandboxViolations.WithLabelValues(sandboxErr.Reason.String(), "formula").Inc()
			}
			return nil, &FormulaError{
				Variable: name,
				Formula:  calc.formula,
				Err:      err,
			}
		}
		if err := scope.Bind(name, value); err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
	}

	return Resolved(scope.Vars()), nil
}

func roundTo(f float64, decimals int) float64 {
	if decimals < 0 {
		return f
	}
	ret, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', decimals, 64), 64)
	if err != nil {
		return f
	}
	return ret
}
