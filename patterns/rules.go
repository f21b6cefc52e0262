package patterns

import (
	"errors"
	"strings"

	"github.com/reusee/patgen/metrics"
	"github.com/reusee/patgen/sandbox"
)

// Validator checks the boolean validation rules of a pattern against a
// drawn instance.
type Validator struct {
	evaluator *sandbox.Evaluator
}

func NewValidator(evaluator *sandbox.Evaluator) *Validator {
	return &Validator{
		evaluator: evaluator,
	}
}

// Check returns nil when every rule holds. A false or failing rule is a
// *RuleError; one that wraps a sandbox violation must not be retried.
func (v *Validator) Check(rules []string, scope map[string]any) error {
	if len(rules) == 0 {
		return nil
	}
	s, err := v.evaluator.NewScope(scope)
	if err != nil {
		return err
	}
	for i, rule := range rules {
		expr, missing := SubstituteTokens(rule, s.Get)
		if len(missing) > 0 {
			return &RuleError{
				Index: i,
				Rule:  rule,
				Err: &sandbox.SandboxError{
					Reason: sandbox.ReasonUnknownName,
					Detail: strings.Join(missing, ", "),
				},
			}
		}
		node, err := v.evaluator.Parse(expr)
		if err == nil {
			var value sandbox.Value
			value, err = s.Eval(node, expr)
			if err == nil {
				if !sandbox.Truthy(value) {
					return &RuleError{
						Index: i,
						Rule:  rule,
					}
				}
				continue
			}
		}
		var sandboxErr *sandbox.SandboxError
		if errors.As(err, &sandboxErr) {
			metrics.SandboxViolations.WithLabelValues(sandboxErr.Reason.String(), "rule").Inc()
		}
		return &RuleError{
			Index: i,
			Rule:  rule,
			Err:   err,
		}
	}
	return nil
}

// Parse checks the syntax of every rule without evaluating.
func (v *Validator) Parse(rules []string) error {
	for i, rule := range rules {
		expr, _ := SubstituteTokens(rule, nil)
		if _, err := v.evaluator.Parse(expr); err != nil {
			return &RuleError{
				Index: i,
				Rule:  rule,
				Err:   err,
			}
		}
	}
	return nil
}
