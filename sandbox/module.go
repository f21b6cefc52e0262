package sandbox

import (
	"github.com/reusee/dscope"
	"github.com/reusee/patgen/configs"
)

type Module struct {
	dscope.Module
}

func (Module) Limits(
	loader configs.Loader,
) Limits {
	return Limits{
		MaxExpressionLength: configs.First[int](loader, "sandbox.max_expression_length"),
		MaxDepth:            configs.First[int](loader, "sandbox.max_depth"),
		MaxSteps:            configs.First[int](loader, "sandbox.max_steps"),
		MaxStatements:       configs.First[int](loader, "sandbox.max_statements"),
		MaxStringLength:     configs.First[int](loader, "sandbox.max_string_length"),
	}.orDefault()
}

func (Module) Evaluator(
	limits Limits,
) *Evaluator {
	return New(limits)
}
