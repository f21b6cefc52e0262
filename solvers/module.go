package solvers

import (
	"github.com/reusee/dscope"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/sandbox"
)

type Module struct {
	dscope.Module
}

func (Module) Executor(
	evaluator *sandbox.Evaluator,
	logger logs.Logger,
) *Executor {
	return New(evaluator, logger)
}
