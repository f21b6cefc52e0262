package patterns

import (
	"github.com/reusee/dscope"
	"github.com/reusee/patgen/cmds"
	"github.com/reusee/patgen/configs"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/sandbox"
	"github.com/reusee/patgen/vars"
)

type Module struct {
	dscope.Module
}

var maxAttemptsFlag = cmds.Var[int]("-max-attempts", "attempts before a generation gives up")

func (Module) GenerationSettings(
	loader configs.Loader,
) GenerationSettings {
	return GenerationSettings{
		MaxAttempts: vars.FirstNonZero(
			*maxAttemptsFlag,
			configs.First[int](loader, "generation.max_attempts"),
			DefaultMaxAttempts,
		),
		Salt: configs.First[string](loader, "generation.salt"),
	}
}

func (Module) Resolver(
	evaluator *sandbox.Evaluator,
) *Resolver {
	return NewResolver(evaluator)
}

func (Module) Renderer(
	evaluator *sandbox.Evaluator,
	logger logs.Logger,
) *Renderer {
	return NewRenderer(evaluator, logger)
}

func (Module) Validator(
	evaluator *sandbox.Evaluator,
) *Validator {
	return NewValidator(evaluator)
}

func (Module) Generator(
	inject dscope.InjectStruct,
) *Generator {
	ret := new(Generator)
	inject(&ret)
	return ret
}

func (Module) Checker(
	inject dscope.InjectStruct,
) *Checker {
	ret := new(Checker)
	inject(&ret)
	return ret
}

func (Module) Repository(
	inject dscope.InjectStruct,
) *Repository {
	ret := new(Repository)
	inject(&ret)
	return ret
}
