package solvers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/metrics"
	"github.com/reusee/patgen/sandbox"
)

type Executor struct {
	evaluator *sandbox.Evaluator
	logger    logs.Logger
}

func New(evaluator *sandbox.Evaluator, logger logs.Logger) *Executor {
	return &Executor{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Program is parsed solver code, ready to run against any scope.
type Program struct {
	executor   *Executor
	code       string
	statements []Statement
	parsed     []sandbox.Stmt
}

// Compile splits and parses code. The statement limit and assignment
// targets are checked here, before anything runs.
func (e *Executor) Compile(code string) (*Program, error) {
	statements := Split(code)
	limit := e.evaluator.Limits().MaxStatements
	if len(statements) > limit {
		return nil, &sandbox.SandboxError{
			Reason: sandbox.ReasonTooManyStatements,
			Detail: fmt.Sprintf("%d statements, limit is %d", len(statements), limit),
		}
	}

	program := &Program{
		executor:   e,
		code:       code,
		statements: statements,
	}
	for _, statement := range statements {
		stmt, err := e.evaluator.ParseStatement(statement.Source)
		if err != nil {
			return nil, statementError(statement, err)
		}
		if assign, ok := stmt.(*sandbox.Assign); ok {
			if err := sandbox.CheckTarget(assign.Target); err != nil {
				return nil, statementError(statement, err)
			}
		}
		program.parsed = append(program.parsed, stmt)
	}

	return program, nil
}

func statementError(statement Statement, err error) error {
	return fmt.Errorf("solver line %d: %w", statement.Line, err)
}

// Targets returns the assigned names in statement order, without duplicates.
func (p *Program) Targets() []string {
	var ret []string
	seen := make(map[string]bool)
	for _, stmt := range p.parsed {
		if assign, ok := stmt.(*sandbox.Assign); ok && !seen[assign.Target] {
			seen[assign.Target] = true
			ret = append(ret, assign.Target)
		}
	}
	return ret
}

// Run executes the program on a copy of scope. A return statement ends
// the run; otherwise the value of the last statement is the result.
func (p *Program) Run(ctx context.Context, scope map[string]any, opts ...sandbox.Option) (sandbox.Value, error) {
	s, err := p.executor.evaluator.NewScope(scope, opts...)
	if err != nil {
		return nil, err
	}

	var last sandbox.Value
	for i, stmt := range p.parsed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		statement := p.statements[i]

		switch stmt := stmt.(type) {

		case *sandbox.Assign:
			v, err := s.Eval(stmt.Value, statement.Source)
			if err != nil {
				return nil, statementError(statement, err)
			}
			if err := s.Define(stmt.Target, v); err != nil {
				return nil, statementError(statement, err)
			}
			last = v

		case *sandbox.Return:
			if stmt.Value == nil {
				return nil, nil
			}
			v, err := s.Eval(stmt.Value, statement.Source)
			if err != nil {
				return nil, statementError(statement, err)
			}
			return v, nil

		case *sandbox.ExprStmt:
			v, err := s.Eval(stmt.Value, statement.Source)
			if err != nil {
				return nil, statementError(statement, err)
			}
			last = v

		}
	}

	return last, nil
}

// Execute compiles and runs code. Every call is logged with the code,
// truncated, and its result or failure.
func (e *Executor) Execute(ctx context.Context, code string, scope map[string]any, opts ...sandbox.Option) (sandbox.Value, error) {
	program, err := e.Compile(code)
	if err != nil {
		e.record(ctx, code, nil, err)
		return nil, err
	}
	return program.Execute(ctx, scope, opts...)
}

// Execute is Run with the call logged and counted.
func (p *Program) Execute(ctx context.Context, scope map[string]any, opts ...sandbox.Option) (ret sandbox.Value, err error) {
	defer func() {
		p.executor.record(ctx, p.code, ret, err)
	}()
	return p.Run(ctx, scope, opts...)
}

const maxLoggedCode = 200

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func (e *Executor) record(ctx context.Context, code string, ret sandbox.Value, err error) {
	attrs := []any{
		"code", truncate(code, maxLoggedCode),
	}
	if err != nil {
		metrics.SolverRuns.WithLabelValues("error").Inc()
		var sandboxErr *sandbox.SandboxError
		if errors.As(err, &sandboxErr) {
			metrics.SandboxViolations.WithLabelValues(sandboxErr.Reason.String(), "solver").Inc()
		}
		e.logger.WarnContext(ctx, "solver failed", append(attrs, "error", err)...)
		return
	}
	metrics.SolverRuns.WithLabelValues("ok").Inc()
	if e.logger.Enabled(ctx, slog.LevelInfo) {
		e.logger.InfoContext(ctx, "solver", append(attrs, "result", sandbox.Repr(ret))...)
	}
}
