package sandbox

import (
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/reusee/patgen/rands"
)

// Evaluator parses, checks and evaluates expressions from content files.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	limits Limits
}

func New(limits Limits) *Evaluator {
	return &Evaluator{
		limits: limits.orDefault(),
	}
}

func (e *Evaluator) Limits() Limits {
	return e.limits
}

type options struct {
	allowRandom bool
	rand        rands.Source
}

type Option func(*options)

// AllowRandom exposes randint, uniform and choice, drawing from src.
// A nil src draws from a fresh unseeded stream.
func AllowRandom(src rands.Source) Option {
	return func(o *options) {
		o.allowRandom = true
		o.rand = src
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.allowRandom && o.rand == nil {
		o.rand = rands.Random()
	}
	return o
}

// Parse validates the length of expr and returns its syntax tree.
func (e *Evaluator) Parse(expr string) (Node, error) {
	if err := e.checkSource(expr); err != nil {
		return nil, err
	}
	return ParseExpression(expr, e.limits.MaxDepth)
}

func (e *Evaluator) checkSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return &SandboxError{
			Reason: ReasonEmpty,
		}
	}
	if n := utf8.RuneCountInString(source); n > e.limits.MaxExpressionLength {
		return &SandboxError{
			Reason: ReasonTooLong,
			Detail: fmt.Sprintf("%d characters, limit is %d", n, e.limits.MaxExpressionLength),
		}
	}
	return nil
}

// Evaluate runs expr against scope. Names in scope shadow the
// pre-registered constants and functions.
func (e *Evaluator) Evaluate(expr string, scope map[string]any, opts ...Option) (Value, error) {
	s, err := e.NewScope(scope, opts...)
	if err != nil {
		return nil, err
	}
	node, err := e.Parse(expr)
	if err != nil {
		return nil, err
	}
	return s.Eval(node, expr)
}

// EvaluateBool evaluates expr and reports its truthiness.
func (e *Evaluator) EvaluateBool(expr string, scope map[string]any, opts ...Option) (bool, error) {
	v, err := e.Evaluate(expr, scope, opts...)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Scope is a variable environment that survives across evaluations,
// so that statements can build on each other.
type Scope struct {
	evaluator *Evaluator
	opts      options
	env       *Env
}

func (e *Evaluator) NewScope(vars map[string]any, opts ...Option) (*Scope, error) {
	o := buildOptions(opts)
	root := baseEnv
	if o.allowRandom {
		root = randomEnv
	}
	env := root.NewChild()
	for name, v := range vars {
		if isDunder(name) {
			return nil, violation(ReasonDisallowedName, Pos{}, "variable %s", name)
		}
		value, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		env.Def(name, value)
	}
	return &Scope{
		evaluator: e,
		opts:      o,
		env:       env,
	}, nil
}

func (s *Scope) has(name string) bool {
	_, ok := s.env.Vars[name]
	return ok
}

func (s *Scope) Check(node Node) error {
	c := &checker{
		scope:       s.has,
		allowed:     whitelist(s.opts.allowRandom),
		allowRandom: s.opts.allowRandom,
	}
	return c.check(node)
}

// Eval checks node and evaluates it. source is only used for error messages.
func (s *Scope) Eval(node Node, source string) (Value, error) {
	if err := s.Check(node); err != nil {
		return nil, withSource(err, source)
	}
	m := &machine{
		env:    s.env,
		limits: s.evaluator.limits,
		rand:   s.opts.rand,
	}
	v, err := m.eval(node)
	if err != nil {
		return nil, withSource(err, source)
	}
	return v, nil
}

// Define binds name in the scope. Pre-registered and dunder names cannot be rebound.
func (s *Scope) Define(name string, v Value) error {
	if err := CheckTarget(name); err != nil {
		return err
	}
	s.env.Def(name, v)
	return nil
}

// Bind defines a caller-supplied variable. Like the variables passed to
// NewScope it may shadow a pre-registered name; dunder names are refused.
func (s *Scope) Bind(name string, v Value) error {
	if isDunder(name) {
		return violation(ReasonDisallowedName, Pos{}, "variable %s", name)
	}
	s.env.Def(name, v)
	return nil
}

func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.env.Vars[name]
	return v, ok
}

// Vars returns the variables defined in the scope, without the pre-registered names.
func (s *Scope) Vars() map[string]Value {
	return maps.Clone(s.env.Vars)
}

// ParseStatement validates the length of src and parses one solver statement.
func (e *Evaluator) ParseStatement(src string) (Stmt, error) {
	if err := e.checkSource(src); err != nil {
		return nil, withSource(err, src)
	}
	return ParseStatement(src, e.limits.MaxDepth)
}

// IsDunder reports whether name starts or ends with a double underscore.
func IsDunder(name string) bool {
	return isDunder(name)
}

// CheckTarget reports whether name may be the target of an assignment.
func CheckTarget(name string) error {
	if isDunder(name) {
		return violation(ReasonDisallowedName, Pos{}, "cannot assign to %s", name)
	}
	if IsReserved(name) {
		return violation(ReasonDisallowedName, Pos{}, "cannot assign to pre-registered name %s", name)
	}
	return nil
}
