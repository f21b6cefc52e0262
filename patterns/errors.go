package patterns

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPatternNotFound = errors.New("pattern not found")
	ErrPatternExists   = errors.New("pattern already exists")
)

type NotFoundError struct {
	PatternID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pattern not found: %s", e.PatternID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrPatternNotFound
}

// CyclicDependencyError reports calculated variables that depend on each
// other. Cycle starts and ends with the same name.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

type UndefinedReferenceError struct {
	Variable string
	Missing  []string
}

func (e *UndefinedReferenceError) Error() string {
	return fmt.Sprintf("variable %s references undefined %s", e.Variable, strings.Join(e.Missing, ", "))
}

// ResolutionError names every variable that cannot be resolved.
type ResolutionError struct {
	Unresolved []string
	Causes     []error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("unresolved variables: ")
	b.WriteString(strings.Join(e.Unresolved, ", "))
	for _, cause := range e.Causes {
		b.WriteString("; ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() []error {
	return e.Causes
}

// FormulaError is a calculated variable that failed to evaluate.
type FormulaError struct {
	Variable string
	Formula  string
	Err      error
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("variable %s: formula %q: %v", e.Variable, e.Formula, e.Err)
}

func (e *FormulaError) Unwrap() error {
	return e.Err
}

// RuleError is a validation rule that rejected a drawn instance. Err is
// nil when the rule evaluated to false.
type RuleError struct {
	Index int
	Rule  string
	Err   error
}

func (e *RuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule %d %q: %v", e.Index, e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %d %q is false", e.Index, e.Rule)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// SolverError is solver code that failed at run time.
type SolverError struct {
	Err error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver: %v", e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}

// GenerationError is returned when every attempt was rejected.
type GenerationError struct {
	PatternID string
	Attempts  int
	Last      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("pattern %s: no valid instance after %d attempts: %v", e.PatternID, e.Attempts, e.Last)
}

func (e *GenerationError) Unwrap() error {
	return e.Last
}

// ValidationError lists the problems of an invalid pattern definition.
type ValidationError struct {
	PatternID string
	Problems  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pattern %s: %s", e.PatternID, strings.Join(e.Problems, "; "))
}
