package sandbox

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSandbox matches every *SandboxError with errors.Is.
var ErrSandbox = errors.New("sandbox violation")

type Reason uint8

const (
	ReasonEmpty Reason = iota + 1
	ReasonTooLong
	ReasonSyntax
	ReasonDisallowedNode
	ReasonDisallowedName
	ReasonUnknownName
	ReasonDisallowedCall
	ReasonDisallowedAttribute
	ReasonTooDeep
	ReasonStepBudget
	ReasonTooManyStatements
)

func (r Reason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty expression"
	case ReasonTooLong:
		return "expression too long"
	case ReasonSyntax:
		return "syntax error"
	case ReasonDisallowedNode:
		return "disallowed syntax"
	case ReasonDisallowedName:
		return "disallowed name"
	case ReasonUnknownName:
		return "unknown name"
	case ReasonDisallowedCall:
		return "disallowed call"
	case ReasonDisallowedAttribute:
		return "disallowed attribute"
	case ReasonTooDeep:
		return "nesting too deep"
	case ReasonStepBudget:
		return "evaluation step budget exceeded"
	case ReasonTooManyStatements:
		return "too many statements"
	}
	return "unknown reason"
}

// SandboxError reports input rejected by the whitelist or a resource limit.
type SandboxError struct {
	Reason Reason
	Detail string
	Pos    Pos
	Source string
}

func (e *SandboxError) Error() string {
	var sb strings.Builder
	sb.WriteString("sandbox: ")
	sb.WriteString(e.Reason.String())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	writePos(&sb, e.Source, e.Pos)
	return sb.String()
}

func (e *SandboxError) Is(target error) bool {
	return target == ErrSandbox
}

func violation(reason Reason, pos Pos, format string, args ...any) *SandboxError {
	return &SandboxError{
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
		Pos:    pos,
	}
}

func syntaxError(pos Pos, format string, args ...any) *SandboxError {
	return violation(ReasonSyntax, pos, format, args...)
}

// EvalError is a runtime failure of an allowed expression, such as division by zero.
type EvalError struct {
	Err    error
	Pos    Pos
	Source string
}

func (e *EvalError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	writePos(&sb, e.Source, e.Pos)
	return sb.String()
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

func withPos(err error, pos Pos) error {
	if err == nil {
		return nil
	}
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return err
	}
	var sandboxErr *SandboxError
	if errors.As(err, &sandboxErr) {
		return err
	}
	return &EvalError{
		Err: err,
		Pos: pos,
	}
}

// withSource attaches the evaluated text so the error can render a caret line.
func withSource(err error, source string) error {
	var sandboxErr *SandboxError
	if errors.As(err, &sandboxErr) && sandboxErr.Source == "" {
		sandboxErr.Source = source
	}
	var evalErr *EvalError
	if errors.As(err, &evalErr) && evalErr.Source == "" {
		evalErr.Source = source
	}
	return err
}

func writePos(sb *strings.Builder, source string, pos Pos) {
	if pos.Line == 0 {
		return
	}
	fmt.Fprintf(sb, " at %s", pos)
	if source == "" {
		return
	}
	lines := strings.Split(source, "\n")
	idx := pos.Line - 1
	if idx < 0 || idx >= len(lines) {
		return
	}
	line := lines[idx]
	sb.WriteString("\n")
	sb.WriteString(line)
	sb.WriteString("\n")
	runes := []rune(line)
	col := pos.Column - 1
	for i, r := range runes {
		if i >= col {
			break
		}
		if r == '\t' {
			sb.WriteString("\t")
		} else {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("^")
}
