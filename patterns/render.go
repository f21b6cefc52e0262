package patterns

import (
	"context"
	"errors"
	"strings"

	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/metrics"
	"github.com/reusee/patgen/sandbox"
)

type Renderer struct {
	evaluator *sandbox.Evaluator
	logger    logs.Logger
}

func NewRenderer(evaluator *sandbox.Evaluator, logger logs.Logger) *Renderer {
	return &Renderer{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Render replaces every {expr} span in text with the str() form of its
// value. A span that does not evaluate falls back to a lookup of its text
// as a variable name, and is otherwise kept as is.
func (r *Renderer) Render(ctx context.Context, text string, scope map[string]any) string {
	if !strings.ContainsRune(text, '{') {
		return text
	}

	s, err := r.evaluator.NewScope(scope)
	if err != nil {
		r.logger.WarnContext(ctx, "render scope", "error", err)
		s = nil
	}

	var b strings.Builder
	for len(text) > 0 {
		start := strings.IndexByte(text, '{')
		if start < 0 {
			b.WriteString(text)
			break
		}
		end := matchBrace(text, start)
		if end < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:start])
		b.WriteString(r.placeholder(ctx, s, text[start+1:end], scope))
		text = text[end+1:]
	}
	return b.String()
}

func (r *Renderer) placeholder(ctx context.Context, s *sandbox.Scope, expr string, scope map[string]any) string {
	if s != nil {
		node, err := r.evaluator.Parse(expr)
		if err == nil {
			var v sandbox.Value
			v, err = s.Eval(node, expr)
			if err == nil {
				return sandbox.Format(v)
			}
		}

		var sandboxErr *sandbox.SandboxError
		if errors.As(err, &sandboxErr) && sandboxErr.Reason != sandbox.ReasonSyntax && sandboxErr.Reason != sandbox.ReasonEmpty {
			metrics.SandboxViolations.WithLabelValues(sandboxErr.Reason.String(), "template").Inc()
			r.logger.WarnContext(ctx, "template expression rejected",
				"expr", expr,
				"error", err,
			)
		} else {
			r.logger.DebugContext(ctx, "template expression failed",
				"expr", expr,
				"error", err,
			)
		}
	}

	if v, ok := scope[strings.TrimSpace(expr)]; ok {
		if value, err := sandbox.FromGo(v); err == nil {
			metrics.RenderFallbacks.WithLabelValues("lookup").Inc()
			return sandbox.Format(value)
		}
	}

	metrics.RenderFallbacks.WithLabelValues("unchanged").Inc()
	return "{" + expr + "}"
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside quoted strings, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	var quote byte
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Placeholders returns the text inside each top level {...} span.
func Placeholders(text string) (ret []string) {
	for {
		start := strings.IndexByte(text, '{')
		if start < 0 {
			return
		}
		end := matchBrace(text, start)
		if end < 0 {
			return
		}
		ret = append(ret, text[start+1:end])
		text = text[end+1:]
	}
}
