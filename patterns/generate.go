package patterns

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reusee/dscope"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/metrics"
	"github.com/reusee/patgen/rands"
	"github.com/reusee/patgen/sandbox"
	"github.com/reusee/patgen/solvers"
)

// GeneratedQuestion is one accepted instance of a pattern.
type GeneratedQuestion struct {
	ID            string    `json:"id"`
	PatternID     string    `json:"pattern_id"`
	Topic         string    `json:"topic"`
	Question      string    `json:"question"`
	Solution      []string  `json:"solution"`
	Answer        string    `json:"answer"`
	Marks         int       `json:"marks"`
	Difficulty    float64   `json:"difficulty"`
	Variables     Resolved  `json:"variables"`
	SocraticHints []Hint    `json:"socratic_hints"`
	GeneratedAt   time.Time `json:"generated_at"`
	Attempts      int       `json:"attempts"`
}

// AnswerVariable holds the solver result in the resolved variables.
const AnswerVariable = "answer"

const DefaultMaxAttempts = 10

type GenerationSettings struct {
	MaxAttempts int
	Salt        string
}

type generateOptions struct {
	source      rands.Source
	seed        string
	maxAttempts int
}

type GenerateOption func(*generateOptions)

// WithSource draws from src instead of a fresh stream.
func WithSource(src rands.Source) GenerateOption {
	return func(o *generateOptions) {
		o.source = src
	}
}

// WithSeed makes generation reproducible. The stream is derived from
// seed, the pattern id and the configured salt.
func WithSeed(seed string) GenerateOption {
	return func(o *generateOptions) {
		o.seed = seed
	}
}

func WithMaxAttempts(n int) GenerateOption {
	return func(o *generateOptions) {
		o.maxAttempts = n
	}
}

type Generator struct {
	Resolver  dscope.Inject[*Resolver]
	Renderer  dscope.Inject[*Renderer]
	Validator dscope.Inject[*Validator]
	Solver    dscope.Inject[*solvers.Executor]
	NewSource dscope.Inject[rands.NewSource]
	Settings  dscope.Inject[GenerationSettings]
	Logger    dscope.Inject[logs.Logger]
}

type generationState uint8

const (
	stateResolving generationState = iota + 1
	stateSolving
	stateRendering
	stateValidating
)

func (s generationState) String() string {
	switch s {
	case stateResolving:
		return "resolving"
	case stateSolving:
		return "solving"
	case stateRendering:
		return "rendering"
	case stateValidating:
		return "validating"
	}
	return "unknown"
}

// fatal reports whether err ends generation instead of triggering a redraw.
func fatal(err error) bool {
	var resolutionErr *ResolutionError
	return errors.Is(err, sandbox.ErrSandbox) ||
		errors.As(err, &resolutionErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (g *Generator) Generate(ctx context.Context, p *Pattern, opts ...GenerateOption) (ret *GeneratedQuestion, err error) {
	o := generateOptions{
		maxAttempts: g.Settings().MaxAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	src := o.source
	if src == nil {
		var seed string
		if o.seed != "" {
			seed = strings.Join([]string{o.seed, p.ID, g.Settings().Salt}, "|")
		}
		src = g.NewSource()(seed)
	}

	logger := g.Logger()
	begin := time.Now()
	defer func() {
		metrics.GenerationDuration.Observe(time.Since(begin).Seconds())
		switch {
		case err == nil:
			metrics.Generations.WithLabelValues("ok").Inc()
		case errors.As(err, new(*GenerationError)):
			metrics.Generations.WithLabelValues("exhausted").Inc()
		default:
			metrics.Generations.WithLabelValues("failed").Inc()
		}
	}()

	plan, err := g.Resolver().Compile(p.Variables)
	if err != nil {
		metrics.GenerationAttempts.WithLabelValues(p.ID, "failed").Inc()
		return nil, err
	}
	var program *solvers.Program
	if p.SolverCode != "" {
		program, err = g.Solver().Compile(p.SolverCode)
		if err != nil {
			metrics.GenerationAttempts.WithLabelValues(p.ID, "failed").Inc()
			return nil, &SolverError{Err: err}
		}
	}

	var last error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		question, state, err := g.attempt(ctx, p, plan, program, src)
		if err == nil {
			question.Attempts = attempt
			metrics.GenerationAttempts.WithLabelValues(p.ID, "accepted").Inc()
			logger.InfoContext(ctx, "generated",
				"pattern", p.ID,
				"question", question.ID,
				"attempts", attempt,
			)
			return question, nil
		}

		if fatal(err) {
			metrics.GenerationAttempts.WithLabelValues(p.ID, "failed").Inc()
			logger.WarnContext(ctx, "generation failed",
				"pattern", p.ID,
				"attempt", attempt,
				"state", state.String(),
				"error", err,
			)
			return nil, err
		}

		metrics.GenerationAttempts.WithLabelValues(p.ID, "rejected").Inc()
		logger.DebugContext(ctx, "attempt rejected",
			"pattern", p.ID,
			"attempt", attempt,
			"state", state.String(),
			"error", err,
		)
		last = err
	}

	logger.WarnContext(ctx, "attempts exhausted",
		"pattern", p.ID,
		"attempts", o.maxAttempts,
		"error", last,
	)
	return nil, &GenerationError{
		PatternID: p.ID,
		Attempts:  o.maxAttempts,
		Last:      last,
	}
}

func (g *Generator) attempt(
	ctx context.Context,
	p *Pattern,
	plan *Plan,
	program *solvers.Program,
	src rands.Source,
) (*GeneratedQuestion, generationState, error) {

	resolved, err := plan.Resolve(src)
	if err != nil {
		return nil, stateResolving, err
	}

	if program != nil {
		answer, err := program.Execute(ctx, resolved.Scope())
		if err != nil {
			return nil, stateSolving, &SolverError{Err: err}
		}
		resolved[AnswerVariable] = answer
	}

	scope := resolved.Scope()
	renderer := g.Renderer()
	question := &GeneratedQuestion{
		ID:            uuid.NewString(),
		PatternID:     p.ID,
		Topic:         p.Topic,
		Question:      renderer.Render(ctx, p.TemplateText, scope),
		Answer:        renderer.Render(ctx, p.AnswerTemplate, scope),
		Marks:         p.Marks,
		Difficulty:    p.Difficulty,
		Solution:      make([]string, 0, len(p.SolutionTemplate)),
		Variables:     resolved,
		SocraticHints: slices.Clone(p.SocraticHints),
		GeneratedAt:   time.Now(),
	}
	for _, step := range p.SolutionTemplate {
		question.Solution = append(question.Solution, renderer.Render(ctx, step, scope))
	}

	if err := g.Validator().Check(p.ValidationRules, scope); err != nil {
		return nil, stateValidating, err
	}

	return question, stateValidating, nil
}
