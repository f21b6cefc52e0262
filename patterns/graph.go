package patterns

import (
	"regexp"
	"slices"
	"strings"

	"github.com/reusee/patgen/sandbox"
)

var tokenPattern = regexp.MustCompile(`^\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}`)

// rewriteTokens calls fn for each {name} token of an expression. quote is
// the delimiter of the enclosing string literal, or zero outside literals.
func rewriteTokens(s string, fn func(name string, quote byte) string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case quote != 0 && c == '\\' && i+1 < len(s):
			b.WriteString(s[i : i+2])
			i += 2
			continue
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case c == '{':
			if m := tokenPattern.FindStringSubmatch(s[i:]); m != nil {
				b.WriteString(fn(m[1], quote))
				i += len(m[0])
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// SubstituteTokens rewrites the {name} tokens of an expression. Outside
// string literals a token becomes the bare identifier, so the value is
// looked up from the scope at evaluation time. Inside a literal it becomes
// the formatted value of lookup(name), escaped for the enclosing quote.
// With a nil lookup such tokens become empty, which is enough for parsing.
// Names inside literals that lookup does not know are returned as missing.
func SubstituteTokens(s string, lookup func(string) (sandbox.Value, bool)) (ret string, missing []string) {
	ret = rewriteTokens(s, func(name string, quote byte) string {
		if quote == 0 {
			return name
		}
		if lookup == nil {
			return ""
		}
		v, ok := lookup(name)
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return ""
		}
		return escapeLiteral(sandbox.Format(v), quote)
	})
	return
}

func escapeLiteral(s string, quote byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func tokenNames(s string) (ret []string) {
	rewriteTokens(s, func(name string, _ byte) string {
		if !slices.Contains(ret, name) {
			ret = append(ret, name)
		}
		return ""
	})
	return
}

// quotedTokens reports whether s has tokens inside string literals.
func quotedTokens(s string) (ret bool) {
	rewriteTokens(s, func(_ string, quote byte) string {
		if quote != 0 {
			ret = true
		}
		return ""
	})
	return
}

type calculation struct {
	name    string
	formula string
	node    sandbox.Node
	deps    []string
	// formula has tokens inside string literals and is substituted
	// again with the drawn values on every resolve
	quoted bool
}

// graph is the dependency graph of the calculated variables. Drawn
// variables have no dependencies and are left out.
type graph struct {
	calcs      map[string]*calculation
	order      []string
	unresolved []string
	causes     []error
}

func buildGraph(evaluator *sandbox.Evaluator, vars Variables) (*graph, error) {
	g := &graph{
		calcs: make(map[string]*calculation),
	}
	declared := make(map[string]VariableSpec, len(vars))
	placeholders := make(map[string]any, len(vars))
	for _, variable := range vars {
		declared[variable.Name] = variable.Spec
		placeholders[variable.Name] = nil
	}
	// static checks run against a scope holding every declared name
	checkScope, err := evaluator.NewScope(placeholders)
	if err != nil {
		return nil, err
	}

	bad := make(map[string]bool)
	var names []string
	for _, variable := range vars {
		spec, ok := variable.Spec.(CalculatedSpec)
		if !ok {
			continue
		}
		expr, _ := SubstituteTokens(spec.Formula, nil)
		node, err := evaluator.Parse(expr)
		if err != nil {
			return nil, &FormulaError{
				Variable: variable.Name,
				Formula:  spec.Formula,
				Err:      err,
			}
		}

		calc := &calculation{
			name:    variable.Name,
			formula: spec.Formula,
			node:    node,
			quoted:  quotedTokens(spec.Formula),
		}
		var missing []string
		refs := tokenNames(spec.Formula)
		for _, name := range sandbox.Names(node) {
			if !slices.Contains(refs, name) {
				refs = append(refs, name)
			}
		}
		for _, ref := range refs {
			refSpec, ok := declared[ref]
			if !ok {
				if !sandbox.IsReserved(ref) {
					missing = append(missing, ref)
				}
				continue
			}
			if _, ok := refSpec.(CalculatedSpec); ok {
				calc.deps = append(calc.deps, ref)
			}
		}
		if len(missing) == 0 {
			if err := checkScope.Check(node); err != nil {
				return nil, &FormulaError{
					Variable: variable.Name,
					Formula:  spec.Formula,
					Err:      err,
				}
			}
		} else {
			bad[calc.name] = true
			g.causes = append(g.causes, &UndefinedReferenceError{
				Variable: calc.name,
				Missing:  missing,
			})
		}

		g.calcs[calc.name] = calc
		names = append(names, calc.name)
	}

	// depth first search in declaration order; the post order is a topological order
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)
	var stack []string
	var sorted []string
	var visit func(name string)
	visit = func(name string) {
		color[name] = gray
		stack = append(stack, name)
		for _, dep := range g.calcs[name].deps {
			switch color[dep] {
			case gray:
				i := slices.Index(stack, dep)
				cycle := append(slices.Clone(stack[i:]), dep)
				for _, member := range stack[i:] {
					bad[member] = true
				}
				g.causes = append(g.causes, &CyclicDependencyError{
					Cycle: cycle,
				})
			case white:
				visit(dep)
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		sorted = append(sorted, name)
	}
	for _, name := range names {
		if color[name] == white {
			visit(name)
		}
	}

	// everything downstream of an unresolvable variable is unresolvable
	for changed := true; changed; {
		changed = false
		for _, name := range sorted {
			if bad[name] {
				continue
			}
			for _, dep := range g.calcs[name].deps {
				if bad[dep] {
					bad[name] = true
					changed = true
					break
				}
			}
		}
	}

	for _, name := range sorted {
		if !bad[name] {
			g.order = append(g.order, name)
		}
	}
	for _, name := range names {
		if bad[name] {
			g.unresolved = append(g.unresolved, name)
		}
	}

	return g, nil
}

func (g *graph) err() error {
	if len(g.unresolved) == 0 {
		return nil
	}
	return &ResolutionError{
		Unresolved: g.unresolved,
		Causes:     g.causes,
	}
}
