package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/reusee/dscope"
	"github.com/reusee/patgen/cmds"
	"github.com/reusee/patgen/debugs"
	"github.com/reusee/patgen/patterns"
	"github.com/reusee/patgen/sandbox"
	"github.com/reusee/patgen/solvers"
	"github.com/reusee/patgen/vars"
	"github.com/reusee/patgen/watches"
)

// commands run after every argument is parsed, so flags may follow them
type action func(ctx context.Context, scope dscope.Scope) error

var actions []action

func queue(fn any) {
	actions = append(actions, func(ctx context.Context, scope dscope.Scope) (err error) {
		scope.Fork(
			func() context.Context {
				return ctx
			},
		).Call(fn).Assign(&err)
		return
	})
}

var (
	seedFlag  = cmds.Var[string]("seed", "seed for reproducible generation")
	countFlag = cmds.Var[int]("count", "number of questions for generate")
	bindings  = cmds.Collect[string]("-v", "bind name=expr for eval and solve")
)

func init() {
	cmds.Define("list", cmds.Func(func(topic *string) {
		queue(func(ctx context.Context, repo *patterns.Repository) error {
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			var topicFilter *string
			if t := vars.DerefOrZero(topic); t != "" {
				topicFilter = &t
			}
			for _, p := range repo.Find(topicFilter, nil) {
				fmt.Printf("%s\t%s\t%d\t%.2f\n", p.ID, p.Topic, p.Marks, p.Difficulty)
			}
			return nil
		})
	}).Args("topic").Desc("list patterns, optionally of one topic"))

	cmds.Define("show", cmds.Func(func(id string) {
		queue(func(ctx context.Context, repo *patterns.Repository) error {
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			p, ok := repo.Get(id)
			if !ok {
				return &patterns.NotFoundError{PatternID: id}
			}
			return printJSON(p)
		})
	}).Args("id").Desc("print a pattern"))

	cmds.Define("generate", cmds.Func(func(id string) {
		queue(func(ctx context.Context, repo *patterns.Repository) error {
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			n := max(*countFlag, 1)
			for i := range n {
				var opts []patterns.GenerateOption
				if *seedFlag != "" {
					seed := *seedFlag
					if n > 1 {
						seed = fmt.Sprintf("%s#%d", seed, i)
					}
					opts = append(opts, patterns.WithSeed(seed))
				}
				question, err := repo.Generate(ctx, id, opts...)
				if err != nil {
					return err
				}
				if err := printJSON(question); err != nil {
					return err
				}
			}
			return nil
		})
	}).Args("id").Desc("generate questions from a pattern"))

	cmds.Define("lint", cmds.Func(func() {
		queue(func(ctx context.Context, repo *patterns.Repository) error {
			valid, problems, err := repo.Lint(ctx)
			if err != nil {
				return err
			}
			for _, problem := range problems {
				fmt.Printf("%s: %v\n", problem.Key, problem.Err)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d invalid patterns", len(problems))
			}
			fmt.Printf("%d patterns ok\n", valid)
			return nil
		})
	}).Desc("validate every stored pattern"))

	cmds.Define("add", cmds.Func(func(path string) {
		queue(func(ctx context.Context, repo *patterns.Repository) error {
			p, err := readPattern(path)
			if err != nil {
				return err
			}
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			return repo.Add(ctx, p)
		})
	}).Args("file").Desc("add a pattern from a json file"))

	cmds.Define("update", cmds.Func(func(id string, path string) {
		queue(func(ctx context.Context, repo *patterns.Repository) error {
			p, err := readPattern(path)
			if err != nil {
				return err
			}
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			_, err = repo.Update(ctx, id, patterns.UpdateFromPattern(p))
			return err
		})
	}).Args("id", "file").Desc("replace the fields of a pattern from a json file"))

	cmds.Define("delete", cmds.Func(func(id string) {
		queue(func(ctx context.Context, repo *patterns.Repository) error {
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			return repo.Delete(ctx, id)
		})
	}).Args("id").Desc("archive a pattern"))

	cmds.Define("eval", cmds.Func(func(expr string) {
		queue(func(evaluator *sandbox.Evaluator) error {
			scope, err := bindScope(evaluator)
			if err != nil {
				return err
			}
			v, err := evaluator.Evaluate(expr, scope)
			if err != nil {
				return err
			}
			fmt.Println(sandbox.Format(v))
			return nil
		})
	}).Args("expr").Desc("evaluate an expression in the sandbox"))

	cmds.Define("solve", cmds.Func(func(code string) {
		queue(func(ctx context.Context, evaluator *sandbox.Evaluator, executor *solvers.Executor) error {
			scope, err := bindScope(evaluator)
			if err != nil {
				return err
			}
			v, err := executor.Execute(ctx, code, scope)
			if err != nil {
				return err
			}
			fmt.Println(sandbox.Format(v))
			return nil
		})
	}).Args("code").Desc("run solver statements in the sandbox"))

	cmds.Define("inspect", cmds.Func(func(id string, expr *string) {
		queue(func(ctx context.Context, repo *patterns.Repository, tap debugs.Tap, eval debugs.Eval) error {
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			p, ok := repo.Get(id)
			if !ok {
				return &patterns.NotFoundError{PatternID: id}
			}
			var opts []patterns.GenerateOption
			if *seedFlag != "" {
				opts = append(opts, patterns.WithSeed(*seedFlag))
			}
			question, err := repo.Generate(ctx, id, opts...)
			if err != nil {
				return err
			}
			globals := map[string]any{
				"pattern":  p,
				"question": question,
				"resolved": map[string]any(question.Variables),
			}
			if expr != nil {
				out, err := eval(ctx, *expr, globals)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}
			tap(ctx, id, globals)
			return nil
		})
	}).Args("id", "expr").Desc("inspect a generated question with starlark"))

	cmds.Define("watch", cmds.Func(func() {
		queue(func(ctx context.Context, repo *patterns.Repository, watch watches.Watch) error {
			if _, _, err := repo.Lint(ctx); err != nil {
				return err
			}
			if err := repo.LoadAll(ctx); err != nil {
				return err
			}
			return watch(ctx)
		})
	}).Desc("reload patterns as their files change"))
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func readPattern(path string) (*patterns.Pattern, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := patterns.DecodePattern(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

// bindScope evaluates each -v binding in order, so later ones may use earlier ones.
func bindScope(evaluator *sandbox.Evaluator) (map[string]any, error) {
	scope := make(map[string]any)
	for _, binding := range *bindings {
		name, expr, ok := strings.Cut(binding, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad binding %q, expecting name=expr", binding)
		}
		v, err := evaluator.Evaluate(expr, scope)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		scope[name] = v
	}
	return scope, nil
}
