package patterns

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/patgen/configs"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/modes"
	"github.com/reusee/patgen/rands"
	"github.com/reusee/patgen/sandbox"
	"github.com/reusee/patgen/solvers"
	"github.com/reusee/patgen/storages"
)

func testScope(t *testing.T, store storages.Store) dscope.Scope {
	if store == nil {
		var err error
		store, err = storages.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
	}
	return dscope.New(
		modes.ForTest(t),
		new(logs.Module),
		new(sandbox.Module),
		new(solvers.Module),
		new(rands.Module),
		new(Module),
		dscope.Provide(configs.NewLoader(nil, "")),
		dscope.Provide(storages.GetStore(func() (storages.Store, error) {
			return store, nil
		})),
	)
}

func quadraticPattern() *Pattern {
	return &Pattern{
		ID:           "quadratic-roots",
		Topic:        "algebra",
		Marks:        3,
		Difficulty:   0.4,
		TemplateText: "Solve {a}x^2 + {b}x + {c} = 0",
		Variables: Variables{
			{Name: "a", Spec: IntSpec{Min: 1, Max: 1}},
			{Name: "b", Spec: IntSpec{Min: 4, Max: 4}},
			{Name: "c", Spec: IntSpec{Min: 4, Max: 4}},
			{Name: "discriminant", Spec: CalculatedSpec{Formula: "{b}**2 - 4*{a}*{c}"}},
		},
		SolutionTemplate: []string{
			"The discriminant is {b}^2 - 4({a})({c}) = {discriminant}",
			"The roots are {'equal' if discriminant == 0 else ('distinct' if discriminant > 0 else 'complex')}",
		},
		AnswerTemplate: "{'equal' if discriminant == 0 else ('distinct' if discriminant > 0 else 'complex')}",
		SocraticHints: []Hint{
			{Level: 1, Hint: "What is the discriminant?"},
		},
		ValidationRules: []string{
			"discriminant >= 0",
		},
	}
}

func TestDiscriminantScenario(t *testing.T) {
	testScope(t, nil).Call(func(
		repo *Repository,
	) {
		ctx := context.Background()
		if err := repo.Add(ctx, quadraticPattern()); err != nil {
			t.Fatal(err)
		}
		question, err := repo.Generate(ctx, "quadratic-roots")
		if err != nil {
			t.Fatal(err)
		}
		if question.Variables["discriminant"] != int64(0) {
			t.Fatalf("got %v", question.Variables["discriminant"])
		}
		if question.Answer != "equal" {
			t.Fatalf("got %s", question.Answer)
		}
		if question.Question != "Solve 1x^2 + 4x + 4 = 0" {
			t.Fatalf("got %s", question.Question)
		}
		if !slices.Equal(question.Solution, []string{
			"The discriminant is 4^2 - 4(1)(4) = 0",
			"The roots are equal",
		}) {
			t.Fatalf("got %q", question.Solution)
		}
		if question.Attempts != 1 || question.ID == "" || question.Marks != 3 {
			t.Fatalf("got %+v", question)
		}
	})
}

func TestAnswerRoundTrip(t *testing.T) {
	testScope(t, nil).Call(func(
		repo *Repository,
		renderer *Renderer,
	) {
		ctx := context.Background()
		p := &Pattern{
			ID:           "cylinder",
			Topic:        "mensuration",
			Marks:        2,
			TemplateText: "A cylinder has radius {r} cm and height {h} cm. Find its volume.",
			Variables: Variables{
				{Name: "r", Spec: FloatSpec{Min: 1, Max: 5, Decimals: 1}},
				{Name: "h", Spec: IntSpec{Min: 2, Max: 9}},
				{Name: "unit", Spec: ChoiceSpec{Choices: []any{"cm^3", "cubic cm"}}},
			},
			SolverCode:     "base = pi * r ** 2\nvolume = base * h\nreturn round(volume, 2)",
			AnswerTemplate: "{answer} {unit}",
			ValidationRules: []string{
				"answer > 0",
			},
		}
		if err := repo.Add(ctx, p); err != nil {
			t.Fatal(err)
		}
		for i := range 20 {
			question, err := repo.Generate(ctx, p.ID, WithSource(rands.New(uint64(i))))
			if err != nil {
				t.Fatal(err)
			}
			rendered := renderer.Render(ctx, p.AnswerTemplate, question.Variables.Scope())
			if rendered != question.Answer {
				t.Fatalf("got %q, expected %q", rendered, question.Answer)
			}
			if _, ok := question.Variables[AnswerVariable]; !ok {
				t.Fatal("answer not recorded")
			}
		}
	})
}

func TestSeedIsReproducible(t *testing.T) {
	testScope(t, nil).Call(func(
		repo *Repository,
	) {
		ctx := context.Background()
		p := &Pattern{
			ID:           "sum",
			Topic:        "arithmetic",
			TemplateText: "{a} + {b}",
			Variables: Variables{
				{Name: "a", Spec: IntSpec{Min: 0, Max: 1000000}},
				{Name: "b", Spec: IntSpec{Min: 0, Max: 1000000}},
			},
			AnswerTemplate: "{a + b}",
		}
		if err := repo.Add(ctx, p); err != nil {
			t.Fatal(err)
		}
		q1, err := repo.Generate(ctx, "sum", WithSeed("exam-1"))
		if err != nil {
			t.Fatal(err)
		}
		q2, err := repo.Generate(ctx, "sum", WithSeed("exam-1"))
		if err != nil {
			t.Fatal(err)
		}
		if q1.Question != q2.Question || q1.Answer != q2.Answer {
			t.Fatalf("got %q %q", q1.Question, q2.Question)
		}
		if q1.ID == q2.ID {
			t.Fatal("question ids should differ")
		}
	})
}

func TestBoundedRetry(t *testing.T) {
	testScope(t, nil).Call(func(
		repo *Repository,
	) {
		ctx := context.Background()
		p := &Pattern{
			ID:           "impossible",
			Topic:        "logic",
			TemplateText: "{a}",
			Variables: Variables{
				{Name: "a", Spec: IntSpec{Min: 1, Max: 5}},
			},
			ValidationRules: []string{
				"a > 100",
			},
		}
		if err := repo.Add(ctx, p); err != nil {
			t.Fatal(err)
		}

		_, err := repo.Generate(ctx, "impossible", WithMaxAttempts(3))
		var generationErr *GenerationError
		if !errors.As(err, &generationErr) {
			t.Fatalf("got %v", err)
		}
		if generationErr.Attempts != 3 || generationErr.PatternID != "impossible" {
			t.Fatalf("got %+v", generationErr)
		}
		var ruleErr *RuleError
		if !errors.As(err, &ruleErr) {
			t.Fatalf("got %v", err)
		}

		_, err = repo.Generate(ctx, "impossible")
		if !errors.As(err, &generationErr) || generationErr.Attempts != DefaultMaxAttempts {
			t.Fatalf("got %v", err)
		}
	})
}

func TestRejectionRedraws(t *testing.T) {
	testScope(t, nil).Call(func(
		repo *Repository,
	) {
		ctx := context.Background()
		p := &Pattern{
			ID:           "nonzero",
			Topic:        "arithmetic",
			TemplateText: "{12 // d}",
			Variables: Variables{
				{Name: "d", Spec: IntSpec{Min: 0, Max: 1}},
				{Name: "q", Spec: CalculatedSpec{Formula: "12 // {d}"}},
			},
		}
		if err := repo.Add(ctx, p); err != nil {
			t.Fatal(err)
		}
		for i := range 10 {
			question, err := repo.Generate(ctx, "nonzero", WithSource(rands.New(uint64(i))), WithMaxAttempts(100))
			if err != nil {
				t.Fatal(err)
			}
			if question.Question != "12" {
				t.Fatalf("got %s", question.Question)
			}
		}
	})
}

func TestFatalErrors(t *testing.T) {
	testScope(t, nil).Call(func(
		repo *Repository,
		generator *Generator,
	) {
		ctx := context.Background()

		_, err := repo.Generate(ctx, "nope")
		if !errors.Is(err, ErrPatternNotFound) {
			t.Fatalf("got %v", err)
		}

		// not checked, so the generator sees the violation
		_, err = generator.Generate(ctx, &Pattern{
			ID:           "escape",
			TemplateText: "x",
			Variables: Variables{
				{Name: "x", Spec: CalculatedSpec{Formula: "().__class__"}},
			},
		})
		if !errors.Is(err, sandbox.ErrSandbox) {
			t.Fatalf("got %v", err)
		}
		if errors.As(err, new(*GenerationError)) {
			t.Fatal("violation should not be retried")
		}

		_, err = generator.Generate(ctx, &Pattern{
			ID:           "cycle",
			TemplateText: "x",
			Variables: Variables{
				{Name: "x", Spec: CalculatedSpec{Formula: "{y}+1"}},
				{Name: "y", Spec: CalculatedSpec{Formula: "{x}+1"}},
			},
		})
		if !errors.As(err, new(*ResolutionError)) {
			t.Fatalf("got %v", err)
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = generator.Generate(cancelled, quadraticPattern())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestRepository(t *testing.T) {
	dir := t.TempDir()
	store, err := storages.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	testScope(t, store).Call(func(
		repo *Repository,
	) {
		ctx := context.Background()

		p := quadraticPattern()
		if err := repo.Add(ctx, p); err != nil {
			t.Fatal(err)
		}
		if err := repo.Add(ctx, p); !errors.Is(err, ErrPatternExists) {
			t.Fatalf("got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "quadratic-roots.json")); err != nil {
			t.Fatal(err)
		}

		got, ok := repo.Get("quadratic-roots")
		if !ok {
			t.Fatal("not found")
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Fatalf("got %+v", got)
		}
		got.Topic = "mutated"
		if again, _ := repo.Get("quadratic-roots"); again.Topic != "algebra" {
			t.Fatal("cache should not be shared")
		}

		other := quadraticPattern()
		other.ID = "another"
		other.Marks = 5
		if err := repo.Add(ctx, other); err != nil {
			t.Fatal(err)
		}
		topic := "algebra"
		marks := 5
		if found := repo.Find(&topic, nil); len(found) != 2 || found[0].ID != "another" {
			t.Fatalf("got %v", found)
		}
		if found := repo.Find(&topic, &marks); len(found) != 1 || found[0].ID != "another" {
			t.Fatalf("got %v", found)
		}
		if found := repo.Find(nil, nil); len(found) != 2 {
			t.Fatalf("got %v", found)
		}

		newTopic := "quadratics"
		updated, err := repo.Update(ctx, "quadratic-roots", PatternUpdate{
			Topic: &newTopic,
		})
		if err != nil {
			t.Fatal(err)
		}
		if updated.Topic != "quadratics" || updated.TemplateText != p.TemplateText {
			t.Fatalf("got %+v", updated)
		}

		// invalid updates leave the stored pattern alone
		badRules := []string{"discriminant >"}
		if _, err := repo.Update(ctx, "quadratic-roots", PatternUpdate{
			ValidationRules: &badRules,
		}); !errors.As(err, new(*ValidationError)) {
			t.Fatalf("got %v", err)
		}
		if _, err := repo.Update(ctx, "nope", PatternUpdate{}); !errors.Is(err, ErrPatternNotFound) {
			t.Fatalf("got %v", err)
		}

		if err := repo.Delete(ctx, "another"); err != nil {
			t.Fatal(err)
		}
		if _, ok := repo.Get("another"); ok {
			t.Fatal("should be deleted")
		}
		if err := repo.Delete(ctx, "another"); !errors.Is(err, ErrPatternNotFound) {
			t.Fatalf("got %v", err)
		}
		archived, err := filepath.Glob(filepath.Join(dir, "archive", "another.*.json"))
		if err != nil {
			t.Fatal(err)
		}
		if len(archived) != 1 {
			t.Fatalf("got %v", archived)
		}

		// reload from the store
		if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := repo.LoadAll(ctx); err != nil {
			t.Fatal(err)
		}
		if repo.Len() != 1 {
			t.Fatalf("got %d", repo.Len())
		}
		if got, _ := repo.Get("quadratic-roots"); got.Topic != "quadratics" {
			t.Fatalf("got %+v", got)
		}
		valid, problems, err := repo.Lint(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if valid != 1 {
			t.Fatalf("got %d", valid)
		}
		if len(problems) != 1 || problems[0].Key != "broken" {
			t.Fatalf("got %v", problems)
		}
	})
}

func TestLintWithoutLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := storages.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	testScope(t, store).Call(func(
		repo *Repository,
	) {
		data, err := EncodePattern(quadraticPattern())
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "quadratic-roots.json"), data, 0644); err != nil {
			t.Fatal(err)
		}
		valid, problems, err := repo.Lint(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if valid != 1 || len(problems) != 0 {
			t.Fatalf("got %d %v", valid, problems)
		}
		if repo.Len() != 0 {
			t.Fatalf("got %d", repo.Len())
		}
	})
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	store, err := storages.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	testScope(t, store).Call(func(
		repo *Repository,
	) {
		ctx := context.Background()
		p := quadraticPattern()
		p.Marks = 7
		data, err := EncodePattern(p)
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, p.ID+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		if err := repo.Reload(ctx, p.ID); err != nil {
			t.Fatal(err)
		}
		if got, ok := repo.Get(p.ID); !ok || got.Marks != 7 {
			t.Fatalf("got %v", got)
		}

		// invalid content keeps the cached version
		if err := os.WriteFile(path, []byte(`{"pattern_id": "quadratic-roots"}`), 0644); err != nil {
			t.Fatal(err)
		}
		if err := repo.Reload(ctx, p.ID); err == nil {
			t.Fatal("should error")
		}
		if _, ok := repo.Get(p.ID); !ok {
			t.Fatal("cached version should stay")
		}

		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}
		if err := repo.Reload(ctx, p.ID); err != nil {
			t.Fatal(err)
		}
		if _, ok := repo.Get(p.ID); ok {
			t.Fatal("should be removed")
		}
	})
}

func TestBadgerBackedRepository(t *testing.T) {
	store, err := storages.OpenBadgerStore(storages.BadgerConfig{
		InMemory: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	testScope(t, store).Call(func(
		repo *Repository,
	) {
		ctx := context.Background()
		if err := repo.Add(ctx, quadraticPattern()); err != nil {
			t.Fatal(err)
		}
		if err := repo.LoadAll(ctx); err != nil {
			t.Fatal(err)
		}
		if repo.Len() != 1 {
			t.Fatalf("got %d", repo.Len())
		}
		if err := repo.Delete(ctx, "quadratic-roots"); err != nil {
			t.Fatal(err)
		}
		archived, err := store.Archived(ctx, "quadratic-roots")
		if err != nil {
			t.Fatal(err)
		}
		if len(archived) != 1 {
			t.Fatalf("got %d", len(archived))
		}
	})
}
