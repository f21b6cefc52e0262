package patterns

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/metrics"
	"github.com/reusee/patgen/storages"
	"golang.org/x/sync/errgroup"
)

// Repository caches the patterns of a store and generates questions
// from them. Mutations are serialized, and the cache is only updated
// after the store accepted the write.
type Repository struct {
	GetStore  dscope.Inject[storages.GetStore]
	Generator dscope.Inject[*Generator]
	Checker   dscope.Inject[*Checker]
	Logger    dscope.Inject[logs.Logger]
	NewSpan   dscope.Inject[logs.NewSpan]

	writeMu  sync.Mutex
	mu       sync.RWMutex
	patterns map[string]*Pattern
}

func (r *Repository) store() (storages.Store, error) {
	return r.GetStore()()
}

// LoadProblem is a stored pattern that could not be loaded.
type LoadProblem struct {
	Key string
	Err error
}

func (r *Repository) decode(ctx context.Context) (map[string]*Pattern, []LoadProblem, error) {
	store, err := r.store()
	if err != nil {
		return nil, nil, err
	}

	var records []storages.Record
	for record, err := range store.List(ctx) {
		if err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}

	decoded := make([]*Pattern, len(records))
	errs := make([]error, len(records))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	checker := r.Checker()
	for i, record := range records {
		group.Go(func() error {
			p, err := DecodePattern(record.Data)
			if err != nil {
				errs[i] = err
				return nil
			}
			if p.ID != record.Key {
				errs[i] = fmt.Errorf("pattern id %q does not match key", p.ID)
				return nil
			}
			if err := checker.Check(p); err != nil {
				errs[i] = err
				return nil
			}
			decoded[i] = p
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	patterns := make(map[string]*Pattern, len(records))
	var problems []LoadProblem
	for i, record := range records {
		if errs[i] != nil {
			problems = append(problems, LoadProblem{
				Key: record.Key,
				Err: errs[i],
			})
			continue
		}
		patterns[record.Key] = decoded[i]
	}
	return patterns, problems, nil
}

// LoadAll replaces the cache with every valid pattern in the store.
// Invalid patterns are logged and skipped.
func (r *Repository) LoadAll(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	patterns, problems, err := r.decode(ctx)
	if err != nil {
		return err
	}
	for _, problem := range problems {
		r.Logger().WarnContext(ctx, "skip invalid pattern",
			"key", problem.Key,
			"error", problem.Err,
		)
	}

	r.mu.Lock()
	r.patterns = patterns
	r.mu.Unlock()
	metrics.PatternsLoaded.Set(float64(len(patterns)))
	r.Logger().InfoContext(ctx, "patterns loaded",
		"count", len(patterns),
		"skipped", len(problems),
	)
	return nil
}

// Lint checks every stored pattern without touching the cache. It returns
// the number of valid patterns and the invalid ones.
func (r *Repository) Lint(ctx context.Context) (int, []LoadProblem, error) {
	patterns, problems, err := r.decode(ctx)
	if err != nil {
		return 0, nil, err
	}
	checker := r.Checker()
	for _, id := range slices.Sorted(maps.Keys(patterns)) {
		for _, warning := range checker.Warnings(patterns[id]) {
			r.Logger().WarnContext(ctx, "pattern warning",
				"pattern", id,
				"warning", warning,
			)
		}
	}
	return len(patterns), problems, nil
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

func (r *Repository) Get(id string) (*Pattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patterns[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Find returns the patterns matching the given filters, sorted by id.
// A nil filter matches everything.
func (r *Repository) Find(topic *string, marks *int) []*Pattern {
	r.mu.RLock()
	var ret []*Pattern
	for _, p := range r.patterns {
		if topic != nil && p.Topic != *topic {
			continue
		}
		if marks != nil && p.Marks != *marks {
			continue
		}
		ret = append(ret, p.Clone())
	}
	r.mu.RUnlock()
	slices.SortFunc(ret, func(a, b *Pattern) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return ret
}

func (r *Repository) Generate(ctx context.Context, id string, opts ...GenerateOption) (*GeneratedQuestion, error) {
	ctx, _ = r.NewSpan()(ctx, "")
	p, ok := r.Get(id)
	if !ok {
		return nil, logs.WrapSpan(ctx, &NotFoundError{
			PatternID: id,
		})
	}
	question, err := r.Generator().Generate(ctx, p, opts...)
	if err != nil {
		return nil, logs.WrapSpan(ctx, err)
	}
	return question, nil
}

func (r *Repository) put(ctx context.Context, p *Pattern) error {
	if err := r.Checker().Check(p); err != nil {
		return err
	}
	data, err := EncodePattern(p)
	if err != nil {
		return err
	}
	store, err := r.store()
	if err != nil {
		return err
	}
	if err := store.Put(ctx, p.ID, data); err != nil {
		return fmt.Errorf("store pattern %s: %w", p.ID, err)
	}
	r.mu.Lock()
	if r.patterns == nil {
		r.patterns = make(map[string]*Pattern)
	}
	r.patterns[p.ID] = p.Clone()
	n := len(r.patterns)
	r.mu.Unlock()
	metrics.PatternsLoaded.Set(float64(n))
	return nil
}

func (r *Repository) Add(ctx context.Context, p *Pattern) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, ok := r.Get(p.ID); ok {
		return fmt.Errorf("%s: %w", p.ID, ErrPatternExists)
	}
	p = p.Clone()
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := r.put(ctx, p); err != nil {
		return err
	}
	r.Logger().InfoContext(ctx, "pattern added", "pattern", p.ID)
	return nil
}

func (r *Repository) Update(ctx context.Context, id string, update PatternUpdate) (*Pattern, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	p, ok := r.Get(id)
	if !ok {
		return nil, &NotFoundError{
			PatternID: id,
		}
	}
	update.apply(p)
	p.UpdatedAt = time.Now().UTC()
	if err := r.put(ctx, p); err != nil {
		return nil, err
	}
	r.Logger().InfoContext(ctx, "pattern updated", "pattern", id)
	return p.Clone(), nil
}

// Delete archives the stored pattern and removes it from the cache.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, ok := r.Get(id); !ok {
		return &NotFoundError{
			PatternID: id,
		}
	}
	store, err := r.store()
	if err != nil {
		return err
	}
	if err := store.Archive(ctx, id); err != nil {
		if !errors.Is(err, storages.ErrNotFound) {
			return fmt.Errorf("archive pattern %s: %w", id, err)
		}
		r.Logger().WarnContext(ctx, "pattern missing from store", "pattern", id)
	}
	r.evict(id)
	r.Logger().InfoContext(ctx, "pattern deleted", "pattern", id)
	return nil
}

func (r *Repository) evict(id string) {
	r.mu.Lock()
	delete(r.patterns, id)
	n := len(r.patterns)
	r.mu.Unlock()
	metrics.PatternsLoaded.Set(float64(n))
}

// Reload refreshes one pattern from the store. A pattern gone from the
// store leaves the cache; an invalid one keeps its cached version.
func (r *Repository) Reload(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	store, err := r.store()
	if err != nil {
		return err
	}
	data, err := store.Get(ctx, id)
	if errors.Is(err, storages.ErrNotFound) {
		r.evict(id)
		r.Logger().InfoContext(ctx, "pattern removed", "pattern", id)
		return nil
	} else if err != nil {
		return err
	}

	p, err := DecodePattern(data)
	if err != nil {
		return fmt.Errorf("decode pattern %s: %w", id, err)
	}
	if p.ID != id {
		return fmt.Errorf("pattern id %q does not match key %q", p.ID, id)
	}
	if err := r.Checker().Check(p); err != nil {
		return err
	}
	r.mu.Lock()
	if r.patterns == nil {
		r.patterns = make(map[string]*Pattern)
	}
	r.patterns[id] = p
	n := len(r.patterns)
	r.mu.Unlock()
	metrics.PatternsLoaded.Set(float64(n))
	r.Logger().InfoContext(ctx, "pattern reloaded", "pattern", id)
	return nil
}
