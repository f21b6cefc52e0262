package watches

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/reusee/patgen/logs"
)

// Change is one pattern key touched during a debounce window.
type Change struct {
	Key     string
	Removed bool
}

type Handler func(ctx context.Context, changes []Change)

const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to the files of one directory, batched so that
// an editor's burst of writes becomes one change per key.
type Watcher struct {
	dir      string
	keyOf    func(path string) (string, bool)
	debounce time.Duration
	handler  Handler
	logger   logs.Logger
}

func NewWatcher(
	dir string,
	keyOf func(path string) (string, bool),
	debounce time.Duration,
	handler Handler,
	logger logs.Logger,
) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		keyOf:    keyOf,
		debounce: debounce,
		handler:  handler,
		logger:   logger,
	}
}

// Run watches until ctx is done. Pending changes are dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.InfoContext(ctx, "watching", "dir", w.dir)

	pending := make(map[string]Change)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {

		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			key, ok := w.keyOf(event.Name)
			if !ok {
				continue
			}
			pending[key] = Change{
				Key:     key,
				Removed: removed(event),
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changes := slices.SortedFunc(maps.Values(pending), func(a, b Change) int {
				return cmp.Compare(a.Key, b.Key)
			})
			clear(pending)
			w.handler(ctx, changes)

		}
	}
}

func removed(event fsnotify.Event) bool {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// a rename over the old name still leaves a file there
		_, err := os.Stat(event.Name)
		return os.IsNotExist(err)
	}
	return false
}
