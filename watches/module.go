package watches

import (
	"context"
	"errors"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/patgen/cmds"
	"github.com/reusee/patgen/configs"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/patterns"
	"github.com/reusee/patgen/storages"
	"github.com/reusee/patgen/vars"
)

type Module struct {
	dscope.Module
}

var debounceFlag = cmds.Var[time.Duration]("-debounce", "quiet period before reloading changed patterns")

type Debounce time.Duration

func (Module) Debounce(
	loader configs.Loader,
	logger logs.Logger,
) Debounce {
	var fromConfig time.Duration
	if s := configs.First[string](loader, "watch.debounce"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			logger.Warn("bad watch.debounce", "value", s, "error", err)
		}
		fromConfig = d
	}
	return Debounce(vars.FirstNonZero(
		*debounceFlag,
		fromConfig,
		DefaultDebounce,
	))
}

var ErrNotWatchable = errors.New("store is not backed by a directory")

// Watch reloads changed patterns into the repository until ctx is done.
type Watch func(ctx context.Context) error

func (Module) Watch(
	getStore storages.GetStore,
	repository *patterns.Repository,
	debounce Debounce,
	logger logs.Logger,
) Watch {
	return func(ctx context.Context) error {
		store, err := getStore()
		if err != nil {
			return err
		}
		fileStore, ok := store.(*storages.FileStore)
		if !ok {
			return ErrNotWatchable
		}
		return NewWatcher(
			fileStore.Dir(),
			fileStore.KeyOf,
			time.Duration(debounce),
			ReloadHandler(repository, logger),
			logger,
		).Run(ctx)
	}
}

// ReloadHandler reloads each changed key. A failed reload is logged and
// the previous version stays in service.
func ReloadHandler(repository *patterns.Repository, logger logs.Logger) Handler {
	return func(ctx context.Context, changes []Change) {
		for _, change := range changes {
			if err := repository.Reload(ctx, change.Key); err != nil {
				logger.WarnContext(ctx, "reload pattern",
					"pattern", change.Key,
					"error", err,
				)
			}
		}
	}
}
