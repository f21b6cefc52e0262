package storages

import (
	"fmt"
	"os"
	"sync"

	"github.com/reusee/dscope"
	"github.com/reusee/patgen/cmds"
	"github.com/reusee/patgen/configs"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/vars"
)

type Module struct {
	dscope.Module
}

const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

const defaultDir = "patterns"

var (
	dirFlag     = cmds.Var[string]("-dir", "pattern directory or badger path")
	backendFlag = cmds.Var[string]("-backend", "storage backend, file or badger")
)

type Settings struct {
	Backend    string
	Dir        string
	InMemory   bool
	SyncWrites bool
}

func (Module) Settings(
	loader configs.Loader,
) Settings {
	return Settings{
		Backend: vars.FirstNonZero(
			*backendFlag,
			configs.First[string](loader, "storage.backend"),
			BackendFile,
		),
		Dir: vars.FirstNonZero(
			*dirFlag,
			configs.First[string](loader, "storage.dir"),
			defaultDir,
		),
		InMemory:   configs.First[bool](loader, "storage.in_memory"),
		SyncWrites: configs.First[bool](loader, "storage.sync_writes") ||
			vars.StrToBool(os.Getenv("PATGEN_SYNC_WRITES")),
	}
}

// Opener opens the configured store on first use and closes it only
// if it was opened.
type Opener struct {
	settings Settings
	logger   logs.Logger
	mu       sync.Mutex
	opened   bool
	store    Store
	err      error
}

func (Module) Opener(
	settings Settings,
	logger logs.Logger,
) *Opener {
	return &Opener{
		settings: settings,
		logger:   logger,
	}
}

func (o *Opener) Open() (Store, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.opened {
		o.opened = true
		o.store, o.err = o.open()
	}
	return o.store, o.err
}

func (o *Opener) open() (Store, error) {
	settings := o.settings
	o.logger.Info("open store",
		"backend", settings.Backend,
		"dir", settings.Dir,
	)
	switch settings.Backend {
	case BackendFile:
		return NewFileStore(settings.Dir)
	case BackendBadger:
		return OpenBadgerStore(BadgerConfig{
			Path:       settings.Dir,
			InMemory:   settings.InMemory,
			SyncWrites: settings.SyncWrites,
			Logger:     o.logger,
		})
	}
	return nil, fmt.Errorf("unknown storage backend %q", settings.Backend)
}

func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.opened || o.err != nil {
		return nil
	}
	return o.store.Close()
}

type GetStore func() (Store, error)

func (Module) GetStore(
	opener *Opener,
) GetStore {
	return opener.Open
}
