package storages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/patgen/configs"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/modes"
)

func TestSettingsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patgen.cue")
	if err := os.WriteFile(path, []byte(`
storage: {
	backend:   "badger"
	in_memory: true
}
`), 0644); err != nil {
		t.Fatal(err)
	}
	dscope.New(
		modes.ForTest(t),
		new(logs.Module),
		new(Module),
		dscope.Provide(configs.NewLoader([]string{path}, "")),
	).Call(func(
		settings Settings,
		getStore GetStore,
		opener *Opener,
	) {
		if settings.Backend != BackendBadger || !settings.InMemory {
			t.Fatalf("got %+v", settings)
		}
		if settings.Dir != defaultDir {
			t.Fatalf("got %v", settings.Dir)
		}
		store, err := getStore()
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := store.(*BadgerStore); !ok {
			t.Fatalf("got %T", store)
		}
		again, err := getStore()
		if err != nil || again != store {
			t.Fatalf("got %v %v", again, err)
		}
		if err := opener.Close(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestOpenerCloseUnopened(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "patterns")
	dscope.New(
		modes.ForTest(t),
		new(logs.Module),
		new(Module),
		dscope.Provide(configs.NewLoader(nil, "")),
	).Fork(
		func() Settings {
			return Settings{
				Backend: BackendFile,
				Dir:     dir,
			}
		},
	).Call(func(
		opener *Opener,
	) {
		if err := opener.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Fatalf("got %v", err)
		}
		store, err := opener.Open()
		if err != nil {
			t.Fatal(err)
		}
		if store.(*FileStore).Dir() != dir {
			t.Fatalf("got %v", store)
		}
	})
}

func TestUnknownBackend(t *testing.T) {
	dscope.New(
		modes.ForTest(t),
		new(logs.Module),
		new(Module),
		dscope.Provide(configs.NewLoader(nil, "")),
	).Fork(
		func() Settings {
			return Settings{
				Backend: "sqlite",
			}
		},
	).Call(func(
		getStore GetStore,
	) {
		if _, err := getStore(); err == nil {
			t.Fatal("should error")
		}
	})
}
