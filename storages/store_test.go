package storages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
	if err := store.Put(ctx, "b", []byte("2")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "a", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "a", []byte("11")); err != nil {
		t.Fatal(err)
	}
	data, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "11" {
		t.Fatalf("got %s", data)
	}

	var keys []string
	for record, err := range store.List(ctx) {
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, record.Key)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("got %v", keys)
	}

	if err := store.Archive(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
	if err := store.Archive(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}

	for _, key := range []string{"", "../x", "a/b", ".hidden"} {
		if err := store.Put(ctx, key, nil); err == nil {
			t.Fatalf("%q: should error", key)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.Put(cancelled, "c", []byte("3")); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, store)

	archived, err := filepath.Glob(filepath.Join(dir, archiveDir, "a.*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 {
		t.Fatalf("got %v", archived)
	}
	content, err := os.ReadFile(archived[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "11" {
		t.Fatalf("got %s", content)
	}

	if key, ok := store.KeyOf(filepath.Join(dir, "b.json")); !ok || key != "b" {
		t.Fatalf("got %v %v", key, ok)
	}
	if _, ok := store.KeyOf(filepath.Join(dir, archiveDir, "b.json")); ok {
		t.Fatal("archived files have no key")
	}
	if _, ok := store.KeyOf(filepath.Join(dir, ".tmp-b-123")); ok {
		t.Fatal("temporary files have no key")
	}
}

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadgerStore(BadgerConfig{
		InMemory: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	testStore(t, store)

	archived, err := store.Archived(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 || string(archived[0]) != "11" {
		t.Fatalf("got %q", archived)
	}
}

func TestPersistentBadgerStore(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBadgerStore(BadgerConfig{
		Path:       dir,
		SyncWrites: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Put(ctx, "p", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenBadgerStore(BadgerConfig{
		Path: dir,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	data, err := store.Get(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "x" {
		t.Fatalf("got %s", data)
	}

	if _, err := OpenBadgerStore(BadgerConfig{}); err == nil {
		t.Fatal("should error")
	}
}
