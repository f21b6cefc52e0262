package storages

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	fileExt    = ".json"
	archiveDir = "archive"
)

// FileStore keeps each document in <dir>/<key>.json.
type FileStore struct {
	dir string
}

var _ Store = new(FileStore)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	return &FileStore{
		dir: dir,
	}, nil
}

func (f *FileStore) Dir() string {
	return f.dir
}

// KeyOf maps a file path inside the store directory back to its key.
func (f *FileStore) KeyOf(path string) (string, bool) {
	if filepath.Dir(path) != filepath.Clean(f.dir) {
		return "", false
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return strings.TrimSuffix(name, fileExt), true
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}

func (f *FileStore) List(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		entries, err := os.ReadDir(f.dir)
		if err != nil {
			yield(Record{}, err)
			return
		}
		// ReadDir sorts by name
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(Record{}, err)
				return
			}
			if entry.IsDir() {
				continue
			}
			key, ok := f.KeyOf(filepath.Join(f.dir, entry.Name()))
			if !ok {
				continue
			}
			data, err := os.ReadFile(f.path(key))
			if errors.Is(err, fs.ErrNotExist) {
				// removed while listing
				continue
			}
			if !yield(Record{Key: key, Data: data}, err) {
				return
			}
		}
	}
}

func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return data, err
}

// Put writes to a temporary file and renames it over the target, so
// readers never observe a partial document.
func (f *FileStore) Put(ctx context.Context, key string, data []byte) (err error) {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-"+key+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0640); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *FileStore) Archive(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(f.dir, archiveDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	target := filepath.Join(dir, fmt.Sprintf("%s.%d%s", key, time.Now().UnixNano(), fileExt))
	err := os.Rename(f.path(key), target)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return err
}

func (f *FileStore) Close() error {
	return nil
}
