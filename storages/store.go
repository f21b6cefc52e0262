package storages

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var ErrNotFound = errors.New("not found")

// Record is one stored pattern document.
type Record struct {
	Key  string
	Data []byte
}

// Store keeps one document per key. Archive moves a document out of the
// live set without destroying it.
type Store interface {
	List(ctx context.Context) iter.Seq2[Record, error]
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Archive(ctx context.Context, key string) error
	Close() error
}

func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
