package storages

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	livePrefix    = "pattern/"
	archivePrefix = "archive/"
)

type BadgerConfig struct {
	// Path is the database directory; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

// BadgerStore keeps live documents under pattern/<key> and archived
// ones under archive/<key>/<unix-nano>.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = new(BadgerStore)

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{
		db: db,
	}, nil
}

func (b *BadgerStore) List(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		var records []Record
		err := b.view(ctx, func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{
				PrefetchValues: true,
				PrefetchSize:   64,
				Prefix:         []byte(livePrefix),
			})
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				data, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				records = append(records, Record{
					Key:  string(item.Key()[len(livePrefix):]),
					Data: data,
				})
			}
			return nil
		})
		if err != nil {
			yield(Record{}, err)
			return
		}
		for _, record := range records {
			if !yield(record, nil) {
				return
			}
		}
	}
}

func (b *BadgerStore) Get(ctx context.Context, key string) (data []byte, err error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	err = b.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(livePrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		} else if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return
}

func (b *BadgerStore) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return b.update(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(livePrefix+key), data)
	})
}

// Archive moves the live document and deletes it in one transaction.
func (b *BadgerStore) Archive(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return b.update(ctx, func(txn *badger.Txn) error {
		liveKey := []byte(livePrefix + key)
		item, err := txn.Get(liveKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		} else if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		archiveKey := fmt.Sprintf("%s%s/%d", archivePrefix, key, time.Now().UnixNano())
		if err := txn.Set([]byte(archiveKey), data); err != nil {
			return err
		}
		return txn.Delete(liveKey)
	})
}

// Archived returns the archived versions of key, oldest first.
func (b *BadgerStore) Archived(ctx context.Context, key string) (ret [][]byte, err error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	prefix := []byte(archivePrefix + key + "/")
	err = b.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			Prefix:         prefix,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ret = append(ret, data)
		}
		return nil
	})
	return
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
