package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v3"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

// BadgerStore keeps entries in a BadgerDB. Each entry is written with a TTL
// equal to the freshness window, so the database's own expiry stands in for
// the file modification time.
type BadgerStore struct {
	dir  string
	opts options
	api  sonic.API

	// mu guards db, which EnsureReady replaces when the directory vanished.
	mu sync.RWMutex
	db *badger.DB
}

// OpenBadger opens (creating if needed) a BadgerDB in dir.
func OpenBadger(dir string, opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{dir: dir, opts: buildOptions(opts), api: sonic.ConfigStd}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

func (s *BadgerStore) open() (*badger.DB, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	bopts := badger.DefaultOptions(s.dir).
		WithLogger(&badgerLogger{logger: s.opts.logger}).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return db, nil
}

// EnsureReady implements Store. When the directory was removed while the
// database was open, the old handle is closed and a fresh database is
// opened in its place.
func (s *BadgerStore) EnsureReady() error {
	s.mu.RLock()
	_, err := os.Stat(s.dir)
	s.mu.RUnlock()
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache error reading %s: %w", s.dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.dir); err == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.opts.logger.Warn("closing removed badger cache", "dir", s.dir, "err", err)
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// current returns the open database after EnsureReady, holding the read
// lock until release is called.
func (s *BadgerStore) current() (db *badger.DB, release func(), err error) {
	if err := s.EnsureReady(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	return s.db, s.mu.RUnlock, nil
}

// Load implements Store.
func (s *BadgerStore) Load(key string) (*model.Summary, bool) {
	db, release, err := s.current()
	if err != nil {
		s.opts.logger.Error("error loading WakaTime summary from cache", "key", key, "err", err)
		return nil, false
	}
	defer release()

	var summary model.Summary
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if exp := item.ExpiresAt(); exp != 0 {
			written := time.Unix(int64(exp), 0).Add(-s.opts.ttl)
			if !fresh(written, s.opts.now(), s.opts.ttl) {
				return badger.ErrKeyNotFound
			}
		}
		return item.Value(func(val []byte) error {
			return s.api.Unmarshal(val, &summary)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		s.opts.logger.Error("error loading WakaTime summary from cache", "key", key, "err", err)
		return nil, false
	}
	return &summary, true
}

// Save implements Store.
func (s *BadgerStore) Save(key string, summary *model.Summary) {
	if summary == nil {
		return
	}
	data, err := s.api.Marshal(summary)
	if err != nil {
		s.opts.logger.Error("error saving WakaTime summary to cache", "key", key, "err", err)
		return
	}
	db, release, err := s.current()
	if err != nil {
		s.opts.logger.Error("error saving WakaTime summary to cache", "key", key, "err", err)
		return
	}
	defer release()

	err = db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(s.opts.ttl))
	})
	if err != nil {
		s.opts.logger.Error("error saving WakaTime summary to cache", "key", key, "err", err)
	}
}

// Keys implements Store. Entries already expired by the database are not
// listed.
func (s *BadgerStore) Keys() ([]string, error) {
	db, release, err := s.current()
	if err != nil {
		return nil, err
	}
	defer release()

	var keys []string
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing cache keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear implements Store.
func (s *BadgerStore) Clear() error {
	db, release, err := s.current()
	if err != nil {
		return err
	}
	defer release()
	return db.DropAll()
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// badgerLogger routes badger's logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}
