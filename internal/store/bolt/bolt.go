// Package bolt implements store.Store over bbolt. Each category lives in its
// own bucket; the store directory holds a single database file guarded by
// bbolt's exclusive file lock.
package bolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"cellar/internal/config"
	"cellar/internal/logging"
	"cellar/internal/store"
)

const dbFile = "data.db"

var logger = logging.For("store.bolt")

// state is either openState or closedState. Every method that touches the
// engine switches on it.
type state interface{ isState() }

type openState struct{ db *bolt.DB }

type closedState struct{}

func (openState) isState()   {}
func (closedState) isState() {}

// Store implements store.Store using bbolt (embedded B+ tree).
// While closed, reads report absence and writes are silently dropped.
type Store struct {
	path     string
	cfg      config.StoreConfig
	fs       FileSystem
	batching bool

	restoreMu sync.Mutex // serializes Restore

	mu    sync.RWMutex // guards state
	state state
}

var _ store.Store = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithFS replaces the filesystem used by Restore.
func WithFS(fs FileSystem) Option {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// Open creates or opens a store directory at path. If cfg declares a
// namespace count, that many category namespaces are created up front;
// the default namespace always exists.
func Open(path string, cfg config.StoreConfig, opts ...Option) (*Store, error) {
	s := &Store{
		path:     filepath.Clean(path),
		cfg:      cfg,
		fs:       osFS{},
		batching: cfg.ParallelismHint != nil && *cfg.ParallelismHint > 0,
		state:    closedState{},
	}
	for _, o := range opts {
		o(s)
	}

	if err := os.MkdirAll(s.path, 0700); err != nil {
		return nil, store.Internal("creating store directory", err)
	}
	st, err := s.openEngine()
	if err != nil {
		return nil, err
	}
	s.state = st
	return s, nil
}

// Path returns the store directory.
func (s *Store) Path() string {
	return s.path
}

// IsOpen reports whether the engine handle is live.
func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.(openState)
	return ok
}

// Reopen re-acquires the engine handle with the original configuration.
// It is a no-op on an open store. Unlike Open it never creates the store
// directory, so a missing dataset is reported instead of replaced.
// A Reopen issued while Restore runs waits for it to finish.
func (s *Store) Reopen() error {
	s.restoreMu.Lock()
	defer s.restoreMu.Unlock()
	return s.reopen()
}

// reopen is Reopen for callers already holding restoreMu.
func (s *Store) reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.(type) {
	case openState:
		return nil
	case closedState:
	}

	if _, err := os.Stat(s.path); err != nil {
		return store.Internal("store directory unavailable", err)
	}
	st, err := s.openEngine()
	if err != nil {
		return err
	}
	s.state = st
	return nil
}

// Close releases the engine handle and its file lock. Closing a closed
// store is a no-op. Close waits for open iterators to be closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch st := s.state.(type) {
	case closedState:
		return nil
	case openState:
		s.state = closedState{}
		if err := st.db.Close(); err != nil {
			return store.Internal("closing engine", err)
		}
		logger.Info("store closed", "path", s.path)
	}
	return nil
}

func (s *Store) openEngine() (openState, error) {
	file := filepath.Join(s.path, dbFile)
	db, err := bolt.Open(file, 0600, engineOptions(s.cfg))
	if err != nil {
		return openState{}, store.Internal(fmt.Sprintf("opening engine at %s", s.path), err)
	}
	tune(db, s.cfg)

	names := declaredNamespaces(s.cfg)
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating namespace %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return openState{}, store.Internal("preparing namespaces", err)
	}

	logger.Info("store opened", "path", s.path, "namespaces", len(names))
	return openState{db: db}, nil
}

func (s *Store) Get(cat store.Category, key []byte) ([]byte, error) {
	var val []byte
	err := s.view(cat, func(b *bolt.Bucket) error {
		if v := b.Get(key); v != nil {
			val = clone(v)
		}
		return nil
	})
	return val, err
}

func (s *Store) GetBatch(cat store.Category, keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	err := s.view(cat, func(b *bolt.Bucket) error {
		for i, key := range keys {
			if v := b.Get(key); v != nil {
				out[i] = clone(v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Contains checks presence without copying the value out of the mmap.
func (s *Store) Contains(cat store.Category, key []byte) (bool, error) {
	var found bool
	err := s.view(cat, func(b *bolt.Bucket) error {
		found = b.Get(key) != nil
		return nil
	})
	return found, err
}

func (s *Store) Insert(cat store.Category, key, value []byte) error {
	return s.update(cat, true, func(b *bolt.Bucket) error {
		return b.Put(key, value)
	})
}

func (s *Store) InsertBatch(cat store.Category, keys, values [][]byte) error {
	if err := store.CheckBatch(keys, values); err != nil {
		return err
	}
	return s.update(cat, false, func(b *bolt.Bucket) error {
		for i := range keys {
			if err := b.Put(keys[i], values[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Remove(cat store.Category, key []byte) error {
	return s.update(cat, true, func(b *bolt.Bucket) error {
		return b.Delete(key)
	})
}

func (s *Store) RemoveBatch(cat store.Category, keys [][]byte) error {
	return s.update(cat, false, func(b *bolt.Bucket) error {
		for _, key := range keys {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// DropCategory discards every entry of cat by dropping its namespace and
// creating it again empty.
func (s *Store) DropCategory(cat store.Category) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch st := s.state.(type) {
	case closedState:
		return nil
	case openState:
		err := st.db.Update(func(tx *bolt.Tx) error {
			if _, err := bucket(tx, cat); err != nil {
				return err
			}
			name := []byte(cat.Namespace())
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			_, err := tx.CreateBucket(name)
			return err
		})
		if err != nil {
			return engineErr("dropping namespace", err)
		}
		logger.Info("category dropped", "category", cat)
	}
	return nil
}

// view runs fn in a read transaction against the namespace of cat. On a
// closed store fn is not called.
func (s *Store) view(cat store.Category, fn func(b *bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch st := s.state.(type) {
	case closedState:
		return nil
	case openState:
		err := st.db.View(func(tx *bolt.Tx) error {
			b, err := bucket(tx, cat)
			if err != nil {
				return err
			}
			return fn(b)
		})
		return engineErr("reading", err)
	}
	return nil
}

// update runs fn in a single write transaction against the namespace of
// cat, so fn is applied entirely or not at all. Single-key writes go through
// bbolt's batcher when a parallelism hint is configured; fn may then run
// more than once and must be idempotent.
func (s *Store) update(cat store.Category, single bool, fn func(b *bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch st := s.state.(type) {
	case closedState:
		return nil
	case openState:
		run := st.db.Update
		if single && s.batching {
			run = st.db.Batch
		}
		err := run(func(tx *bolt.Tx) error {
			b, err := bucket(tx, cat)
			if err != nil {
				return err
			}
			return fn(b)
		})
		return engineErr("writing", err)
	}
	return nil
}

func bucket(tx *bolt.Tx, cat store.Category) (*bolt.Bucket, error) {
	if !cat.Valid() {
		return nil, store.NotFound(cat)
	}
	b := tx.Bucket([]byte(cat.Namespace()))
	if b == nil {
		return nil, store.NotFound(cat)
	}
	return b, nil
}

// engineErr passes store errors through and wraps everything else.
func engineErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *store.Error
	if errors.As(err, &se) {
		return err
	}
	return store.Internal(op, err)
}

func clone(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
