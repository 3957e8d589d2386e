// Package memory implements store.Store over a process-local map. It exists
// to exercise the Store contract in tests; it has no lifecycle of its own.
package memory

import (
	"sync"

	"cellar/internal/logging"
	"cellar/internal/store"
)

var logger = logging.For("store.memory")

// Store keeps every category in one map, partitioned by key prefix.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(cat store.Category, key []byte) ([]byte, error) {
	if !cat.Valid() {
		return nil, store.NotFound(cat)
	}
	k := string(cat.Key(key))

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[k]
	if !ok {
		return nil, nil
	}
	return clone(v), nil
}

func (s *Store) GetBatch(cat store.Category, keys [][]byte) ([][]byte, error) {
	if !cat.Valid() {
		return nil, store.NotFound(cat)
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = string(cat.Key(key))
	}

	out := make([][]byte, len(keys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, k := range prefixed {
		if v, ok := s.data[k]; ok {
			out[i] = clone(v)
		}
	}
	return out, nil
}

func (s *Store) Insert(cat store.Category, key, value []byte) error {
	if !cat.Valid() {
		return store.NotFound(cat)
	}
	k := string(cat.Key(key))
	v := clone(value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = v
	return nil
}

func (s *Store) InsertBatch(cat store.Category, keys, values [][]byte) error {
	if err := store.CheckBatch(keys, values); err != nil {
		return err
	}
	if !cat.Valid() {
		return store.NotFound(cat)
	}
	// Build the whole batch before taking the lock so the critical section
	// is only the map writes.
	staged := make(map[string][]byte, len(keys))
	order := make([]string, len(keys))
	for i := range keys {
		k := string(cat.Key(keys[i]))
		order[i] = k
		staged[k] = clone(values[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range order {
		s.data[k] = staged[k]
	}
	return nil
}

func (s *Store) Contains(cat store.Category, key []byte) (bool, error) {
	if !cat.Valid() {
		return false, store.NotFound(cat)
	}
	k := string(cat.Key(key))

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[k]
	return ok, nil
}

func (s *Store) Remove(cat store.Category, key []byte) error {
	if !cat.Valid() {
		return store.NotFound(cat)
	}
	k := string(cat.Key(key))

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, k)
	return nil
}

func (s *Store) RemoveBatch(cat store.Category, keys [][]byte) error {
	if !cat.Valid() {
		return store.NotFound(cat)
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = string(cat.Key(key))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range prefixed {
		delete(s.data, k)
	}
	return nil
}

// Iterate is not supported: the memory store does not model engine ordering.
func (s *Store) Iterate(cat store.Category) (store.Iterator, error) {
	logger.Warn("iterate called on memory store", "category", cat)
	return nil, store.Internal("iterate is not supported by the memory store", nil)
}

// Restore is not supported: there is no on-disk dataset to replace.
func (s *Store) Restore(newPath string) error {
	logger.Warn("restore called on memory store", "path", newPath)
	return store.Internal("restore is not supported by the memory store", nil)
}

// Close is not supported: the map lives as long as the Store value, so
// the call is logged and the data stays readable.
func (s *Store) Close() error {
	logger.Warn("close called on memory store, data is kept")
	return nil
}

// Len returns the number of entries across all categories.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func clone(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
