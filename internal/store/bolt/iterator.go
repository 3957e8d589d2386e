package bolt

import (
	bolt "go.etcd.io/bbolt"

	"cellar/internal/store"
)

// Iterate returns an iterator over cat that reads from a single read
// transaction, so it sees one consistent snapshot. The transaction is
// released by Close or once the iterator is exhausted. An iterator must be
// used from one goroutine. On a closed store the iterator is empty.
//
// The pinned transaction blocks bbolt from remapping the file. A goroutine
// holding an open iterator must not write to the store (Insert, Remove,
// their batch forms or DropCategory) nor call Close or Restore: a write
// that grows the file waits for the iterator and deadlocks.
func (s *Store) Iterate(cat store.Category) (store.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch st := s.state.(type) {
	case closedState:
		return store.Empty{}, nil
	case openState:
		tx, err := st.db.Begin(false)
		if err != nil {
			return nil, store.Internal("starting read transaction", err)
		}
		b, err := bucket(tx, cat)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		return &iterator{tx: tx, cursor: b.Cursor()}, nil
	}
	return store.Empty{}, nil
}

type iterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	started bool
	done    bool
	key     []byte
	value   []byte
	err     error
}

func (it *iterator) Next() bool {
	if it.done {
		return false
	}
	var k, v []byte
	if !it.started {
		it.started = true
		k, v = it.cursor.First()
	} else {
		k, v = it.cursor.Next()
	}
	// A nil value marks a nested bucket; namespaces hold none, skip them.
	for k != nil && v == nil {
		k, v = it.cursor.Next()
	}
	if k == nil {
		it.key, it.value = nil, nil
		it.release()
		return false
	}
	it.key = clone(k)
	it.value = clone(v)
	return true
}

func (it *iterator) Key() []byte {
	return clone(it.key)
}

func (it *iterator) Value() []byte {
	return clone(it.value)
}

func (it *iterator) Err() error {
	return it.err
}

func (it *iterator) Close() error {
	it.release()
	return it.err
}

func (it *iterator) release() {
	if it.done {
		return
	}
	it.done = true
	if err := it.tx.Rollback(); err != nil {
		it.err = store.Internal("releasing read transaction", err)
	}
}
