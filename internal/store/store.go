package store

// Store is a category-aware key-value storage interface. Every backend
// satisfies it identically; callers never learn which one they hold.
// All methods are safe for concurrent use.
type Store interface {
	// Get returns a copy of the value stored under key, or nil when the key
	// is absent. Fails with ErrNotFound if cat has no backing namespace.
	Get(cat Category, key []byte) ([]byte, error)

	// GetBatch looks up keys in order. The result has len(keys) slots; a nil
	// slot means the key is absent.
	GetBatch(cat Category, keys [][]byte) ([][]byte, error)

	// Insert upserts a single entry.
	Insert(cat Category, key, value []byte) error

	// InsertBatch writes keys[i]=values[i] atomically. Mismatched lengths fail
	// with ErrInvalidData before anything is written.
	InsertBatch(cat Category, keys, values [][]byte) error

	// Contains reports whether key is present without copying its value.
	Contains(cat Category, key []byte) (bool, error)

	// Remove deletes key. Removing an absent key is not an error.
	Remove(cat Category, key []byte) error

	// RemoveBatch deletes keys atomically.
	RemoveBatch(cat Category, keys [][]byte) error

	// Iterate returns a forward-only iterator over cat in ascending key order.
	// The caller must Close it.
	Iterate(cat Category) (Iterator, error)

	// Restore replaces the whole dataset with the one found at newPath.
	Restore(newPath string) error

	// Close releases the backend. Closing twice is a no-op.
	Close() error
}

// Iterator walks the entries of one category exactly once.
//
//	it, err := st.Iterate(store.State)
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next advances to the next entry and reports whether one exists.
	Next() bool
	// Key returns a copy of the current key.
	Key() []byte
	// Value returns a copy of the current value.
	Value() []byte
	// Err returns the error that stopped iteration early, if any.
	Err() error
	// Close releases the iterator. It is safe to call more than once.
	Close() error
}

// Empty is an Iterator with no entries.
type Empty struct{}

func (Empty) Next() bool    { return false }
func (Empty) Key() []byte   { return nil }
func (Empty) Value() []byte { return nil }
func (Empty) Err() error    { return nil }
func (Empty) Close() error  { return nil }

// CheckBatch validates the structural precondition shared by InsertBatch
// implementations.
func CheckBatch(keys, values [][]byte) error {
	if len(keys) != len(values) {
		return InvalidData("batch has mismatched key and value counts")
	}
	return nil
}
