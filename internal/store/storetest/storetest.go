// Package storetest holds the behavioural checks every store.Store
// backend must pass. Backends call Run from their own tests.
package storetest

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"cellar/internal/store"
)

// Factory returns a fresh, empty store with every category available.
type Factory func(t *testing.T) store.Store

// Run executes the full contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertGetContainsRemove", func(t *testing.T) {
		st := newStore(t)
		insertGetContainsRemove(t, st, store.Default)
		for _, cat := range store.Categories() {
			insertGetContainsRemove(t, st, cat)
		}
	})
	t.Run("BatchOps", func(t *testing.T) {
		st := newStore(t)
		batchOps(t, st, store.Default)
		batchOps(t, st, store.State)
	})
	t.Run("InsertBatchMismatch", func(t *testing.T) { insertBatchMismatch(t, newStore(t)) })
	t.Run("CategoryIsolation", func(t *testing.T) { categoryIsolation(t, newStore(t)) })
	t.Run("Idempotence", func(t *testing.T) { idempotence(t, newStore(t)) })
	t.Run("EmptyValue", func(t *testing.T) { emptyValue(t, newStore(t)) })
	t.Run("ValuesAreCopied", func(t *testing.T) { valuesAreCopied(t, newStore(t)) })
	t.Run("UnknownCategory", func(t *testing.T) { unknownCategory(t, newStore(t)) })
	t.Run("NoTornBatches", func(t *testing.T) { noTornBatches(t, newStore(t)) })
}

func insertGetContainsRemove(t *testing.T, st store.Store, cat store.Category) {
	t.Helper()
	key := []byte("test-key")
	value := []byte("test-value")

	if err := st.Insert(cat, key, value); err != nil {
		t.Fatalf("%s: Insert: %v", cat, err)
	}
	got, err := st.Get(cat, key)
	if err != nil {
		t.Fatalf("%s: Get: %v", cat, err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("%s: Get = %q, want %q", cat, got, value)
	}
	ok, err := st.Contains(cat, key)
	if err != nil || !ok {
		t.Fatalf("%s: Contains = %v, %v; want true", cat, ok, err)
	}

	if err := st.Remove(cat, key); err != nil {
		t.Fatalf("%s: Remove: %v", cat, err)
	}
	got, err = st.Get(cat, key)
	if err != nil {
		t.Fatalf("%s: Get after remove: %v", cat, err)
	}
	if got != nil {
		t.Fatalf("%s: Get after remove = %q, want nil", cat, got)
	}
	ok, err = st.Contains(cat, key)
	if err != nil || ok {
		t.Fatalf("%s: Contains after remove = %v, %v; want false", cat, ok, err)
	}
}

func batchOps(t *testing.T, st store.Store, cat store.Category) {
	t.Helper()
	keys := [][]byte{[]byte("k1"), []byte("k2"), []byte("k3")}
	values := [][]byte{[]byte("v1"), []byte("v2"), []byte("v3")}

	if err := st.InsertBatch(cat, keys, values); err != nil {
		t.Fatalf("%s: InsertBatch: %v", cat, err)
	}

	lookup := [][]byte{[]byte("k3"), []byte("missing"), []byte("k1")}
	got, err := st.GetBatch(cat, lookup)
	if err != nil {
		t.Fatalf("%s: GetBatch: %v", cat, err)
	}
	if len(got) != len(lookup) {
		t.Fatalf("%s: GetBatch returned %d slots, want %d", cat, len(got), len(lookup))
	}
	if string(got[0]) != "v3" || got[1] != nil || string(got[2]) != "v1" {
		t.Fatalf("%s: GetBatch = %q, want [v3 nil v1]", cat, got)
	}

	if err := st.RemoveBatch(cat, keys[:2]); err != nil {
		t.Fatalf("%s: RemoveBatch: %v", cat, err)
	}
	got, err = st.GetBatch(cat, keys)
	if err != nil {
		t.Fatalf("%s: GetBatch after remove: %v", cat, err)
	}
	if got[0] != nil || got[1] != nil || string(got[2]) != "v3" {
		t.Fatalf("%s: GetBatch after remove = %q, want [nil nil v3]", cat, got)
	}

	empty, err := st.GetBatch(cat, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("%s: GetBatch(nil) = %q, %v; want empty", cat, empty, err)
	}
}

func insertBatchMismatch(t *testing.T, st store.Store) {
	t.Helper()
	keys := [][]byte{[]byte("a"), []byte("b")}
	values := [][]byte{[]byte("1")}

	err := st.InsertBatch(store.State, keys, values)
	if !errors.Is(err, store.ErrInvalidData) {
		t.Fatalf("InsertBatch mismatch: got %v, want ErrInvalidData", err)
	}
	if store.KindOf(err) != store.KindInvalidData {
		t.Fatalf("KindOf = %v, want invalid data", store.KindOf(err))
	}
	for _, k := range keys {
		ok, err := st.Contains(store.State, k)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatalf("key %q written by a rejected batch", k)
		}
	}

	if err := st.InsertBatch(store.Default, [][]byte{[]byte("x")}, nil); !errors.Is(err, store.ErrInvalidData) {
		t.Fatalf("InsertBatch with no values: got %v, want ErrInvalidData", err)
	}
}

func categoryIsolation(t *testing.T, st store.Store) {
	t.Helper()
	key := []byte("shared")
	all := append([]store.Category{store.Default}, store.Categories()...)

	for _, cat := range all {
		if err := st.Insert(cat, key, []byte(cat.String())); err != nil {
			t.Fatalf("%s: Insert: %v", cat, err)
		}
	}
	for _, cat := range all {
		got, err := st.Get(cat, key)
		if err != nil {
			t.Fatalf("%s: Get: %v", cat, err)
		}
		if string(got) != cat.String() {
			t.Fatalf("%s: Get = %q, want %q", cat, got, cat.String())
		}
	}

	if err := st.Remove(store.Headers, key); err != nil {
		t.Fatal(err)
	}
	for _, cat := range all {
		ok, err := st.Contains(cat, key)
		if err != nil {
			t.Fatal(err)
		}
		if want := cat != store.Headers; ok != want {
			t.Fatalf("%s: Contains = %v, want %v", cat, ok, want)
		}
	}

	// A default-space key spelled like a prefixed key must not alias it.
	if err := st.Insert(store.Default, []byte("state-alias"), []byte("default")); err != nil {
		t.Fatal(err)
	}
	got, err := st.Get(store.State, []byte("alias"))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("State/alias = %q, want nil", got)
	}
}

func idempotence(t *testing.T, st store.Store) {
	t.Helper()
	key, value := []byte("k"), []byte("v")

	for i := 0; i < 2; i++ {
		if err := st.Insert(store.Bodies, key, value); err != nil {
			t.Fatal(err)
		}
	}
	got, err := st.Get(store.Bodies, key)
	if err != nil || string(got) != "v" {
		t.Fatalf("Get after double insert = %q, %v", got, err)
	}

	for i := 0; i < 2; i++ {
		if err := st.Remove(store.Bodies, key); err != nil {
			t.Fatalf("Remove: %v", err)
		}
	}
	if err := st.Remove(store.Bodies, []byte("never-written")); err != nil {
		t.Fatalf("Remove of absent key: %v", err)
	}
	if err := st.RemoveBatch(store.Bodies, [][]byte{[]byte("x"), []byte("y")}); err != nil {
		t.Fatalf("RemoveBatch of absent keys: %v", err)
	}
	ok, err := st.Contains(store.Bodies, key)
	if err != nil || ok {
		t.Fatalf("Contains after double remove = %v, %v", ok, err)
	}
}

func emptyValue(t *testing.T, st store.Store) {
	t.Helper()
	if err := st.Insert(store.Extra, []byte("empty"), []byte{}); err != nil {
		t.Fatal(err)
	}
	got, err := st.Get(store.Extra, []byte("empty"))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("Get of empty value = %#v, want non-nil empty slice", got)
	}
	ok, err := st.Contains(store.Extra, []byte("empty"))
	if err != nil || !ok {
		t.Fatalf("Contains of empty value = %v, %v", ok, err)
	}
}

func valuesAreCopied(t *testing.T, st store.Store) {
	t.Helper()
	value := []byte("original")
	if err := st.Insert(store.Trace, []byte("k"), value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'X'

	got, err := st.Get(store.Trace, []byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Fatalf("store aliased the caller's slice: %q", got)
	}
	got[0] = 'Y'

	again, _ := st.Get(store.Trace, []byte("k"))
	if string(again) != "original" {
		t.Fatalf("mutating a returned value changed the store: %q", again)
	}
}

func unknownCategory(t *testing.T, st store.Store) {
	t.Helper()
	bogus := store.Category(200)

	if _, err := st.Get(bogus, []byte("k")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get: got %v, want ErrNotFound", err)
	}
	if err := st.Insert(bogus, []byte("k"), []byte("v")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Insert: got %v, want ErrNotFound", err)
	}
	if _, err := st.Contains(bogus, []byte("k")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Contains: got %v, want ErrNotFound", err)
	}
}

// noTornBatches runs writers that rewrite a fixed key set with one
// generation number per batch, while readers check that a batch read never
// mixes generations.
func noTornBatches(t *testing.T, st store.Store) {
	t.Helper()
	const (
		width   = 16
		writers = 4
		rounds  = 50
		readers = 4
	)
	keys := make([][]byte, width)
	for i := range keys {
		keys[i] = fmt.Appendf(nil, "key-%02d", i)
	}
	batch := func(gen int) [][]byte {
		values := make([][]byte, width)
		for i := range values {
			values[i] = fmt.Appendf(nil, "gen-%d", gen)
		}
		return values
	}
	if err := st.InsertBatch(store.State, keys, batch(0)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	errs := make(chan error, writers+readers)

	var writersWG sync.WaitGroup
	for w := 0; w < writers; w++ {
		w := w
		writersWG.Add(1)
		go func() {
			defer writersWG.Done()
			for r := 0; r < rounds; r++ {
				if err := st.InsertBatch(store.State, keys, batch(w*rounds+r+1)); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				got, err := st.GetBatch(store.State, keys)
				if err != nil {
					errs <- err
					return
				}
				for i := 1; i < len(got); i++ {
					if !bytes.Equal(got[i], got[0]) {
						errs <- fmt.Errorf("torn batch: slot 0 = %q, slot %d = %q", got[0], i, got[i])
						return
					}
				}
			}
		}()
	}

	writersWG.Wait()
	close(done)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
