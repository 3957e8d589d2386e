package bolt

import (
	"fmt"
	"testing"

	"cellar/internal/store"
)

type pair struct{ k, v string }

func collect(t *testing.T, it store.Iterator) []pair {
	t.Helper()
	defer it.Close()
	var out []pair
	for it.Next() {
		out = append(out, pair{string(it.Key()), string(it.Value())})
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestIterateOrder(t *testing.T) {
	s := tempStore(t)
	mustInsert(t, s, store.State, "k2", "v2")
	mustInsert(t, s, store.State, "k1", "v1")

	it, err := s.Iterate(store.State)
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, it)
	want := []pair{{"k1", "v1"}, {"k2", "v2"}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("Iterate = %v, want %v", got, want)
	}
}

func TestIterateByteOrder(t *testing.T) {
	s := tempStore(t)
	keys := [][]byte{{0xff}, {0x00, 0x01}, {0x00}, []byte("a"), []byte("B")}
	values := make([][]byte, len(keys))
	for i := range values {
		values[i] = []byte{byte(i)}
	}
	if err := s.InsertBatch(store.Bodies, keys, values); err != nil {
		t.Fatal(err)
	}

	it, err := s.Iterate(store.Bodies)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, p := range collect(t, it) {
		order = append(order, fmt.Sprintf("%x", p.k))
	}
	want := []string{"00", "0001", "42", "61", "ff"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("key order = %v, want %v", order, want)
	}
}

func TestIterateIsolatedPerCategory(t *testing.T) {
	s := tempStore(t)
	mustInsert(t, s, store.State, "s", "1")
	mustInsert(t, s, store.Headers, "h", "2")
	mustInsert(t, s, store.Default, "d", "3")

	for cat, want := range map[store.Category]string{store.State: "s", store.Headers: "h", store.Default: "d"} {
		it, err := s.Iterate(cat)
		if err != nil {
			t.Fatal(err)
		}
		got := collect(t, it)
		if len(got) != 1 || got[0].k != want {
			t.Fatalf("%s: Iterate = %v, want only %q", cat, got, want)
		}
	}
}

func TestIterateEmptyCategory(t *testing.T) {
	s := tempStore(t)
	it, err := s.Iterate(store.AccountBloom)
	if err != nil {
		t.Fatal(err)
	}
	if got := collect(t, it); len(got) != 0 {
		t.Fatalf("Iterate on empty category = %v", got)
	}
}

func TestIterateIsSnapshot(t *testing.T) {
	s := tempStore(t)
	mustInsert(t, s, store.State, "a", "1")

	it, err := s.Iterate(store.State)
	if err != nil {
		t.Fatal(err)
	}
	// Write from another goroutine while the read transaction is pinned.
	done := make(chan error)
	go func() { done <- s.Insert(store.State, []byte("b"), []byte("2")) }()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if got := collect(t, it); len(got) != 1 || got[0].k != "a" {
		t.Fatalf("iterator saw a write made after it started: %v", got)
	}

	it, err = s.Iterate(store.State)
	if err != nil {
		t.Fatal(err)
	}
	if got := collect(t, it); len(got) != 2 {
		t.Fatalf("a new iterator should see both keys, got %v", got)
	}
}

func TestIteratorSinglePass(t *testing.T) {
	s := tempStore(t)
	mustInsert(t, s, store.Extra, "x", "1")

	it, err := s.Iterate(store.Extra)
	if err != nil {
		t.Fatal(err)
	}
	if !it.Next() {
		t.Fatal("expected one entry")
	}
	if it.Next() {
		t.Fatal("expected exhaustion")
	}
	if it.Next() {
		t.Fatal("an exhausted iterator must stay exhausted")
	}
	if err := it.Close(); err != nil {
		t.Fatal(err)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestIteratorKeyIsCopy(t *testing.T) {
	s := tempStore(t)
	mustInsert(t, s, store.Extra, "key", "value")

	it, err := s.Iterate(store.Extra)
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	if !it.Next() {
		t.Fatal("expected one entry")
	}
	k := it.Key()
	k[0] = 'X'
	if string(it.Key()) != "key" {
		t.Fatal("mutating Key() result changed the iterator")
	}
}

func TestCloseWaitsForIterator(t *testing.T) {
	s := tempStore(t)
	mustInsert(t, s, store.State, "a", "1")

	it, err := s.Iterate(store.State)
	if err != nil {
		t.Fatal(err)
	}
	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()

	// Draining the iterator releases its transaction and unblocks Close.
	if got := collect(t, it); len(got) != 1 {
		t.Fatalf("Iterate = %v", got)
	}
	if err := <-closed; err != nil {
		t.Fatal(err)
	}
	if s.IsOpen() {
		t.Fatal("store should be closed")
	}
}
