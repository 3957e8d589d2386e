package main

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"cellar/internal/store"
)

// categoryStats summarizes one category. Two datasets with equal digests
// hold identical entries.
type categoryStats struct {
	Category store.Category
	Entries  int
	Bytes    int
	Digest   []byte
	Missing  bool
}

func collectStats(st store.Store, cat store.Category) (categoryStats, error) {
	stats := categoryStats{Category: cat}
	it, err := st.Iterate(cat)
	if errors.Is(err, store.ErrNotFound) {
		stats.Missing = true
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	defer it.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return stats, err
	}
	var lenBuf []byte
	for it.Next() {
		k, v := it.Key(), it.Value()
		// Length-prefix both parts so entry boundaries are unambiguous.
		lenBuf = binary.AppendUvarint(lenBuf[:0], uint64(len(k)))
		h.Write(lenBuf)
		h.Write(k)
		lenBuf = binary.AppendUvarint(lenBuf[:0], uint64(len(v)))
		h.Write(lenBuf)
		h.Write(v)
		stats.Entries++
		stats.Bytes += len(k) + len(v)
	}
	if err := it.Err(); err != nil {
		return stats, err
	}
	stats.Digest = h.Sum(nil)
	return stats, nil
}

func runStats(e *env, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	cats := append([]store.Category{store.Default}, store.Categories()...)
	_, _ = fmt.Fprintf(e.out, "%-14s %8s %10s  %s\n", "CATEGORY", "ENTRIES", "BYTES", "BLAKE2B-256")
	for _, cat := range cats {
		s, err := collectStats(e.st, cat)
		if err != nil {
			return fmt.Errorf("%s: %w", cat, err)
		}
		if s.Missing {
			_, _ = fmt.Fprintf(e.out, "%-14s %8s %10s  %s\n", cat, "-", "-", "(no namespace)")
			continue
		}
		_, _ = fmt.Fprintf(e.out, "%-14s %8d %10d  %s\n", cat, s.Entries, s.Bytes, hex.EncodeToString(s.Digest))
	}
	return nil
}
