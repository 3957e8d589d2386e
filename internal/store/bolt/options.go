package bolt

import (
	"fmt"
	"math"

	bolt "go.etcd.io/bbolt"

	"cellar/internal/config"
	"cellar/internal/store"
)

// engineOptions translates the open-time tuning knobs into bbolt options.
// A zero bbolt Timeout waits forever on a held lock, so an unset lock
// timeout falls back to config.DefaultLockTimeout.
func engineOptions(cfg config.StoreConfig) *bolt.Options {
	opts := *bolt.DefaultOptions
	opts.Timeout = cfg.LockTimeout
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultLockTimeout
	}
	if !cfg.DurableLog {
		opts.NoSync = true
		opts.NoGrowSync = true
	}
	if size := cfg.Compaction.TargetFileSizeBase; size > 0 {
		opts.InitialMmapSize = int(min(size, uint64(math.MaxInt32)))
	}
	return &opts
}

// tune applies the knobs bbolt exposes on the handle rather than at open.
// The multiplier scales the allocation step bbolt set on the handle.
// Knobs without an engine equivalent are accepted and logged.
func tune(db *bolt.DB, cfg config.StoreConfig) {
	if m := cfg.Compaction.MaxLevelSizeMultiplier; m != nil && *m > 0 {
		db.AllocSize = max(int(float64(db.AllocSize) * *m), 1)
	}
	if p := cfg.ParallelismHint; p != nil && *p > 0 {
		db.MaxBatchSize = *p
	}
	if cfg.MaxOpenFiles != 0 {
		logger.Debug("max_open_files has no engine equivalent", "value", cfg.MaxOpenFiles)
	}
	if n := cfg.Compaction.MaxBackgroundCompactions; n != nil {
		logger.Debug("max_background_compactions has no engine equivalent", "value", *n)
	}
}

// declaredNamespaces lists the namespaces created at open: the default one,
// plus col0..colN-1 when a namespace count is configured.
func declaredNamespaces(cfg config.StoreConfig) []string {
	names := []string{store.Default.Namespace()}
	if cfg.NamespaceCount == nil {
		return names
	}
	for i := uint32(0); i < *cfg.NamespaceCount; i++ {
		names = append(names, namespaceName(int(i)))
	}
	return names
}

func namespaceName(i int) string {
	return fmt.Sprintf("col%d", i)
}
