// Package backend hands out a store.Store for the configured backend.
package backend

import (
	"fmt"

	"cellar/internal/config"
	"cellar/internal/logging"
	"cellar/internal/store"
	boltstore "cellar/internal/store/bolt"
	"cellar/internal/store/memory"
)

var logger = logging.For("backend")

// Open returns the backend named by cfg.Backend. The bolt backend is opened
// at cfg.Path with a leading ~/ expanded.
func Open(cfg config.StoreConfig) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}

	switch cfg.Backend {
	case config.BackendBolt:
		path := config.ExpandHome(cfg.Path)
		st, err := boltstore.Open(path, cfg)
		if err != nil {
			return nil, err
		}
		logger.Debug("using bolt backend", "path", path)
		return st, nil
	case config.BackendMemory:
		logger.Debug("using memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
