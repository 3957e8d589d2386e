package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultLockTimeout bounds lock acquisition when none is configured.
const DefaultLockTimeout = time.Second

// Backends accepted in StoreConfig.Backend.
const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

type Config struct {
	Log   LogConfig   `toml:"log" yaml:"log"`
	Store StoreConfig `toml:"store" yaml:"store"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// StoreConfig selects a backend and carries the engine tuning knobs. The
// knobs are opaque here; the persistent backend translates them.
type StoreConfig struct {
	Backend         string     `toml:"backend" yaml:"backend"`
	Path            string     `toml:"path" yaml:"path"`
	DurableLog      bool       `toml:"durable_log" yaml:"durable_log"`
	NamespaceCount  *uint32    `toml:"namespace_count" yaml:"namespace_count"`
	MaxOpenFiles    int        `toml:"max_open_files" yaml:"max_open_files"`
	Compaction      Compaction `toml:"compaction" yaml:"compaction"`
	ParallelismHint *int       `toml:"parallelism_hint" yaml:"parallelism_hint"`
	// LockTimeout bounds how long Open waits for the engine's path lock.
	LockTimeout time.Duration `toml:"lock_timeout" yaml:"lock_timeout"`
}

type Compaction struct {
	TargetFileSizeBase       uint64   `toml:"target_file_size_base" yaml:"target_file_size_base"`
	MaxLevelSizeMultiplier   *float64 `toml:"max_level_size_multiplier" yaml:"max_level_size_multiplier"`
	MaxBackgroundCompactions *int     `toml:"max_background_compactions" yaml:"max_background_compactions"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: DefaultStore(),
	}
}

// DefaultStore returns the store defaults: write-ahead durability on, no
// declared namespaces, 512 open files, 64 MiB target file size.
func DefaultStore() StoreConfig {
	return StoreConfig{
		Backend:      BackendBolt,
		Path:         "~/.cellar/data",
		DurableLog:   true,
		MaxOpenFiles: 512,
		Compaction: Compaction{
			TargetFileSizeBase: 64 * 1024 * 1024,
		},
		LockTimeout: DefaultLockTimeout,
	}
}

// WithNamespaceCount returns the store defaults with n declared namespaces.
func WithNamespaceCount(n uint32) StoreConfig {
	cfg := DefaultStore()
	cfg.NamespaceCount = &n
	return cfg
}

// Load reads a TOML or YAML config file and returns the parsed Config.
// YAML is chosen by a .yaml or .yml extension. If path is empty, the
// default location is tried and defaults are returned when it is missing.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = expandHome("~/.cellar/config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the store section.
func (s *StoreConfig) Validate() error {
	var errs []error
	switch s.Backend {
	case BackendBolt:
		if strings.TrimSpace(s.Path) == "" {
			errs = append(errs, errors.New("store.path: required for the bolt backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", s.Backend))
	}
	if s.MaxOpenFiles < -1 {
		errs = append(errs, fmt.Errorf("store.max_open_files: %d is below -1", s.MaxOpenFiles))
	}
	if s.ParallelismHint != nil && *s.ParallelismHint < 0 {
		errs = append(errs, fmt.Errorf("store.parallelism_hint: %d is negative", *s.ParallelismHint))
	}
	if s.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("store.lock_timeout: %s must be positive", s.LockTimeout))
	}
	if m := s.Compaction.MaxLevelSizeMultiplier; m != nil && *m <= 0 {
		errs = append(errs, fmt.Errorf("store.compaction.max_level_size_multiplier: %g must be positive", *m))
	}
	if n := s.Compaction.MaxBackgroundCompactions; n != nil && *n < 0 {
		errs = append(errs, fmt.Errorf("store.compaction.max_background_compactions: %d is negative", *n))
	}
	return errors.Join(errs...)
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
