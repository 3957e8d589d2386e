package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Store.Backend != BackendBolt {
		t.Errorf("Backend: got %q, want bolt", cfg.Store.Backend)
	}
	if cfg.Store.Path != "~/.cellar/data" {
		t.Errorf("Path: got %q, want ~/.cellar/data", cfg.Store.Path)
	}
	if !cfg.Store.DurableLog {
		t.Error("DurableLog should default to true")
	}
	if cfg.Store.NamespaceCount != nil {
		t.Errorf("NamespaceCount: got %d, want unset", *cfg.Store.NamespaceCount)
	}
	if cfg.Store.MaxOpenFiles != 512 {
		t.Errorf("MaxOpenFiles: got %d, want 512", cfg.Store.MaxOpenFiles)
	}
	if cfg.Store.Compaction.TargetFileSizeBase != 64*1024*1024 {
		t.Errorf("TargetFileSizeBase: got %d", cfg.Store.Compaction.TargetFileSizeBase)
	}
	if cfg.Store.LockTimeout != time.Second {
		t.Errorf("LockTimeout: got %s, want 1s", cfg.Store.LockTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestWithNamespaceCount(t *testing.T) {
	cfg := WithNamespaceCount(7)
	if cfg.NamespaceCount == nil || *cfg.NamespaceCount != 7 {
		t.Fatalf("NamespaceCount: got %v, want 7", cfg.NamespaceCount)
	}
	if cfg.MaxOpenFiles != 512 {
		t.Errorf("other fields should keep defaults, MaxOpenFiles = %d", cfg.MaxOpenFiles)
	}
}

func TestLoadNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendBolt {
		t.Errorf("Backend: got %q, want bolt", cfg.Store.Backend)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := `
[log]
level = "debug"
format = "json"

[store]
backend = "bolt"
path = "/tmp/cellar-test"
durable_log = false
namespace_count = 7
max_open_files = 128
parallelism_hint = 4
lock_timeout = "250ms"

[store.compaction]
target_file_size_base = 1048576
max_level_size_multiplier = 10.0
max_background_compactions = 2
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertLoaded(t, cfg)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
log:
  level: debug
  format: json
store:
  backend: bolt
  path: /tmp/cellar-test
  durable_log: false
  namespace_count: 7
  max_open_files: 128
  parallelism_hint: 4
  lock_timeout: 250ms
  compaction:
    target_file_size_base: 1048576
    max_level_size_multiplier: 10.0
    max_background_compactions: 2
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertLoaded(t, cfg)
}

func assertLoaded(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	s := cfg.Store
	if s.Path != "/tmp/cellar-test" {
		t.Errorf("Path: got %q", s.Path)
	}
	if s.DurableLog {
		t.Error("DurableLog: got true, want false")
	}
	if s.NamespaceCount == nil || *s.NamespaceCount != 7 {
		t.Errorf("NamespaceCount: got %v", s.NamespaceCount)
	}
	if s.MaxOpenFiles != 128 {
		t.Errorf("MaxOpenFiles: got %d", s.MaxOpenFiles)
	}
	if s.ParallelismHint == nil || *s.ParallelismHint != 4 {
		t.Errorf("ParallelismHint: got %v", s.ParallelismHint)
	}
	if s.LockTimeout != 250*time.Millisecond {
		t.Errorf("LockTimeout: got %s", s.LockTimeout)
	}
	if s.Compaction.TargetFileSizeBase != 1<<20 {
		t.Errorf("TargetFileSizeBase: got %d", s.Compaction.TargetFileSizeBase)
	}
	if m := s.Compaction.MaxLevelSizeMultiplier; m == nil || *m != 10.0 {
		t.Errorf("MaxLevelSizeMultiplier: got %v", m)
	}
	if n := s.Compaction.MaxBackgroundCompactions; n == nil || *n != 2 {
		t.Errorf("MaxBackgroundCompactions: got %v", n)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[store]\npath = \"/data\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/data" {
		t.Errorf("Path: got %q", cfg.Store.Path)
	}
	if !cfg.Store.DurableLog || cfg.Store.MaxOpenFiles != 512 {
		t.Errorf("unset fields should keep defaults: %+v", cfg.Store)
	}
}

func TestLoadBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("{{invalid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(path, []byte("store: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[store]\nbackend = \"rocks\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for explicit missing file")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := ExpandHome("~/foo/bar")
	want := filepath.Join(home, "foo/bar")
	if got != want {
		t.Errorf("ExpandHome: got %q, want %q", got, want)
	}

	if got := ExpandHome("/absolute/path"); got != "/absolute/path" {
		t.Errorf("ExpandHome: got %q, want /absolute/path", got)
	}
}
