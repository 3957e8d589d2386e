package bolt

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cellar/internal/store"
)

// FileSystem is the subset of filesystem operations the restore protocol
// depends on. Rename must be atomic for directories on one filesystem.
type FileSystem interface {
	Rename(oldpath, newpath string) error
	RemoveAll(path string) error
	Exists(path string) (bool, error)
}

type osFS struct{}

func (osFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (osFS) RemoveAll(path string) error          { return os.RemoveAll(path) }

func (osFS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// BackupPath returns the well-known backup location for a store at path.
// It is a sibling of path so both renames stay on one filesystem.
func BackupPath(path string) string {
	return filepath.Clean(path) + ".backup"
}

// Restore atomically replaces the dataset at the store path with the store
// directory found at newPath, which is moved, not copied.
//
// The handle is closed for the duration of the swap: concurrent callers see
// an empty store and their writes are dropped until the handle is reopened.
// At every step the store path holds the old dataset, the new one, or
// nothing while the old one sits at BackupPath. A backup left by an earlier
// interrupted restore blocks further restores until it is resolved by hand.
//
// Restore must not be called while the calling goroutine holds an open
// iterator on the store.
func (s *Store) Restore(newPath string) error {
	s.restoreMu.Lock()
	defer s.restoreMu.Unlock()

	id := uuid.NewString()
	log := logger.With("restore_id", id, "path", s.path, "source", newPath)

	if err := s.checkSource(newPath); err != nil {
		log.Warn("restore rejected", "err", err)
		return err
	}

	log.Info("restore started")
	if err := s.Close(); err != nil {
		return err
	}

	backup := BackupPath(s.path)
	exists, err := s.fs.Exists(backup)
	if err != nil {
		return s.abort(log, store.Internal("checking for backup", err))
	}
	if exists {
		detail := fmt.Sprintf("conflicting backup at %s", backup)
		if m, err := readManifest(backup); err == nil {
			detail += fmt.Sprintf(" left by restore %s", m.RestoreID)
		}
		return s.abort(log, store.Internal(detail, nil))
	}

	if err := s.fs.Rename(s.path, backup); err != nil {
		return s.abort(log, store.Internal("moving current dataset to backup", err))
	}
	log.Info("current dataset moved to backup", "backup", backup)

	m := manifest{RestoreID: id, Source: newPath, Started: time.Now()}
	if err := writeManifest(backup, m); err != nil {
		log.Warn("writing backup manifest", "err", err)
	}

	if err := s.fs.Rename(newPath, s.path); err != nil {
		cause := store.Internal("moving new dataset into place", err)
		if rbErr := s.fs.Rename(backup, s.path); rbErr != nil {
			log.Error("rollback failed, dataset left at backup", "backup", backup, "err", rbErr)
			return errors.Join(cause, store.Internal("rolling back", rbErr))
		}
		removeManifest(s.path)
		log.Warn("restore rolled back", "err", err)
		return s.abort(log, cause)
	}

	if err := s.fs.RemoveAll(backup); err != nil {
		log.Error("removing backup after restore", "backup", backup, "err", err)
	}

	if err := s.reopen(); err != nil {
		log.Error("reopening after restore", "err", err)
		return err
	}
	log.Info("restore completed")
	return nil
}

// checkSource rejects sources that cannot be a store directory before the
// handle is touched.
func (s *Store) checkSource(newPath string) error {
	if filepath.Clean(newPath) == s.path {
		return store.Internal("restore source is the store itself", nil)
	}
	info, err := os.Stat(newPath)
	if err != nil {
		return store.Internal("restore source unavailable", err)
	}
	if !info.IsDir() {
		return store.Internal(fmt.Sprintf("restore source %s is not a directory", newPath), nil)
	}
	if _, err := os.Stat(filepath.Join(newPath, dbFile)); err != nil {
		return store.Internal(fmt.Sprintf("restore source %s holds no database", newPath), err)
	}
	return nil
}

// abort reopens the original dataset after a failed restore and returns
// cause, joined with the reopen failure if there is one.
func (s *Store) abort(log *slog.Logger, cause error) error {
	log.Warn("restore failed", "err", cause)
	if err := s.reopen(); err != nil {
		log.Error("reopening after failed restore", "err", err)
		return errors.Join(cause, err)
	}
	return cause
}
