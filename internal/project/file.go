package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"storyboard/internal/services"
)

// ErrLocked reports a project file held by another storyboard process.
var ErrLocked = errors.New("project file is locked by another process")

// Load reads and migrates the project at path. A missing file is reported
// with services.ErrNotFound.
func Load(path string) (Project, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Project{}, services.Wrap(services.ErrNotFound, "project", "load", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Project{}, services.Wrap(services.ErrNotFound, "project", "load", path, err)
		}
		return Project{}, fmt.Errorf("read project: %w", err)
	}
	p, err := Migrate(data)
	if err != nil {
		return Project{}, fmt.Errorf("load %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path through a temporary file in the same directory, so
// a failed save leaves the previous file intact.
func Save(path string, p Project) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp project: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp project: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp project: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace project: %w", err)
	}
	committed = true
	return nil
}

// Lock is an advisory lock on a project file, held in a sibling ".lock"
// file so the atomic rename in Save does not drop it.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock for path without blocking. A lock held by another
// process or session is reported with ErrLocked.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release project lock: %w", err)
	}
	return nil
}
