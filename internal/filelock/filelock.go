// Package filelock guards a solution against concurrent runs and writes
// report files atomically.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked means another run holds the lock of the solution.
var ErrLocked = errors.New("solution is locked by another run")

// lockSuffix is appended to a solution path to name its run lock.
const lockSuffix = ".tcsa.lock"

// RunLock is the exclusive lock a run holds on its solution.
// The lock file is left in place on Release; removing it would race with a
// run that opened it in the meantime.
type RunLock struct {
	flock *flock.Flock
}

// LockPath returns the lock file guarding runs on solutionPath.
func LockPath(solutionPath string) string {
	return solutionPath + lockSuffix
}

// Acquire takes the run lock of a solution without waiting.
// It fails with ErrLocked when another run already holds it.
func Acquire(solutionPath string) (*RunLock, error) {
	fl := flock.New(LockPath(solutionPath))
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return &RunLock{flock: fl}, nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.flock.Path()
}

// Held reports whether the lock is still held by this run.
func (l *RunLock) Held() bool {
	return l.flock.Locked()
}

// Release gives up the lock. Releasing twice is a no-op.
func (l *RunLock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release %s: %w", l.flock.Path(), err)
	}
	return nil
}

// WriteFile replaces path with data so that readers see either the old or
// the new content. Missing parent directories are created.
func WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// The temp file lives next to the target so the rename stays on one filesystem
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
