// Package filelock writes result and report files so that concurrent runs
// targeting the same path never interleave and readers never observe a
// partially written file.
package filelock

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/harrison/minrow/internal/models"
)

// DefaultRetryDelay is how often a blocked lock attempt is retried.
const DefaultRetryDelay = 50 * time.Millisecond

// FileLock is an exclusive advisory lock held on a sidecar lock file.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a lock on path. The file is created on first lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// LockPath returns the sidecar lock file guarding target.
func LockPath(target string) string {
	return target + ".lock"
}

// Lock blocks until the lock is acquired or ctx is done.
func (fl *FileLock) Lock(ctx context.Context) error {
	locked, err := fl.flock.TryLockContext(ctx, DefaultRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", fl.path)
	}
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// AtomicWrite replaces path with data through a temp file in the same
// directory and a rename. On failure the previous file, if any, is untouched.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &models.IOError{Op: "create directory", Path: dir, Err: err}
	}

	// Same directory keeps the rename on one filesystem
	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &models.IOError{Op: "create temp file", Path: dir, Err: err}
	}
	tempPath := tempFile.Name()

	committed := false
	defer func() {
		if !committed {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return &models.IOError{Op: "write", Path: tempPath, Err: err}
	}
	if err := tempFile.Sync(); err != nil {
		return &models.IOError{Op: "sync", Path: tempPath, Err: err}
	}
	if err := tempFile.Close(); err != nil {
		return &models.IOError{Op: "close", Path: tempPath, Err: err}
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return &models.IOError{Op: "chmod", Path: tempPath, Err: err}
	}
	if err := os.Rename(tempPath, path); err != nil {
		return &models.IOError{Op: "rename", Path: path, Err: err}
	}

	committed = true
	return nil
}

// WriteFile holds the lock on LockPath(path) while atomically replacing path.
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &models.IOError{Op: "create directory", Path: filepath.Dir(path), Err: err}
	}

	lock := NewFileLock(LockPath(path))
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()

	return AtomicWrite(path, data)
}

// PendingFile buffers output destined for path until Commit. It is used as
// the result sink when output goes to a file rather than stdout.
type PendingFile struct {
	bytes.Buffer
	path string
}

// NewPendingFile creates an empty buffer for path.
func NewPendingFile(path string) *PendingFile {
	return &PendingFile{path: path}
}

// Path returns the destination file.
func (p *PendingFile) Path() string {
	return p.path
}

// Commit writes the buffered bytes to the destination under its lock.
func (p *PendingFile) Commit(ctx context.Context) error {
	return WriteFile(ctx, p.path, p.Bytes())
}
