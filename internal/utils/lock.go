package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 50 * time.Millisecond
)

// StoreLock serializes writers to one store file across processes. It guards the
// read-modify-write of a whole collection, not individual sqlite statements.
type StoreLock struct {
	lock *flock.Flock
	path string
}

func NewStoreLock(dbPath string) (*StoreLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &StoreLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the lock, polling until ctx is done. A writer in another process holding
// the lock longer than ctx allows makes Lock fail with ctx's error.
func (l *StoreLock) Lock(ctx context.Context) error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if locked {
		return nil
	}

	Log.Debugf("Another agroscan process is writing to %s, waiting for it to finish", l.path)
	locked, err = l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, ctx.Err())
	}
	return nil
}

// Unlock releases the lock. Releasing a lock file that is already gone is not an error.
func (l *StoreLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the store path, defaulting to ~/.config/agroscan/agroscan.sqlite.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "agroscan", "agroscan.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
