package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deboxhq/debox/internal/paths"
	"github.com/gofrs/flock"
)

// Interval between lock acquisition attempts.
const lockRetryInterval = 100 * time.Millisecond

// An exclusive, cross-process lock on one resource's record.
type Lock struct {
	fl *flock.Flock
}

// Acquires the resource's lock, blocking until it is held or the context is
// cancelled.
//
// The lock is a file lock keyed by the resource's config directory, so two
// concurrent invocations against the same application serialize their
// read-modify-write of the applied-state record. Operations on different
// resources never contend. The caller must release the lock on every exit
// path.
func (r *Resource) Lock(ctx context.Context) (*Lock, error) {
	if err := os.MkdirAll(r.dir, paths.DefaultDirMode); err != nil {
		return nil, err
	}

	fl := flock.New(filepath.Join(r.dir, lockFile))

	ok, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", r.name, err)
	}
	if !ok {
		return nil, fmt.Errorf("locking %s: not acquired", r.name)
	}

	return &Lock{fl: fl}, nil
}

// Releases the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
