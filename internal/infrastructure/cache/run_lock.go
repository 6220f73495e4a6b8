package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLockHeld is returned when another run already holds the lock
var ErrLockHeld = errors.New("cache: run lock is held by another run")

// ReleaseFunc gives a lock back. It is safe to call more than once.
type ReleaseFunc func(ctx context.Context) error

// RunLock is the mutual exclusion flag that keeps two runs of the same job
// for the same tenant installation from overlapping.
type RunLock interface {
	// Acquire takes key or returns ErrLockHeld. ttl bounds how long the key
	// stays taken if the holder dies without releasing it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// RunLockKey builds the lock key of a job for one tenant installation
func RunLockKey(command string, companyID int64, platform string) string {
	return fmt.Sprintf("job:%s:%d:%s", command, companyID, platform)
}
