package lock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotAcquired = errors.New("lock_not_acquired")
	ErrEmptyKey    = errors.New("lock_key_empty")
)

// Release frees a held lock. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker serializes work on a key across callers. Acquire blocks until the lock
// is held, ctx is done, or wait elapses.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Release, error)
}
