// Package lock provides the best-effort distributed lock that keeps
// schedule sweeps from overlapping across replicas.
package lock

import (
	"context"
	"time"
)

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

type Locker interface {
	// TryLock acquires key for ttl without waiting. ok is false when
	// somebody else holds it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock Unlock, ok bool, err error)
}

// Noop always grants the lock. Used when redis is not configured.
type Noop struct{}

func (Noop) TryLock(context.Context, string, time.Duration) (Unlock, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}
