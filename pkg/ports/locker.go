package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a session lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes dispatches to one session across replicas that share a
// SnapshotStore. The session manager holds the lock around every load, dispatch and save.
type DistributedLocker interface {
	// Lock blocks until key (a session ID) is held or ctx is done. The lock expires
	// after ttl if its holder never unlocks.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
