package reservation

import (
	"sync"
	"time"
)

// bucketLocks serializes the capacity check-then-insert per
// (clientID, bucket) so concurrent bookings for the same slot cannot both
// observe spare capacity. External calls never run under these locks.
type bucketLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newBucketLocks() *bucketLocks {
	return &bucketLocks{locks: make(map[string]*sync.Mutex)}
}

func (b *bucketLocks) acquire(clientID string, bucket time.Time) func() {
	key := clientID + "|" + bucket.UTC().Format(time.RFC3339)

	b.mu.Lock()
	l, ok := b.locks[key]
	if !ok {
		l = &sync.Mutex{}
		b.locks[key] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}
