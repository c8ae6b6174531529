// Package runlock keeps two export runs from polling with the same account at
// the same time. The lock is a single Redis key with an expiry, so a crashed
// run never blocks the next one for longer than the TTL.
package runlock

import (
	"errors"
	"time"
)

// KeyPrefix is prepended to the lock name.
const KeyPrefix = "withdraw-export:lock:"

// DefaultTTL bounds how long a lock survives a run that never released it.
const DefaultTTL = 10 * time.Minute

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("run lock held by another process")

// Key returns the Redis key for the lock named name.
func Key(name string) string {
	return KeyPrefix + name
}

// Lock is a held run lock.
type Lock struct {
	// Key is the Redis key.
	Key string
	// Owner is the random token stored as the key value. Only the owner can
	// release the lock.
	Owner string
	// AcquiredAt is when the lock was taken.
	AcquiredAt time.Time
	// TTL is the expiry set on the key.
	TTL time.Duration
}

// ExpiresAt returns when the key expires unless released earlier.
func (l *Lock) ExpiresAt() time.Time {
	return l.AcquiredAt.Add(l.TTL)
}
