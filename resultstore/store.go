// Package resultstore provides the keyed, TTL-expiring store used to
// hand asynchronous job output to a later poller. Values are stored as
// JSON so either backend can serve the same callers.
package resultstore

import (
	"context"
	"time"
)

// Store is a key-addressable value store with per-entry expiry. Writes
// replace the value at the key atomically; reads of an absent or expired
// key report ok=false, not an error.
type Store interface {
	Write(ctx context.Context, key string, value any, ttl time.Duration) error
	Read(ctx context.Context, key string, dest any) (ok bool, err error)
}
