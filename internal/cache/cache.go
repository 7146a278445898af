// Package cache stores raw upstream responses for a bounded time so repeated
// weather requests for the same span do not hit the provider again.
package cache

import (
	"context"
	"time"
)

// Cache is the contract shared by the in-memory and Redis backends.
// Get reports ok=false on a miss or an expired entry.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
