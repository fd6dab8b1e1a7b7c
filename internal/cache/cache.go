package cache

import (
	"context"
	"time"
)

// Cache is an unbounded-lifetime, size-bounded cache used for read-through database access.
type Cache interface {
	Get(x interface{}) (interface{}, bool)
	Add(key, value interface{})
	Keys() []interface{}
	Delete(key interface{})
}

// Store is a string key-value store with per-key expiry, the SETEX contract.
// Get returns found=false for missing and expired keys.
type Store interface {
	SetEx(ctx context.Context, key string, ttl time.Duration, value string) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Close() error
}
