// Package cache provides the key-value store backing authorization
// transactions: the transient state held between an authorization request and
// the user's consent decision. Entries are keyed by transaction id and carry
// a TTL; a transaction is consumed exactly once via Take.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheUnavailable indicates the cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache: backend unavailable")

	// ErrInvalidValue indicates the cached value cannot be parsed
	ErrInvalidValue = errors.New("cache: invalid value")
)

// Cache defines the primitive operations for a TTL'd key-value cache.
// T is the type of value stored in the cache.
type Cache[T any] interface {
	// Get retrieves a single value from cache.
	// Returns ErrCacheMiss if the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores a single value in cache with TTL
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Take retrieves and removes a value in one step. Of any number of
	// concurrent Take calls for the same key, exactly one succeeds; the
	// rest receive ErrCacheMiss.
	Take(ctx context.Context, key string) (T, error)

	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection
	Close() error

	// Health checks if the cache is healthy
	Health(ctx context.Context) error
}
