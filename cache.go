package gqlpg

import (
	"context"
	"strconv"
	"time"
)

// Cache is an optional result cache a resolver.* caller may consult
// before running a Retrieve pipeline and populate after. gqlpg has no
// built-in implementation; callers wire in Redis, Memcached, or an
// in-memory LRU as they see fit — encoding of the cached []byte is the
// implementation's choice (msgpack, JSON, gob, ...).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a cacheable Retrieve request — its shape mirrors
// resolver.RetrieveRequest's SQL-relevant fields, not its access-control
// inputs (the residual predicate an access.Solve folds in must also be
// part of Predicates for a cache key to be sound across callers with
// different access contexts).
type CacheKey struct {
	Table      string
	Operation  string
	Predicates string
	OrderBy    string
	Limit      int
	Offset     int
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Table + ":" + k.Operation + ":" + k.Predicates + ":" + k.OrderBy +
		":" + strconv.Itoa(k.Limit) + ":" + strconv.Itoa(k.Offset)
}
