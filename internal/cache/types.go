package cache

import "context"

// Kind separates key spaces.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFlight       // published flight responses
	KindHistory      // encoded history entries
)

// Key identifies a cached value.
type Key struct {
	Kind Kind
	// Name is the name of the source object, e.g. a blob name.
	Name string
}

// Cache is a byte-oriented cache for immutable values.
// Returned slices must be treated as read-only.
type Cache interface {
	// Get returns a cached value. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a value. Implementations may retain b; the caller must
	// treat it as immutable.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
