package blobstore

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/routecache/internal/cache"
)

// warmConcurrency bounds the reads issued by Warm.
const warmConcurrency = 16

// CachingStore wraps a Store and keeps recently read blobs in an LRU.
type CachingStore struct {
	inner Store
	cache cache.Cache
}

var _ Store = (*CachingStore)(nil)

// NewCachingStore caches up to capacity bytes of inner's blobs.
func NewCachingStore(inner Store, capacity int64) *CachingStore {
	return NewCachingStoreWith(inner, cache.NewShardedLRU(capacity))
}

// NewCachingStoreWith caches inner's blobs in c.
func NewCachingStoreWith(inner Store, c cache.Cache) *CachingStore {
	return &CachingStore{inner: inner, cache: c}
}

func key(name string) cache.Key {
	return cache.Key{Kind: cache.KindFlight, Name: name}
}

// Get returns a cached blob or reads it from the inner store. The returned
// slice must be treated as read-only.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(ctx, key(name)); ok {
		return data, nil
	}

	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key(name), data)
	return data, nil
}

// Put writes through to the inner store and drops the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete deletes from the inner store and drops the cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List lists the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Warm loads names into the cache concurrently. Missing blobs are skipped.
func (s *CachingStore) Warm(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	for _, name := range names {
		g.Go(func() error {
			_, err := s.Get(ctx, name)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Stats returns the cache hit/miss statistics.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

// Close releases the cache.
func (s *CachingStore) Close() error {
	return s.cache.Close()
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(k cache.Key) bool {
		return k.Kind == cache.KindFlight && k.Name == name
	})
}
