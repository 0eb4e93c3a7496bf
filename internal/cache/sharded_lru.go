package cache

import (
	"context"
	"hash/maphash"
	"sync"
)

const numShards = 64

// ShardedLRU distributes entries across 64 LRU shards to reduce lock
// contention.
type ShardedLRU struct {
	shards [numShards]*LRU
	seed   maphash.Seed
}

var _ Cache = (*ShardedLRU)(nil)

// NewShardedLRU creates a sharded cache. The capacity is divided evenly
// across all shards.
func NewShardedLRU(capacity int64) *ShardedLRU {
	shardCapacity := max(capacity/numShards, 1)

	s := &ShardedLRU{seed: maphash.MakeSeed()}
	for i := range numShards {
		s.shards[i] = NewLRU(shardCapacity)
	}
	return s
}

func (s *ShardedLRU) shard(key Key) *LRU {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_ = h.WriteByte(byte(key.Kind))
	_, _ = h.WriteString(key.Name)
	return s.shards[h.Sum64()%numShards]
}

// Get returns a cached value.
func (s *ShardedLRU) Get(ctx context.Context, key Key) ([]byte, bool) {
	return s.shard(key).Get(ctx, key)
}

// Set caches a value.
func (s *ShardedLRU) Set(ctx context.Context, key Key, b []byte) {
	s.shard(key).Set(ctx, key, b)
}

// Invalidate removes entries matching the predicate.
// This visits all shards, which is expensive but rare.
func (s *ShardedLRU) Invalidate(predicate func(key Key) bool) {
	var wg sync.WaitGroup
	wg.Add(numShards)

	for i := range numShards {
		go func(shard *LRU) {
			defer wg.Done()
			shard.Invalidate(predicate)
		}(s.shards[i])
	}

	wg.Wait()
}

// Close closes all shards.
func (s *ShardedLRU) Close() error {
	for i := range numShards {
		if err := s.shards[i].Close(); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns aggregated hit/miss statistics.
func (s *ShardedLRU) Stats() (hits, misses int64) {
	for i := range numShards {
		h, m := s.shards[i].Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the total size across all shards.
func (s *ShardedLRU) Size() int64 {
	var total int64
	for i := range numShards {
		total += s.shards[i].Size()
	}
	return total
}

// nonEmptyShards counts shards holding at least one value.
func (s *ShardedLRU) nonEmptyShards() int {
	n := 0
	for i := range numShards {
		if s.shards[i].Len() > 0 {
			n++
		}
	}
	return n
}
