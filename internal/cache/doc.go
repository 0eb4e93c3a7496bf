// Package cache provides in-memory LRU caches for immutable byte values,
// such as published flight responses read through a blob store.
//
// The ShardedLRU spreads keys over 64 independently locked LRU shards to
// keep lock contention low when many renders read at once.
package cache
