// Package blobstore provides the storage abstraction published flight
// responses are read from.
//
// Store reads and writes whole blobs by name. Implementations must be safe
// for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and embedding
//   - LocalStore: local filesystem with atomic writes
//   - CachingStore: LRU read cache in front of any Store
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO or any S3 compatible server
//
// # Custom Implementations
//
// Implement the Store interface to support custom storage backends:
//
//	type Store interface {
//	    Get(ctx, name) ([]byte, error)
//	    Put(ctx, name, data) error         // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
