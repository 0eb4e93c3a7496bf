// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("flight/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	client := static.NewClient(store)
//
// # Features
//
//   - Automatic pagination for listing
//   - CRC32C integrity checksums on upload
//   - Configurable prefix for multi-tenant isolation
package s3
