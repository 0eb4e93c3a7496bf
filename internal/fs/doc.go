// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility for fault injection (simulate I/O errors)
//
// blobstore.LocalStore writes through a FileSystem; tests inject [FaultyFS]
// to check that a failed write never leaves a partial blob behind:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailOnSync: true})
//	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
package fs
