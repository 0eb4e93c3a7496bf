package minio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/routecache/blobstore"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	bucket := "test-routecache"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Check if MinIO is reachable
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, fmt.Sprintf("test-%d/", time.Now().UnixNano()))

	_, err = store.Get(ctx, "navigate/a/1")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "navigate/a/1", []byte("one")))
	require.NoError(t, store.Put(ctx, "navigate/a/2", []byte("two")))

	data, err := store.Get(ctx, "navigate/a/1")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	names, err := store.List(ctx, "navigate/")
	require.NoError(t, err)
	assert.Equal(t, []string{"navigate/a/1", "navigate/a/2"}, names)

	require.NoError(t, store.Delete(ctx, "navigate/a/1"))
	require.NoError(t, store.Delete(ctx, "navigate/a/2"))
	require.NoError(t, store.Delete(ctx, "navigate/a/2"))

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
