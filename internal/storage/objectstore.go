package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the blob storage consumed by the upload and project
// services. Keys are path-like strings; a project's files live under
// "<project name>/".
type ObjectStore interface {
	// Put writes body under key, overwriting any existing object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// Get reads the full object at key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a single object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// DeleteMany removes a batch of objects.
	DeleteMany(ctx context.Context, keys []string) error
	// PresignGet returns a time-limited URL granting read access to key.
	// contentType and disposition become the response headers the store
	// serves, so browsers render inline-viewable types correctly.
	PresignGet(ctx context.Context, key, contentType, disposition string, ttl time.Duration) (string, error)
}

// DeletePrefix removes every object under prefix: bulk list then bulk
// delete. Best effort; a partial failure leaves the remaining objects in
// place and is reported to the caller.
func DeletePrefix(ctx context.Context, store ObjectStore, prefix string) error {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return store.DeleteMany(ctx, keys)
}
