// Package storage defines the blob store the share-handle provider publishes
// relayed assets through. Objects live only as long as the prepared message
// that references them; the memory backend evicts them on its own and the
// MinIO backend is for deployments running several relay instances.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("object not found")

// Object is a stored blob with its content type.
type Object struct {
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Storage is the interface for uploading and retrieving blobs.
type Storage interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Open returns the object at key; the caller closes Body.
	Open(ctx context.Context, key string) (*Object, error)
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
}
