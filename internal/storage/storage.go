package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound indicates the requested object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStore abstracts the photo blob backend. The filesystem store is the
// default; a cloud object store plugs in behind the same interface.
type BlobStore interface {
	// Put stores the object under key and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// Open returns a reader over the stored object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
