package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store persists raw artifact bytes under (bucket, path). Buckets are
// logical namespaces (raw-pdfs, api-responses, parsed-data); how they map
// onto physical storage is backend-specific.
type Store interface {
	// Put writes data at path within bucket, overwriting any existing object.
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) error

	// Get retrieves the object bytes. Returns ErrNotFound if not exists.
	Get(ctx context.Context, bucket, path string) ([]byte, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, path string) error
}
