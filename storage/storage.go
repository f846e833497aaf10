package storage

import (
	"context"
	"fmt"
)

// ObjectStore persists binary blobs (mirrored avatars, attached media) under a
// key and serves them from a public URL.
type ObjectStore interface {
	// Put stores data under key and returns the public URL it is served from.
	// Storing the same key again overwrites the previous object.
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)

	// Delete removes the object under key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

// ErrTooLarge is returned when an object exceeds the configured size limit.
var ErrTooLarge = fmt.Errorf("object exceeds size limit")
