package ports

import (
	"context"
)

// BlobStore persists opaque session blobs under a name.
type BlobStore interface {
	// Get returns the blob saved under name.
	// Returns domain.ErrSessionNotFound if nothing is saved there.
	Get(ctx context.Context, name string) ([]byte, error)

	// Set saves blob under name, replacing any previous blob.
	Set(ctx context.Context, name string, blob []byte) error

	// Delete removes the blob. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the saved names in sorted order.
	List(ctx context.Context) ([]string, error)
}
