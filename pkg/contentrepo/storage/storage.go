// Package storage defines the blob store used to archive version content.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound indicates the object key does not exist in the store
var ErrObjectNotFound = errors.New("object not found")

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload stores the content under objectKey, replacing existing content
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download returns the content stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// List returns the metadata of every object whose key starts with
	// prefix, ordered by key
	List(ctx context.Context, prefix string) ([]ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
	ETag      string
}
