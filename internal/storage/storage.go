// Package storage contains blob storage abstractions for uploaded PDF
// content. Records hold a server-assigned storage name; this package maps
// that name to bytes, whether on local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Get and Stat when no object is stored under
// the given key. Callers translate it to a not-found response.
var ErrNotExist = errors.New("object does not exist")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; set -1 if unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the blob storage client interface. Methods use context and
// streaming readers; object content is never buffered on the way out.
type Storage interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader with its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat reports object info without fetching content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
