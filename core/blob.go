package core

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists opaque file contents.
type BlobStore interface {
	// Save stores the content of r under the owner container (eg. "courses/3") and returns its location.
	Save(ctx context.Context, owner, filename string, r io.Reader) (string, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// Delete removes the blob and its container once it is empty. Missing blobs are ignored.
	Delete(ctx context.Context, location string) error
}
