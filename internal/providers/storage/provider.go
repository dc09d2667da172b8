package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object_not_found")

// Provider is a minimal blob store for uploaded and finalized PDFs. Keys are
// opaque; callers must not assume they map to paths.
type Provider interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
