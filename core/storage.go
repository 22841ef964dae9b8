package core

import (
	"context"
	"io"
)

// FileStorage is any service that can persist uploaded files and serve them back by URL.
type FileStorage interface {
	// Upload stores the content of r under key and returns its public URL.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
