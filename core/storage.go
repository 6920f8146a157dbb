package core

import (
	"context"
	"io"
)

// FileStorage is any service that can persist uploaded files (certificate
// templates) and serve them back by URL.
type FileStorage interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (url string, err error)
	Remove(ctx context.Context, key string) error
}
