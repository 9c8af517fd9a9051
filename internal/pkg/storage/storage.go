// Package storage holds payment-proof screenshots in an S3-compatible bucket.
package storage

import (
	"context"
	"io"
)

// Storage is the minimal surface the payment-proof flow needs: store a
// screenshot under a key and resolve its public URL later.
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	URL(key string) string
}
